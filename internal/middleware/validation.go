package middleware

import (
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Majkoo/PicturesApi/internal/model"
)

const (
	AccountIDHeader  = "X-Account-ID"
	AdminTokenHeader = "X-Admin-Token"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateUUID parses a path or body id. field names the value in the message.
func ValidateUUID(raw, field string) (uuid.UUID, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, field + " is required"
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, field + " must be a UUID"
	}
	return id, ""
}

// AccountFromHeader reads the caller's account id from X-Account-ID.
func AccountFromHeader(c fiber.Ctx) (uuid.UUID, string) {
	return ValidateUUID(c.Get(AccountIDHeader), AccountIDHeader)
}

// ValidateInt parses an optional integer query parameter. An empty value
// yields def.
func ValidateInt(raw, field string, def int) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, field + " must be an integer"
	}
	return n, ""
}

// ValidateSearch trims the search phrase and enforces its length limit.
func ValidateSearch(s string) (string, string) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > model.MaxSearchLen {
		return "", fmt.Sprintf("search must be at most %d characters", model.MaxSearchLen)
	}
	return s, ""
}

// ValidateStruct runs struct tag validation and returns the first failure as
// a client-facing message.
func ValidateStruct(v any) string {
	err := validate.Struct(v)
	if err == nil {
		return ""
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fe.Field() + " is required"
		case "oneof":
			return fe.Field() + " must be one of: " + fe.Param()
		case "uuid":
			return fe.Field() + " must be a UUID"
		default:
			return fe.Field() + " is invalid"
		}
	}
	return "invalid request"
}

// RequireAdmin guards administrative routes with a shared token. An empty
// configured token disables the routes entirely.
func RequireAdmin(token string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if token == "" {
			return ErrorResponse(c, fiber.StatusForbidden, "ADMIN_DISABLED", "Administrative endpoints are disabled")
		}
		got := c.Get(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid admin token")
		}
		return c.Next()
	}
}

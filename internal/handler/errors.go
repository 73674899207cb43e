package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/middleware"
)

// respondError maps an error kind onto the JSON error envelope. fallback is
// the message sent for unclassified failures; their detail only goes to logs.
func respondError(c fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Account or picture not found")
	case errors.Is(err, apperr.ErrConflict):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "CONFLICT", "Concurrent update, please retry")
	case errors.Is(err, apperr.ErrUnavailable):
		log.Warn().Err(err).Str("request_id", middleware.RequestID(c)).Msg("store unavailable")
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "UNAVAILABLE", "Service temporarily unavailable")
	}
	log.Error().Err(err).Str("request_id", middleware.RequestID(c)).Msg(fallback)
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", fallback)
}

func badRequest(c fiber.Ctx, msg string) error {
	return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", msg)
}

package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/Majkoo/PicturesApi/internal/model"
)

func TestValidateUUID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "4f1c1f9e-3b8a-4c36-9a57-0d1c6d2b7a10", false},
		{"trims whitespace", "  4f1c1f9e-3b8a-4c36-9a57-0d1c6d2b7a10 ", false},
		{"empty", "", true},
		{"nil uuid", "00000000-0000-0000-0000-000000000000", true},
		{"garbage", "not-a-uuid", true},
		{"sql injection", "a'; DROP--", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, errMsg := ValidateUUID(tt.input, "id")
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got %s", id)
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
		})
	}
}

func TestValidateInt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"empty uses default", "", 7, false},
		{"number", "12", 12, false},
		{"negative passes through", "-1", -1, false},
		{"not a number", "ten", 0, true},
		{"float", "1.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidateInt(tt.input, "take", 7)
			if tt.wantErr != (errMsg != "") {
				t.Errorf("errMsg = %q, wantErr %v", errMsg, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidateSearch(t *testing.T) {
	if got, msg := ValidateSearch("  cats "); got != "cats" || msg != "" {
		t.Errorf("ValidateSearch = %q, %q", got, msg)
	}
	if _, msg := ValidateSearch(strings.Repeat("é", model.MaxSearchLen)); msg != "" {
		t.Errorf("100 runes should pass: %s", msg)
	}
	if _, msg := ValidateSearch(strings.Repeat("a", model.MaxSearchLen+1)); msg == "" {
		t.Error("101 characters should fail")
	}
}

func TestValidateStruct_VoteRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     model.VoteRequest
		wantErr bool
	}{
		{"valid like", model.VoteRequest{PictureID: "4f1c1f9e-3b8a-4c36-9a57-0d1c6d2b7a10", Polarity: "like"}, false},
		{"missing picture", model.VoteRequest{Polarity: "like"}, true},
		{"bad polarity", model.VoteRequest{PictureID: "4f1c1f9e-3b8a-4c36-9a57-0d1c6d2b7a10", Polarity: "love"}, true},
		{"bad id", model.VoteRequest{PictureID: "abc", Polarity: "dislike"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ValidateStruct(tt.req)
			if tt.wantErr != (msg != "") {
				t.Errorf("msg = %q, wantErr %v", msg, tt.wantErr)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		want       int
	}{
		{"disabled", "", "anything", fiber.StatusForbidden},
		{"missing", "s3cret", "", fiber.StatusUnauthorized},
		{"wrong", "s3cret", "guess", fiber.StatusUnauthorized},
		{"ok", "s3cret", "s3cret", fiber.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(RequireAdmin(tt.configured))
			app.Get("/", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

			req := httptest.NewRequest("GET", "/", nil)
			if tt.sent != "" {
				req.Header.Set(AdminTokenHeader, tt.sent)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/api/pictures/4f1c1f9e-3b8a-4c36-9a57-0d1c6d2b7a10/voteup", "/api/pictures/:pictureId/voteup"},
		{"/api/accounts/abc/affinity", "/api/accounts/:accountId/affinity"},
		{"/api/feed", "/api/feed"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.in); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

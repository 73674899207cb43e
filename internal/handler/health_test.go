package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/Majkoo/PicturesApi/internal/events"
	"github.com/Majkoo/PicturesApi/internal/model"
)

type breakerPublisher struct {
	events.NoopPublisher
	state string
}

func (b breakerPublisher) BreakerState() string { return b.state }

func TestCheckVoteEvents(t *testing.T) {
	tests := []struct {
		name      string
		publisher events.Publisher
		want      string
	}{
		{"not configured", nil, "disabled"},
		{"noop", events.NoopPublisher{}, "disabled"},
		{"closed breaker", breakerPublisher{state: "closed"}, "up"},
		{"half-open breaker", breakerPublisher{state: "half-open"}, "recovering"},
		{"open breaker", breakerPublisher{state: "open"}, "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkVoteEvents(tt.publisher)
			if got["status"] != tt.want {
				t.Errorf("status = %v, want %s", got["status"], tt.want)
			}
		})
	}
}

func TestReady_OpenBreakerStaysReady(t *testing.T) {
	app := fiber.New()
	h := NewHealthHandler(nil, nil, breakerPublisher{state: "open"})
	app.Get("/health/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 while only vote events are down", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var out struct {
		Status string                    `json:"status"`
		Checks map[string]map[string]any `json:"checks"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	ev := out.Checks["vote_events"]
	if ev["status"] != "down" || ev["breaker"] != "open" {
		t.Errorf("vote_events = %v, want down with open breaker", ev)
	}
	if out.Checks["database"]["driver"] != "memory" {
		t.Errorf("database = %v", out.Checks["database"])
	}
}

func TestCheckVoteEvents_ReportsQueueDepth(t *testing.T) {
	pub := events.NewAsyncPublisher(breakerPublisher{state: "closed"}, 4)
	defer pub.Close()
	if err := pub.PublishVote(context.Background(), model.VoteEvent{}); err != nil {
		t.Fatal(err)
	}
	got := checkVoteEvents(pub)
	if got["status"] != "up" {
		t.Errorf("status = %v, want up", got["status"])
	}
	if _, ok := got["queued"]; !ok {
		t.Error("queued depth missing from async publisher check")
	}
}

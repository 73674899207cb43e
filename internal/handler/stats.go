package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Majkoo/PicturesApi/internal/service"
)

type StatsHandler struct {
	svc *service.StatsService
}

func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// GetStats handles GET /api/stats
func (h *StatsHandler) GetStats(c fiber.Ctx) error {
	stats, err := h.svc.GetStats(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to fetch statistics")
	}
	return c.JSON(stats)
}

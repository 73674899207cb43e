package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Majkoo/PicturesApi/internal/middleware"
	"github.com/Majkoo/PicturesApi/internal/service"
)

type AccountHandler struct {
	affinity *service.AffinityService
}

func NewAccountHandler(affinity *service.AffinityService) *AccountHandler {
	return &AccountHandler{affinity: affinity}
}

// Affinity handles GET /api/accounts/:id/affinity
func (h *AccountHandler) Affinity(c fiber.Ctx) error {
	accountID, errMsg := middleware.ValidateUUID(c.Params("id"), "id")
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	weights, err := h.affinity.GetAffinityWeights(c.Context(), accountID)
	if err != nil {
		return respondError(c, err, "Failed to load affinity")
	}
	policy := h.affinity.Policy()
	return c.JSON(fiber.Map{
		"accountId":  accountID,
		"weights":    weights,
		"windowSize": policy.WindowSize,
		"multiplier": policy.Multiplier,
	})
}

package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Majkoo/PicturesApi/internal/middleware"
	"github.com/Majkoo/PicturesApi/internal/service"
)

// AdminHandler serves the token-guarded maintenance routes.
type AdminHandler struct {
	seen     *service.SeenService
	affinity *service.AffinityService
	pictures *service.PictureService
}

func NewAdminHandler(seen *service.SeenService, affinity *service.AffinityService, pictures *service.PictureService) *AdminHandler {
	return &AdminHandler{seen: seen, affinity: affinity, pictures: pictures}
}

// ResetSeen handles DELETE /api/admin/accounts/:id/seen
func (h *AdminHandler) ResetSeen(c fiber.Ctx) error {
	accountID, errMsg := middleware.ValidateUUID(c.Params("id"), "id")
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	n, err := h.seen.Reset(c.Context(), accountID)
	if err != nil {
		return respondError(c, err, "Failed to reset seen set")
	}
	return c.JSON(fiber.Map{"cleared": n})
}

// CompactAffinity handles POST /api/admin/accounts/:id/affinity/compact
func (h *AdminHandler) CompactAffinity(c fiber.Ctx) error {
	accountID, errMsg := middleware.ValidateUUID(c.Params("id"), "id")
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	n, err := h.affinity.Compact(c.Context(), accountID)
	if err != nil {
		return respondError(c, err, "Failed to compact affinity")
	}
	return c.JSON(fiber.Map{"removed": n})
}

// TombstonePicture handles DELETE /api/admin/pictures/:id
func (h *AdminHandler) TombstonePicture(c fiber.Ctx) error {
	pictureID, errMsg := middleware.ValidateUUID(c.Params("id"), "id")
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	if err := h.pictures.Tombstone(c.Context(), pictureID); err != nil {
		return respondError(c, err, "Failed to delete picture")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Majkoo/PicturesApi/internal/middleware"
	"github.com/Majkoo/PicturesApi/internal/service"
)

const defaultFeedPageSize = 10

type FeedHandler struct {
	svc *service.FeedService
}

func NewFeedHandler(svc *service.FeedService) *FeedHandler {
	return &FeedHandler{svc: svc}
}

// Get handles GET /api/feed?pageSize=N
func (h *FeedHandler) Get(c fiber.Ctx) error {
	accountID, errMsg := middleware.AccountFromHeader(c)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	pageSize, errMsg := middleware.ValidateInt(c.Query("pageSize"), "pageSize", defaultFeedPageSize)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	page, err := h.svc.GetFeed(c.Context(), accountID, pageSize)
	if err != nil {
		return respondError(c, err, "Failed to build feed")
	}
	return c.JSON(page)
}

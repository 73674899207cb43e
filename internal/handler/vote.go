package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Majkoo/PicturesApi/internal/middleware"
	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/internal/service"
)

type VoteHandler struct {
	svc *service.VoteService
}

func NewVoteHandler(svc *service.VoteService) *VoteHandler {
	return &VoteHandler{svc: svc}
}

// VoteUp handles PATCH /api/pictures/:id/voteup
func (h *VoteHandler) VoteUp(c fiber.Ctx) error {
	return h.byPath(c, model.Like)
}

// VoteDown handles PATCH /api/pictures/:id/votedown
func (h *VoteHandler) VoteDown(c fiber.Ctx) error {
	return h.byPath(c, model.Dislike)
}

func (h *VoteHandler) byPath(c fiber.Ctx, polarity model.Polarity) error {
	accountID, errMsg := middleware.AccountFromHeader(c)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	pictureID, errMsg := middleware.ValidateUUID(c.Params("id"), "id")
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	return h.set(c, accountID, pictureID, polarity)
}

// Submit handles POST /api/votes
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	accountID, errMsg := middleware.AccountFromHeader(c)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	if errMsg := middleware.ValidateStruct(req); errMsg != "" {
		return badRequest(c, errMsg)
	}
	pictureID, errMsg := middleware.ValidateUUID(req.PictureID, "pictureId")
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	return h.set(c, accountID, pictureID, model.Polarity(req.Polarity))
}

func (h *VoteHandler) set(c fiber.Ctx, accountID, pictureID uuid.UUID, polarity model.Polarity) error {
	res, err := h.svc.SetVote(c.Context(), accountID, pictureID, polarity)
	if err != nil {
		return respondError(c, err, "Failed to record vote")
	}
	return c.JSON(res)
}

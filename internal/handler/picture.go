package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Majkoo/PicturesApi/internal/middleware"
	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/internal/service"
)

const defaultListingTake = 20

type PictureHandler struct {
	listing *service.ListingService
	votes   *service.VoteService
}

func NewPictureHandler(listing *service.ListingService, votes *service.VoteService) *PictureHandler {
	return &PictureHandler{listing: listing, votes: votes}
}

// List handles GET /api/pictures?mode=&skip=&take=&search=
func (h *PictureHandler) List(c fiber.Ctx) error {
	skip, errMsg := middleware.ValidateInt(c.Query("skip"), "skip", 0)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	take, errMsg := middleware.ValidateInt(c.Query("take"), "take", defaultListingTake)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	search, errMsg := middleware.ValidateSearch(c.Query("search"))
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	page, err := h.listing.GetGlobalListing(c.Context(), model.ListingQuery{
		Mode:   model.ListingMode(c.Query("mode")),
		Skip:   skip,
		Take:   take,
		Search: search,
	})
	if err != nil {
		return respondError(c, err, "Failed to list pictures")
	}
	return c.JSON(page)
}

// Votes handles GET /api/pictures/:id/votes?polarity=&limit=
func (h *PictureHandler) Votes(c fiber.Ctx) error {
	pictureID, errMsg := middleware.ValidateUUID(c.Params("id"), "id")
	if errMsg != "" {
		return badRequest(c, errMsg)
	}
	limit, errMsg := middleware.ValidateInt(c.Query("limit"), "limit", 0)
	if errMsg != "" {
		return badRequest(c, errMsg)
	}

	votes, err := h.votes.ListVotes(c.Context(), pictureID, model.Polarity(c.Query("polarity")), limit)
	if err != nil {
		return respondError(c, err, "Failed to list votes")
	}
	return c.JSON(votes)
}

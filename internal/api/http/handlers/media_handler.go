package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/media-locator/internal/api/dto"
	"github.com/spec-kit/media-locator/internal/catalog"
	"github.com/spec-kit/media-locator/internal/service"
	apperrors "github.com/spec-kit/media-locator/pkg/util"
)

// MediaHandler exposes catalog search and detail endpoints.
type MediaHandler struct {
	search *service.SearchService
}

// NewMediaHandler constructs handler.
func NewMediaHandler(search *service.SearchService) *MediaHandler {
	return &MediaHandler{search: search}
}

// SearchImages GET /media/images.
func (h *MediaHandler) SearchImages(c *fiber.Ctx) error {
	req, err := parseSearchQuery(c)
	if err != nil {
		return err
	}
	page, err := h.search.SearchImages(c.UserContext(), req.Query, searchOptions(req))
	if err != nil {
		return apperrors.NewBadGateway("image search failed", err)
	}
	return c.JSON(fiber.Map{"data": page})
}

// SearchAudio GET /media/audio.
func (h *MediaHandler) SearchAudio(c *fiber.Ctx) error {
	req, err := parseSearchQuery(c)
	if err != nil {
		return err
	}
	page, err := h.search.SearchAudio(c.UserContext(), req.Query, searchOptions(req))
	if err != nil {
		return apperrors.NewBadGateway("audio search failed", err)
	}
	return c.JSON(fiber.Map{"data": page})
}

// GetImageDetail GET /media/images/:id.
func (h *MediaHandler) GetImageDetail(c *fiber.Ctx) error {
	item, err := h.search.GetImageDetail(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return apperrors.NewNotFound("image", nil)
		}
		return apperrors.NewBadGateway("image detail lookup failed", err)
	}
	return c.JSON(fiber.Map{"data": item})
}

// GetAudioDetail GET /media/audio/:id.
func (h *MediaHandler) GetAudioDetail(c *fiber.Ctx) error {
	item, err := h.search.GetAudioDetail(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return apperrors.NewNotFound("audio", nil)
		}
		return apperrors.NewBadGateway("audio detail lookup failed", err)
	}
	return c.JSON(fiber.Map{"data": item})
}

// Daily GET /media/daily.
func (h *MediaHandler) Daily(c *fiber.Ctx) error {
	picks, err := h.search.DailyMedia(c.UserContext())
	if err != nil {
		return apperrors.NewBadGateway("daily media lookup failed", err)
	}
	return c.JSON(fiber.Map{"data": picks})
}

func parseSearchQuery(c *fiber.Ctx) (dto.MediaSearchRequest, error) {
	var req dto.MediaSearchRequest
	if err := c.QueryParser(&req); err != nil {
		return req, apperrors.NewValidationError("invalid query", nil)
	}
	if err := req.Validate(); err != nil {
		return req, apperrors.NewValidationError(err.Error(), nil)
	}
	return req, nil
}

func searchOptions(req dto.MediaSearchRequest) catalog.SearchOptions {
	return catalog.SearchOptions{
		License:     req.License,
		LicenseType: req.LicenseType,
		Categories:  req.Categories,
		PageSize:    req.PageSize,
		Page:        req.Page,
	}
}

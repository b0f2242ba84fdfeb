package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/media-locator/internal/api/dto"
	"github.com/spec-kit/media-locator/internal/auth"
	"github.com/spec-kit/media-locator/internal/domain"
	"github.com/spec-kit/media-locator/internal/service"
	apperrors "github.com/spec-kit/media-locator/pkg/util"
)

// HistoryHandler exposes search-history endpoints.
type HistoryHandler struct {
	search *service.SearchService
}

// NewHistoryHandler constructs handler.
func NewHistoryHandler(search *service.SearchService) *HistoryHandler {
	return &HistoryHandler{search: search}
}

// Add POST /history.
func (h *HistoryHandler) Add(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return apperrors.NewUnauthorized("account required")
	}
	var req dto.AddHistoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	result, err := h.search.AddSearchHistory(c.UserContext(), principal.Account.ID, principal.Account.Email, req.SearchID, domain.SearchType(req.SearchType))
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Delete DELETE /history/:id.
func (h *HistoryHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return apperrors.NewUnauthorized("account required")
	}

	result, err := h.search.DeleteSearchHistory(c.UserContext(), c.Params("id"), principal.Account.ID, principal.Account.Email)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return c.Status(fiber.StatusNotFound).JSON(result)
	}
	return c.JSON(result)
}

// ListMine GET /history.
func (h *HistoryHandler) ListMine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return apperrors.NewUnauthorized("account required")
	}

	page, err := h.search.UsersSearchHistory(c.UserContext(), principal.Account.ID, parseHistoryFilter(c, false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": page})
}

// ListAll GET /admin/history. Admin-only cross-account listing.
func (h *HistoryHandler) ListAll(c *fiber.Ctx) error {
	page, err := h.search.AdminSearchHistory(c.UserContext(), parseHistoryFilter(c, true))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": page})
}

func parseHistoryFilter(c *fiber.Ctx, admin bool) domain.HistoryFilter {
	filter := domain.HistoryFilter{
		Title:     c.Query("title"),
		Ascending: c.QueryBool("ascending"),
		Page:      c.QueryInt("page", 1),
	}
	if start := parseDate(c.Query("start_date")); start != nil {
		filter.StartDate = start
	}
	if end := parseDate(c.Query("end_date")); end != nil {
		filter.EndDate = end
	}
	if admin {
		filter.Email = c.Query("email")
		if status := c.Query("status"); status != "" {
			filter.Status = domain.HistoryStatus(status)
		}
	}
	return filter
}

func parseDate(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		if t, err = time.Parse("2006-01-02", val); err != nil {
			return nil
		}
	}
	return &t
}

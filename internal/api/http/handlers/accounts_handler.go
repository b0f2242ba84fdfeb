package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/media-locator/internal/api/dto"
	"github.com/spec-kit/media-locator/internal/auth"
	"github.com/spec-kit/media-locator/internal/domain"
	"github.com/spec-kit/media-locator/internal/events"
	"github.com/spec-kit/media-locator/internal/service"
	apperrors "github.com/spec-kit/media-locator/pkg/util"
)

// AccountsHandler manages self-service and administrative account endpoints.
type AccountsHandler struct {
	identity   *service.IdentityService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(identity *service.IdentityService, dispatcher events.Dispatcher, logger *zap.Logger) *AccountsHandler {
	return &AccountsHandler{identity: identity, dispatcher: dispatcher, logger: logger}
}

// ChangePassword POST /accounts/change-password.
func (h *AccountsHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return apperrors.NewUnauthorized("account required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	result, email, err := h.identity.ChangePassword(c.UserContext(), principal.Account.ID, req.NewPassword)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}

	h.publish(c, events.Event{
		Type:    events.EventPasswordChanged,
		Email:   email,
		Subject: "Your password was changed",
	})
	return c.JSON(result)
}

// Deactivate POST /accounts/deactivate. Self-service account deactivation.
func (h *AccountsHandler) Deactivate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return apperrors.NewUnauthorized("account required")
	}

	result, email, err := h.identity.DeactivateAccount(c.UserContext(), principal.Account.ID, principal.Account.Email)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}

	h.publish(c, events.Event{
		Type:    events.EventAccountDeactivated,
		Email:   email,
		Subject: "Your account was deactivated",
	})
	return c.JSON(result)
}

// AdminActivate POST /admin/accounts/:id/activate.
func (h *AccountsHandler) AdminActivate(c *fiber.Ctx) error {
	actor, err := actorEmail(c)
	if err != nil {
		return err
	}
	result, err := h.identity.ActivateAccount(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}
	return c.JSON(result)
}

// AdminDeactivate POST /admin/accounts/:id/deactivate.
func (h *AccountsHandler) AdminDeactivate(c *fiber.Ctx) error {
	actor, err := actorEmail(c)
	if err != nil {
		return err
	}
	result, email, err := h.identity.DeactivateAccount(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}

	h.publish(c, events.Event{
		Type:    events.EventAccountDeactivated,
		Email:   email,
		Subject: "Your account was deactivated",
	})
	return c.JSON(result)
}

// AdminChangeRole POST /admin/accounts/:id/role.
func (h *AccountsHandler) AdminChangeRole(c *fiber.Ctx) error {
	actor, err := actorEmail(c)
	if err != nil {
		return err
	}
	var req dto.ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	result, err := h.identity.ChangeUserRole(c.UserContext(), c.Params("id"), domain.Role(req.Role), actor)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}
	return c.JSON(result)
}

// AdminDelete DELETE /admin/accounts/:id.
func (h *AccountsHandler) AdminDelete(c *fiber.Ctx) error {
	actor, err := actorEmail(c)
	if err != nil {
		return err
	}
	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.identity.DeleteAccount(c.UserContext(), c.Params("id"), req.IsPermanent, actor)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}
	return c.JSON(result)
}

func actorEmail(c *fiber.Ctx) (string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Account == nil {
		return "", apperrors.NewUnauthorized("account required")
	}
	return principal.Account.Email, nil
}

func (h *AccountsHandler) publish(c *fiber.Ctx, event events.Event) {
	if h.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	if err := h.dispatcher.Publish(c.UserContext(), event); err != nil {
		h.logger.Warn("event publish failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

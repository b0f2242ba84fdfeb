package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/media-locator/internal/api/dto"
	"github.com/spec-kit/media-locator/internal/domain"
	"github.com/spec-kit/media-locator/internal/events"
	"github.com/spec-kit/media-locator/internal/service"
	apperrors "github.com/spec-kit/media-locator/pkg/util"
)

// AuthHandler manages signup, sign-in and token lifecycle endpoints.
type AuthHandler struct {
	identity   *service.IdentityService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(identity *service.IdentityService, dispatcher events.Dispatcher, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, dispatcher: dispatcher, logger: logger}
}

// Signup POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	result, activationToken := h.identity.SignUp(c.UserContext(), req.EmailAddress, req.Password, req.FirstName, req.LastName, req.PhoneNumber)
	if !result.Succeeded {
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}

	// The service reports the new account id in the message; the activation
	// link is dispatched out of band and the id never leaks to the caller.
	accountID := result.Message
	h.publish(c, events.Event{
		Type:    events.EventSignupActivation,
		Email:   req.EmailAddress,
		Subject: "Activate your account",
		Data: map[string]string{
			"user_id":          accountID,
			"activation_token": activationToken,
		},
	})

	return c.Status(fiber.StatusCreated).JSON(domain.Success("Signup successful. Please check your mail for activation link."))
}

// VerifySignup POST /auth/verify-signup.
func (h *AuthHandler) VerifySignup(c *fiber.Ctx) error {
	var req dto.VerifySignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	result, email, err := h.identity.VerifySignup(c.UserContext(), req.UserID, req.ActivationToken)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}

	h.publish(c, events.Event{
		Type:    events.EventSignupCompleted,
		Email:   email,
		Subject: "Welcome aboard",
	})
	return c.JSON(result)
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	result, err := h.identity.SignIn(c.UserContext(), req.EmailAddress, req.Password)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		for _, reason := range result.Errors {
			if reason == service.ErrAccountLocked {
				h.publish(c, events.Event{
					Type:    events.EventAccountLocked,
					Email:   req.EmailAddress,
					Subject: "Account locked",
				})
				break
			}
		}
		return c.Status(fiber.StatusUnauthorized).JSON(result)
	}

	h.publish(c, events.Event{
		Type:    events.EventSignInSuccess,
		Email:   req.EmailAddress,
		Subject: "New sign-in to your account",
	})
	return c.JSON(result)
}

// RefreshToken POST /auth/refresh-token.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	result, err := h.identity.Refresh(c.UserContext(), req.EncryptedToken)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return c.Status(fiber.StatusUnauthorized).JSON(result)
	}
	return c.JSON(result)
}

// RevokeToken POST /auth/revoke-token.
func (h *AuthHandler) RevokeToken(c *fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	result, err := h.identity.Revoke(c.UserContext(), req.EncryptedToken)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return c.Status(fiber.StatusUnauthorized).JSON(result)
	}
	return c.JSON(result)
}

func (h *AuthHandler) publish(c *fiber.Ctx, event events.Event) {
	if h.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	if err := h.dispatcher.Publish(c.UserContext(), event); err != nil {
		h.logger.Warn("event publish failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

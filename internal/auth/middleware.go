package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/media-locator/internal/domain"
	"github.com/spec-kit/media-locator/internal/repository"
	apperrors "github.com/spec-kit/media-locator/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Account *domain.Account
	Claims  *Claims
}

// IsAdmin reports whether the caller carries the Admin role.
func (p *Principal) IsAdmin() bool {
	return p.Claims != nil && p.Claims.HasRole(domain.RoleAdmin)
}

// AuthMiddleware validates bearer tokens and loads the account principal.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.AccountStore
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.AccountStore) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

// Handle enforces authentication for protected routes. Only accounts in
// Active status pass; everything else reads as an invalid credential.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseAccessToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	account, err := m.accounts.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("invalid token")
		}
		return apperrors.MapError(err)
	}
	if account.Status != domain.AccountStatusActive {
		return apperrors.NewUnauthorized("account is not active")
	}

	c.Locals(principalKey, &Principal{Account: account, Claims: claims})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

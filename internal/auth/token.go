package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/media-locator/internal/config"
	"github.com/spec-kit/media-locator/internal/domain"
)

// Clock supplies the current time. Injectable so token expiry is
// deterministic under test.
type Clock func() time.Time

// TokenManager issues and validates signed access tokens and pairs them with
// encrypted refresh tokens produced by the embedded protector.
type TokenManager struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	protector *RefreshProtector
	activator *RefreshProtector
	now       Clock
}

// NewTokenManager builds a manager from auth configuration.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	now := time.Now
	return &TokenManager{
		secret:    []byte(cfg.JWTSecret),
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		accessTTL: cfg.AccessTokenTTL(),
		protector: NewRefreshProtector(cfg.JWTSecret, "refresh", cfg.RefreshTokenTTL(), now),
		activator: NewRefreshProtector(cfg.JWTSecret, "activation", cfg.ActivationTokenTTL(), now),
		now:       now,
	}
}

// WithClock replaces the time source on the manager and its protectors.
func (tm *TokenManager) WithClock(now Clock) *TokenManager {
	tm.now = now
	tm.protector.now = now
	tm.activator.now = now
	return tm
}

// Claims describes the JWT payload for an authenticated account.
type Claims struct {
	SessionID  string            `json:"sid"`
	Email      string            `json:"email"`
	GivenName  string            `json:"given_name"`
	FamilyName string            `json:"family_name"`
	Roles      []string          `json:"roles,omitempty"`
	Extra      map[string]string `json:"ext,omitempty"`
	jwt.RegisteredClaims
}

// IssueAccessToken builds a signed access token plus a fresh refresh token for
// the account. ExpiresIn is exact to the second relative to issuance.
func (tm *TokenManager) IssueAccessToken(account *domain.Account, userClaims []domain.Claim, roles []domain.Role) (domain.AccessToken, error) {
	issuedAt := tm.now().UTC()
	expiresAt := issuedAt.Add(tm.accessTTL)

	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, string(role))
	}
	var extra map[string]string
	if len(userClaims) > 0 {
		extra = make(map[string]string, len(userClaims))
		for _, claim := range userClaims {
			extra[claim.Type] = claim.Value
		}
	}

	claims := &Claims{
		SessionID:  uuid.NewString(),
		Email:      account.Email,
		GivenName:  account.FirstName,
		FamilyName: account.LastName,
		Roles:      roleNames,
		Extra:      extra,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			ID:        uuid.NewString(),
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return domain.AccessToken{}, err
	}

	refresh, err := tm.IssueRefreshToken(account.ID)
	if err != nil {
		return domain.AccessToken{}, err
	}

	return domain.AccessToken{
		AccessToken:  signed,
		RefreshToken: refresh,
		ExpiresIn:    int64(expiresAt.Sub(issuedAt).Seconds()),
	}, nil
}

// IssueRefreshToken produces an encrypted opaque refresh token bound to the
// account id.
func (tm *TokenManager) IssueRefreshToken(accountID string) (string, error) {
	return tm.protector.Issue(accountID)
}

// UnprotectRefreshToken reverses IssueRefreshToken, returning the random part
// and the account id. Any malformed, tampered or expired token yields
// ErrTokenInvalid.
func (tm *TokenManager) UnprotectRefreshToken(encrypted string) (string, string, error) {
	return tm.protector.Unprotect(encrypted)
}

// IssueActivationToken produces the opaque signup activation token for an account.
func (tm *TokenManager) IssueActivationToken(accountID string) (string, error) {
	return tm.activator.Issue(accountID)
}

// ValidateActivationToken checks an activation token against the account it
// was issued for.
func (tm *TokenManager) ValidateActivationToken(accountID, token string) error {
	_, subject, err := tm.activator.Unprotect(token)
	if err != nil {
		return err
	}
	if subject != accountID {
		return ErrTokenInvalid
	}
	return nil
}

// ParseAccessToken validates a signed access token and returns its claims.
func (tm *TokenManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return tm.now() }))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// HasRole reports whether the claim set carries the given role.
func (c *Claims) HasRole(role domain.Role) bool {
	for _, r := range c.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/media-locator/internal/auth"
	"github.com/spec-kit/media-locator/internal/config"
	"github.com/spec-kit/media-locator/internal/domain"
	"github.com/spec-kit/media-locator/internal/repository"
)

// Caller-visible result messages. Authentication failures share one generic
// message so responses never reveal whether an email is registered.
const (
	MsgLoginFailed        = "Invalid login attempt"
	MsgAccessTokenIssued  = "Access token generated"
	MsgTokenRefreshFailed = "Token refresh failed"

	ErrAccountLocked      = "Account is temporarily locked, try again later"
	ErrCompleteSignup     = "Please complete account sign up"
	ErrInvalidCredentials = "Invalid username or password"
	ErrAccountNotActive   = "Account is not active"
	ErrInvalidToken       = "Invalid token"
)

// Baseline claim granted to every new account.
var baselineClaim = domain.Claim{Type: "permission", Value: "media.search"}

// IdentityService orchestrates account lifecycle and credential issuance.
// Expected business outcomes are encoded in Result values; only unexpected
// store failures are returned as errors.
type IdentityService struct {
	accounts      repository.AccountStore
	tokens        *auth.TokenManager
	logger        *zap.Logger
	bcryptCost    int
	maxAttempts   int
	lockoutWindow time.Duration
	now           auth.Clock
}

// NewIdentityService builds the service.
func NewIdentityService(cfg config.AuthConfig, accounts repository.AccountStore, tokens *auth.TokenManager, logger *zap.Logger) *IdentityService {
	return &IdentityService{
		accounts:      accounts,
		tokens:        tokens,
		logger:        logger,
		bcryptCost:    cfg.BcryptCost,
		maxAttempts:   cfg.LockoutMaxAttempts,
		lockoutWindow: cfg.LockoutWindow(),
		now:           time.Now,
	}
}

// WithClock replaces the time source, for deterministic tests.
func (s *IdentityService) WithClock(now auth.Clock) *IdentityService {
	s.now = now
	return s
}

// SignUp creates a Pending account, grants the User role and baseline claim,
// and returns the activation token for the caller to dispatch. Partial
// failures roll the account back so no role-less account survives.
func (s *IdentityService) SignUp(ctx context.Context, email, password, firstName, lastName, phone string) (domain.Result, string) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return domain.Failure("Failed to create account", err.Error()), ""
	}

	account := &domain.Account{
		Email:          email,
		FirstName:      firstName,
		LastName:       lastName,
		PhoneNumber:    phone,
		PasswordHash:   hash,
		EmailConfirmed: false,
		Status:         domain.AccountStatusPending,
		LockoutEnabled: true,
		CreatedBy:      email,
		ModifiedBy:     email,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		s.logger.Warn("account creation failed", zap.String("email", email), zap.Error(err))
		return domain.Failure("Failed to create account", "Email may already be registered"), ""
	}

	if err := s.accounts.AddRole(ctx, account.ID, domain.RoleUser); err != nil {
		s.compensate(ctx, account.ID, false)
		return domain.Failure("Failed to create account", "Role assignment failed"), ""
	}

	if err := s.accounts.AddClaim(ctx, account.ID, baselineClaim); err != nil {
		s.compensate(ctx, account.ID, true)
		return domain.Failure("Failed to create account", "Claim assignment failed"), ""
	}

	token, err := s.tokens.IssueActivationToken(account.ID)
	if err != nil {
		s.compensate(ctx, account.ID, true)
		return domain.Failure("Failed to create account", "Activation token generation failed"), ""
	}

	// The account id travels in the message so the caller can build the
	// activation link.
	return domain.Success(account.ID), token
}

func (s *IdentityService) compensate(ctx context.Context, accountID string, removeRole bool) {
	if removeRole {
		if err := s.accounts.RemoveRole(ctx, accountID, domain.RoleUser); err != nil {
			s.logger.Error("signup rollback: role removal failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		s.logger.Error("signup rollback: account delete failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

// VerifySignup validates the activation token and moves a Pending account to
// Active. A second verification attempt is rejected, not silently accepted.
// Returns the account email for downstream notification.
func (s *IdentityService) VerifySignup(ctx context.Context, accountID, activationToken string) (domain.Result, string, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Failure("Account verification failed", "Account not found"), "", nil
		}
		return domain.Result{}, "", err
	}

	if account.EmailConfirmed {
		return domain.Failure("Account verification failed", "Account is already activated"), "", nil
	}
	if account.Status != domain.AccountStatusPending {
		return domain.Failure("Account verification failed", "Account cannot be activated"), "", nil
	}
	if err := s.tokens.ValidateActivationToken(accountID, activationToken); err != nil {
		return domain.Failure("Account verification failed", "Activation token is invalid or expired"), "", nil
	}

	account.EmailConfirmed = true
	account.Status = domain.AccountStatusActive
	account.ModifiedBy = account.Email
	if err := s.accounts.Update(ctx, account); err != nil {
		return domain.Result{}, "", err
	}
	return domain.Success("Account activated successfully"), account.Email, nil
}

// SignIn authenticates by email and password, enforcing lockout and account
// state, and issues an access/refresh token pair on success.
func (s *IdentityService) SignIn(ctx context.Context, username, password string) (domain.LoginResult, error) {
	account, err := s.accounts.GetByEmail(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Same message class as a bad password: no account enumeration.
			return domain.LoginFailure(MsgLoginFailed, ErrInvalidCredentials), nil
		}
		return domain.LoginResult{}, err
	}

	now := s.now().UTC()
	if account.LockedOut(now) {
		return domain.LoginFailure(MsgLoginFailed, ErrAccountLocked), nil
	}
	if !account.EmailConfirmed {
		return domain.LoginFailure(MsgLoginFailed, ErrCompleteSignup), nil
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		locked, err := s.recordFailedAttempt(ctx, account, now)
		if err != nil {
			return domain.LoginResult{}, err
		}
		if locked {
			return domain.LoginFailure(MsgLoginFailed, ErrAccountLocked), nil
		}
		return domain.LoginFailure(MsgLoginFailed, ErrInvalidCredentials), nil
	}

	if account.Status != domain.AccountStatusActive {
		return domain.LoginFailure(MsgLoginFailed, ErrAccountNotActive), nil
	}

	if account.FailedAttempts > 0 || account.LockoutUntil != nil {
		account.FailedAttempts = 0
		account.LockoutUntil = nil
		if err := s.accounts.Update(ctx, account); err != nil {
			return domain.LoginResult{}, err
		}
	}

	payload, err := s.issueCredentials(ctx, account)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if err := s.accounts.SetRefreshToken(ctx, account.ID, payload.AccessToken.RefreshToken); err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginSuccess(MsgAccessTokenIssued, payload), nil
}

func (s *IdentityService) recordFailedAttempt(ctx context.Context, account *domain.Account, now time.Time) (bool, error) {
	account.FailedAttempts++
	locked := false
	if account.LockoutEnabled && account.FailedAttempts >= s.maxAttempts {
		until := now.Add(s.lockoutWindow)
		account.LockoutUntil = &until
		account.FailedAttempts = 0
		locked = true
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return false, err
	}
	if locked {
		s.logger.Info("account locked out", zap.String("account_id", account.ID))
	}
	return locked, nil
}

func (s *IdentityService) issueCredentials(ctx context.Context, account *domain.Account) (domain.LoginPayload, error) {
	claims, err := s.accounts.GetClaims(ctx, account.ID)
	if err != nil {
		return domain.LoginPayload{}, err
	}
	roles, err := s.accounts.GetRoles(ctx, account.ID)
	if err != nil {
		return domain.LoginPayload{}, err
	}
	accessToken, err := s.tokens.IssueAccessToken(account, claims, roles)
	if err != nil {
		return domain.LoginPayload{}, err
	}
	return domain.LoginPayload{AccessToken: accessToken}, nil
}

// Refresh rotates the refresh token: the presented token must match the
// stored slot exactly, and the swap is conditional so a concurrent rotation
// has at most one winner.
func (s *IdentityService) Refresh(ctx context.Context, encryptedToken string) (domain.LoginResult, error) {
	account, result, err := s.resolveRefreshToken(ctx, encryptedToken)
	if account == nil {
		return domain.LoginResult{Result: result}, err
	}

	payload, err := s.issueCredentials(ctx, account)
	if err != nil {
		return domain.LoginResult{}, err
	}

	err = s.accounts.SwapRefreshToken(ctx, account.ID, encryptedToken, payload.AccessToken.RefreshToken)
	if errors.Is(err, repository.ErrRefreshTokenConflict) {
		return domain.LoginFailure(MsgTokenRefreshFailed, ErrInvalidToken), nil
	}
	if err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginSuccess(MsgAccessTokenIssued, payload), nil
}

// Revoke deletes the stored refresh token (logout). The presented token must
// match the stored one.
func (s *IdentityService) Revoke(ctx context.Context, encryptedToken string) (domain.Result, error) {
	account, result, err := s.resolveRefreshToken(ctx, encryptedToken)
	if account == nil {
		return result, err
	}

	err = s.accounts.SwapRefreshToken(ctx, account.ID, encryptedToken, "")
	if errors.Is(err, repository.ErrRefreshTokenConflict) {
		return domain.Failure(MsgTokenRefreshFailed, ErrInvalidToken), nil
	}
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Success("Token revoked"), nil
}

// resolveRefreshToken performs the shared decrypt/load/state/match checks for
// Refresh and Revoke. A nil account means the returned result (or error) is
// final.
func (s *IdentityService) resolveRefreshToken(ctx context.Context, encryptedToken string) (*domain.Account, domain.Result, error) {
	_, accountID, err := s.tokens.UnprotectRefreshToken(encryptedToken)
	if err != nil {
		return nil, domain.Failure(MsgTokenRefreshFailed, ErrInvalidToken), nil
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Failure(MsgTokenRefreshFailed, ErrInvalidToken), nil
		}
		return nil, domain.Result{}, err
	}
	if account.Status != domain.AccountStatusActive {
		return nil, domain.Failure(MsgTokenRefreshFailed, ErrAccountNotActive), nil
	}
	if account.RefreshToken == "" || account.RefreshToken != encryptedToken {
		// Stale or already rotated token.
		return nil, domain.Failure(MsgTokenRefreshFailed, ErrInvalidToken), nil
	}
	return account, domain.Result{}, nil
}

// ChangePassword rehashes the password for the authenticated account.
// Identity comes from the caller's credentials, not a re-entered password.
// The stored refresh token is cleared so cached sessions must re-authenticate.
func (s *IdentityService) ChangePassword(ctx context.Context, accountID, newPassword string) (domain.Result, string, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Failure("Password change failed", "Account not found"), "", nil
		}
		return domain.Result{}, "", err
	}
	if account.Status != domain.AccountStatusActive {
		return domain.Failure("Password change failed", ErrAccountNotActive), "", nil
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return domain.Result{}, "", err
	}
	account.PasswordHash = hash
	account.ModifiedBy = account.Email
	if err := s.accounts.Update(ctx, account); err != nil {
		return domain.Result{}, "", err
	}
	if err := s.accounts.RemoveRefreshToken(ctx, account.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, "", err
	}
	return domain.Success("Password changed successfully"), account.Email, nil
}

// DeactivateAccount moves an Active account to Inactive and clears its
// session. actor stamps the audit trail; for self-service it is the account's
// own email. Returns the email for the farewell notification.
func (s *IdentityService) DeactivateAccount(ctx context.Context, accountID, actor string) (domain.Result, string, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Failure("Account deactivation failed", "Account not found"), "", nil
		}
		return domain.Result{}, "", err
	}
	if account.Status != domain.AccountStatusActive {
		return domain.Failure("Account deactivation failed", ErrAccountNotActive), "", nil
	}

	account.Status = domain.AccountStatusInactive
	account.ModifiedBy = actor
	if err := s.accounts.Update(ctx, account); err != nil {
		return domain.Result{}, "", err
	}
	if err := s.accounts.RemoveRefreshToken(ctx, account.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, "", err
	}
	return domain.Success("Account deactivated"), account.Email, nil
}

// ActivateAccount is the administrative activation action. Fails when the
// account is already Active or Deleted.
func (s *IdentityService) ActivateAccount(ctx context.Context, accountID, actor string) (domain.Result, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Failure("Account activation failed", "Account not found"), nil
		}
		return domain.Result{}, err
	}
	if account.Status == domain.AccountStatusActive {
		return domain.Failure("Account activation failed", "Account is already active"), nil
	}
	if account.Status == domain.AccountStatusDeleted {
		return domain.Failure("Account activation failed", "Account has been deleted"), nil
	}

	account.Status = domain.AccountStatusActive
	account.EmailConfirmed = true
	account.ModifiedBy = actor
	if err := s.accounts.Update(ctx, account); err != nil {
		return domain.Result{}, err
	}
	return domain.Success("Account activated"), nil
}

// ChangeUserRole replaces the account's role assignment with the given role.
func (s *IdentityService) ChangeUserRole(ctx context.Context, accountID string, role domain.Role, actor string) (domain.Result, error) {
	if !domain.ValidRole(role) {
		return domain.Failure("Role change failed", "Supported roles are Admin and User only"), nil
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Failure("Role change failed", "Account not found"), nil
		}
		return domain.Result{}, err
	}

	if err := s.accounts.ReplaceRoles(ctx, account.ID, role); err != nil {
		return domain.Result{}, err
	}
	account.ModifiedBy = actor
	if err := s.accounts.Update(ctx, account); err != nil {
		return domain.Result{}, err
	}
	return domain.Success("Role changed successfully"), nil
}

// DeleteAccount removes an account, softly (status Deleted) or permanently.
// Both variants invalidate the stored refresh token in the same operation.
func (s *IdentityService) DeleteAccount(ctx context.Context, accountID string, permanent bool, actor string) (domain.Result, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Failure("Account deletion failed", "Account not found"), nil
		}
		return domain.Result{}, err
	}

	if permanent {
		if err := s.accounts.Delete(ctx, account.ID); err != nil {
			return domain.Result{}, err
		}
		return domain.Success("Account deleted permanently"), nil
	}

	account.Status = domain.AccountStatusDeleted
	account.ModifiedBy = actor
	if err := s.accounts.Update(ctx, account); err != nil {
		return domain.Result{}, err
	}
	if err := s.accounts.RemoveRefreshToken(ctx, account.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, err
	}
	return domain.Success("Account deleted"), nil
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/media-locator/internal/auth"
	"github.com/spec-kit/media-locator/internal/config"
	"github.com/spec-kit/media-locator/internal/domain"
	"github.com/spec-kit/media-locator/internal/repository"
)

// fakeAccountStore is an in-memory AccountStore. It hands out copies the way a
// row scan would, so service-side mutations only persist through Update.
type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	roles    map[string][]domain.Role
	claims   map[string][]domain.Claim

	failAddRole  bool
	failAddClaim bool
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		accounts: make(map[string]*domain.Account),
		roles:    make(map[string][]domain.Role),
		claims:   make(map[string][]domain.Claim),
	}
}

func (f *fakeAccountStore) Create(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Email == account.Email {
			return pgx.ErrTooManyRows
		}
	}
	account.ID = uuid.NewString()
	account.CreatedAt = time.Now().UTC()
	account.ModifiedAt = account.CreatedAt
	clone := *account
	f.accounts[account.ID] = &clone
	return nil
}

func (f *fakeAccountStore) Update(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.accounts[account.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	clone := *account
	clone.RefreshToken = stored.RefreshToken
	f.accounts[account.ID] = &clone
	return nil
}

func (f *fakeAccountStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.accounts, id)
	delete(f.roles, id)
	delete(f.claims, id)
	return nil
}

func (f *fakeAccountStore) GetByID(_ context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (f *fakeAccountStore) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.accounts {
		if stored.Email == email {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccountStore) GetRefreshToken(_ context.Context, accountID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.accounts[accountID]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return stored.RefreshToken, nil
}

func (f *fakeAccountStore) SetRefreshToken(_ context.Context, accountID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.accounts[accountID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.RefreshToken = token
	return nil
}

func (f *fakeAccountStore) RemoveRefreshToken(_ context.Context, accountID string) error {
	return f.SetRefreshToken(context.Background(), accountID, "")
}

func (f *fakeAccountStore) SwapRefreshToken(_ context.Context, accountID, old, next string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.accounts[accountID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.RefreshToken != old {
		return repository.ErrRefreshTokenConflict
	}
	stored.RefreshToken = next
	return nil
}

func (f *fakeAccountStore) GetRoles(_ context.Context, accountID string) ([]domain.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Role{}, f.roles[accountID]...), nil
}

func (f *fakeAccountStore) AddRole(_ context.Context, accountID string, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAddRole {
		return assert.AnError
	}
	f.roles[accountID] = append(f.roles[accountID], role)
	return nil
}

func (f *fakeAccountStore) RemoveRole(_ context.Context, accountID string, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.roles[accountID][:0]
	for _, r := range f.roles[accountID] {
		if r != role {
			kept = append(kept, r)
		}
	}
	f.roles[accountID] = kept
	return nil
}

func (f *fakeAccountStore) ReplaceRoles(_ context.Context, accountID string, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[accountID] = []domain.Role{role}
	return nil
}

func (f *fakeAccountStore) GetClaims(_ context.Context, accountID string) ([]domain.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Claim{}, f.claims[accountID]...), nil
}

func (f *fakeAccountStore) AddClaim(_ context.Context, accountID string, claim domain.Claim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAddClaim {
		return assert.AnError
	}
	f.claims[accountID] = append(f.claims[accountID], claim)
	return nil
}

type identityFixture struct {
	service *IdentityService
	store   *fakeAccountStore
	tokens  *auth.TokenManager
	current time.Time
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()
	cfg := config.AuthConfig{
		JWTSecret:               "unit-test-secret",
		Issuer:                  "media-locator",
		Audience:                "media-locator-clients",
		AccessTokenTTLMinutes:   15,
		RefreshTokenTTLHours:    8,
		ActivationTokenTTLHours: 24,
		BcryptCost:              4,
		LockoutMaxAttempts:      5,
		LockoutWindowHours:      24,
	}
	fx := &identityFixture{
		store:   newFakeAccountStore(),
		current: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return fx.current }
	fx.tokens = auth.NewTokenManager(cfg).WithClock(clock)
	fx.service = NewIdentityService(cfg, fx.store, fx.tokens, zap.NewNop()).WithClock(clock)
	return fx
}

const testPassword = "Sup3r$ecretPass!"

func (fx *identityFixture) signUp(t *testing.T, email string) (string, string) {
	t.Helper()
	result, token := fx.service.SignUp(context.Background(), email, testPassword, "Alice", "Walker", "+15550100")
	require.True(t, result.Succeeded)
	require.NotEmpty(t, token)
	return result.Message, token
}

func (fx *identityFixture) activeAccount(t *testing.T, email string) string {
	t.Helper()
	accountID, token := fx.signUp(t, email)
	result, _, err := fx.service.VerifySignup(context.Background(), accountID, token)
	require.NoError(t, err)
	require.True(t, result.Succeeded)
	return accountID
}

func TestSignUpCreatesPendingAccount(t *testing.T) {
	fx := newIdentityFixture(t)

	accountID, _ := fx.signUp(t, "alice@example.com")

	account, err := fx.store.GetByID(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusPending, account.Status)
	assert.False(t, account.EmailConfirmed)
	assert.True(t, account.LockoutEnabled)
	assert.NotEqual(t, testPassword, account.PasswordHash)

	roles, err := fx.store.GetRoles(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleUser}, roles)

	claims, err := fx.store.GetClaims(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "permission", claims[0].Type)
}

func TestSignUpDuplicateEmailFails(t *testing.T) {
	fx := newIdentityFixture(t)
	fx.signUp(t, "alice@example.com")

	result, token := fx.service.SignUp(context.Background(), "alice@example.com", testPassword, "Alice", "Walker", "")
	assert.False(t, result.Succeeded)
	assert.Empty(t, token)
}

func TestSignUpRollsBackOnRoleFailure(t *testing.T) {
	fx := newIdentityFixture(t)
	fx.store.failAddRole = true

	result, token := fx.service.SignUp(context.Background(), "alice@example.com", testPassword, "Alice", "Walker", "")
	assert.False(t, result.Succeeded)
	assert.Empty(t, token)

	_, err := fx.store.GetByEmail(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestSignUpRollsBackOnClaimFailure(t *testing.T) {
	fx := newIdentityFixture(t)
	fx.store.failAddClaim = true

	result, _ := fx.service.SignUp(context.Background(), "alice@example.com", testPassword, "Alice", "Walker", "")
	assert.False(t, result.Succeeded)

	_, err := fx.store.GetByEmail(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestVerifySignupActivatesOnce(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID, token := fx.signUp(t, "alice@example.com")

	result, email, err := fx.service.VerifySignup(context.Background(), accountID, token)
	require.NoError(t, err)
	require.True(t, result.Succeeded)
	assert.Equal(t, "alice@example.com", email)

	account, err := fx.store.GetByID(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusActive, account.Status)
	assert.True(t, account.EmailConfirmed)

	// A replayed activation is rejected, not silently accepted.
	result, _, err = fx.service.VerifySignup(context.Background(), accountID, token)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
}

func TestVerifySignupRejectsBadToken(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID, _ := fx.signUp(t, "alice@example.com")

	result, _, err := fx.service.VerifySignup(context.Background(), accountID, "garbage")
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
}

func TestVerifySignupRejectsForeignToken(t *testing.T) {
	fx := newIdentityFixture(t)
	aliceID, _ := fx.signUp(t, "alice@example.com")
	_, bobToken := fx.signUp(t, "bob@example.com")

	result, _, err := fx.service.VerifySignup(context.Background(), aliceID, bobToken)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
}

func TestVerifySignupRejectsExpiredToken(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID, token := fx.signUp(t, "alice@example.com")

	fx.current = fx.current.Add(25 * time.Hour)
	result, _, err := fx.service.VerifySignup(context.Background(), accountID, token)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
}

func TestSignInSucceedsForActiveAccount(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	result, err := fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)
	require.True(t, result.Succeeded)
	require.NotNil(t, result.Data)
	assert.NotEmpty(t, result.Data.AccessToken.AccessToken)
	assert.NotEmpty(t, result.Data.AccessToken.RefreshToken)

	claims, err := fx.tokens.ParseAccessToken(result.Data.AccessToken.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.Subject)
	assert.Contains(t, claims.Roles, "User")

	stored, err := fx.store.GetRefreshToken(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, result.Data.AccessToken.RefreshToken, stored)
}

func TestSignInUnknownEmailIsGenericFailure(t *testing.T) {
	fx := newIdentityFixture(t)

	result, err := fx.service.SignIn(context.Background(), "ghost@example.com", testPassword)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Equal(t, MsgLoginFailed, result.Message)
	assert.Contains(t, result.Errors, ErrInvalidCredentials)
}

func TestSignInRequiresConfirmedEmail(t *testing.T) {
	fx := newIdentityFixture(t)
	fx.signUp(t, "alice@example.com")

	result, err := fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Contains(t, result.Errors, ErrCompleteSignup)
}

func TestSignInRejectsInactiveAccount(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	_, _, err := fx.service.DeactivateAccount(context.Background(), accountID, "alice@example.com")
	require.NoError(t, err)

	result, err := fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Contains(t, result.Errors, ErrAccountNotActive)
}

func TestSignInLockoutAfterRepeatedFailures(t *testing.T) {
	fx := newIdentityFixture(t)
	fx.activeAccount(t, "alice@example.com")

	for i := 0; i < 4; i++ {
		result, err := fx.service.SignIn(context.Background(), "alice@example.com", "wrong-password")
		require.NoError(t, err)
		assert.Contains(t, result.Errors, ErrInvalidCredentials)
	}

	// Fifth failure crosses the threshold.
	result, err := fx.service.SignIn(context.Background(), "alice@example.com", "wrong-password")
	require.NoError(t, err)
	assert.Contains(t, result.Errors, ErrAccountLocked)

	// Even the correct password is refused while locked.
	result, err = fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Contains(t, result.Errors, ErrAccountLocked)

	// The window elapses and the account recovers.
	fx.current = fx.current.Add(25 * time.Hour)
	result, err = fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
}

func TestSignInResetsFailureCountOnSuccess(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	for i := 0; i < 3; i++ {
		_, err := fx.service.SignIn(context.Background(), "alice@example.com", "wrong-password")
		require.NoError(t, err)
	}
	result, err := fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	account, err := fx.store.GetByID(context.Background(), accountID)
	require.NoError(t, err)
	assert.Zero(t, account.FailedAttempts)
	assert.Nil(t, account.LockoutUntil)
}

func TestRefreshRotatesToken(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	login, err := fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)
	first := login.Data.AccessToken.RefreshToken

	refreshed, err := fx.service.Refresh(context.Background(), first)
	require.NoError(t, err)
	require.True(t, refreshed.Succeeded)
	second := refreshed.Data.AccessToken.RefreshToken
	assert.NotEqual(t, first, second)

	stored, err := fx.store.GetRefreshToken(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, second, stored)

	// The superseded token no longer refreshes.
	stale, err := fx.service.Refresh(context.Background(), first)
	require.NoError(t, err)
	assert.False(t, stale.Succeeded)
	assert.Contains(t, stale.Errors, ErrInvalidToken)

	// The latest one still does.
	again, err := fx.service.Refresh(context.Background(), second)
	require.NoError(t, err)
	assert.True(t, again.Succeeded)
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	fx := newIdentityFixture(t)

	result, err := fx.service.Refresh(context.Background(), "garbage")
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Contains(t, result.Errors, ErrInvalidToken)
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	fx := newIdentityFixture(t)
	fx.activeAccount(t, "alice@example.com")

	login, err := fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)

	fx.current = fx.current.Add(9 * time.Hour)
	result, err := fx.service.Refresh(context.Background(), login.Data.AccessToken.RefreshToken)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
}

func TestRevokeThenRefreshFails(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	login, err := fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)
	token := login.Data.AccessToken.RefreshToken

	revoked, err := fx.service.Revoke(context.Background(), token)
	require.NoError(t, err)
	require.True(t, revoked.Succeeded)

	stored, err := fx.store.GetRefreshToken(context.Background(), accountID)
	require.NoError(t, err)
	assert.Empty(t, stored)

	result, err := fx.service.Refresh(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
}

func TestRefreshAfterPasswordChangeFails(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	login, err := fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)

	result, email, err := fx.service.ChangePassword(context.Background(), accountID, "N3w$ecretPass!!!")
	require.NoError(t, err)
	require.True(t, result.Succeeded)
	assert.Equal(t, "alice@example.com", email)

	refreshed, err := fx.service.Refresh(context.Background(), login.Data.AccessToken.RefreshToken)
	require.NoError(t, err)
	assert.False(t, refreshed.Succeeded)

	// Old password is gone, new one works.
	old, err := fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)
	assert.False(t, old.Succeeded)

	fresh, err := fx.service.SignIn(context.Background(), "alice@example.com", "N3w$ecretPass!!!")
	require.NoError(t, err)
	assert.True(t, fresh.Succeeded)
}

func TestDeactivateInvalidatesSession(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	login, err := fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)

	result, email, err := fx.service.DeactivateAccount(context.Background(), accountID, "alice@example.com")
	require.NoError(t, err)
	require.True(t, result.Succeeded)
	assert.Equal(t, "alice@example.com", email)

	refreshed, err := fx.service.Refresh(context.Background(), login.Data.AccessToken.RefreshToken)
	require.NoError(t, err)
	assert.False(t, refreshed.Succeeded)

	// Deactivating twice fails.
	result, _, err = fx.service.DeactivateAccount(context.Background(), accountID, "admin@example.com")
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
}

func TestActivateAccountAdminFlow(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	_, _, err := fx.service.DeactivateAccount(context.Background(), accountID, "admin@example.com")
	require.NoError(t, err)

	result, err := fx.service.ActivateAccount(context.Background(), accountID, "admin@example.com")
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	// Already active.
	result, err = fx.service.ActivateAccount(context.Background(), accountID, "admin@example.com")
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
}

func TestActivateAccountRejectsDeleted(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	result, err := fx.service.DeleteAccount(context.Background(), accountID, false, "admin@example.com")
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	result, err = fx.service.ActivateAccount(context.Background(), accountID, "admin@example.com")
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
}

func TestChangeUserRole(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	result, err := fx.service.ChangeUserRole(context.Background(), accountID, domain.RoleAdmin, "admin@example.com")
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	roles, err := fx.store.GetRoles(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleAdmin}, roles)

	result, err = fx.service.ChangeUserRole(context.Background(), accountID, domain.Role("Root"), "admin@example.com")
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
}

func TestDeleteAccountPermanent(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	result, err := fx.service.DeleteAccount(context.Background(), accountID, true, "admin@example.com")
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	_, err = fx.store.GetByID(context.Background(), accountID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestDeleteAccountSoftKeepsRow(t *testing.T) {
	fx := newIdentityFixture(t)
	accountID := fx.activeAccount(t, "alice@example.com")

	login, err := fx.service.SignIn(context.Background(), "alice@example.com", testPassword)
	require.NoError(t, err)

	result, err := fx.service.DeleteAccount(context.Background(), accountID, false, "admin@example.com")
	require.NoError(t, err)
	require.True(t, result.Succeeded)

	account, err := fx.store.GetByID(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusDeleted, account.Status)

	refreshed, err := fx.service.Refresh(context.Background(), login.Data.AccessToken.RefreshToken)
	require.NoError(t, err)
	assert.False(t, refreshed.Succeeded)
}

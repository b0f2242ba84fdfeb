package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestRefreshProtectorRoundTrip(t *testing.T) {
	protector := NewRefreshProtector("secret", "refresh", time.Hour, nil)

	token, err := protector.Issue("account-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	random, accountID, err := protector.Unprotect(token)
	require.NoError(t, err)
	assert.Equal(t, "account-123", accountID)
	assert.NotEmpty(t, random)
}

func TestRefreshProtectorTokensAreUnique(t *testing.T) {
	protector := NewRefreshProtector("secret", "refresh", time.Hour, nil)

	first, err := protector.Issue("account-123")
	require.NoError(t, err)
	second, err := protector.Issue("account-123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestRefreshProtectorRejectsTampering(t *testing.T) {
	protector := NewRefreshProtector("secret", "refresh", time.Hour, nil)

	token, err := protector.Issue("account-123")
	require.NoError(t, err)

	// Flip a character inside the base64 body.
	tampered := []byte(token)
	if tampered[10] == 'A' {
		tampered[10] = 'B'
	} else {
		tampered[10] = 'A'
	}

	_, _, err = protector.Unprotect(string(tampered))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = protector.Unprotect("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = protector.Unprotect("")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshProtectorExpiry(t *testing.T) {
	issuedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	protector := NewRefreshProtector("secret", "refresh", time.Hour, fixedClock(issuedAt))

	token, err := protector.Issue("account-123")
	require.NoError(t, err)

	// Still valid just before the deadline.
	protector.now = fixedClock(issuedAt.Add(time.Hour - time.Second))
	_, _, err = protector.Unprotect(token)
	require.NoError(t, err)

	// Expired at the deadline.
	protector.now = fixedClock(issuedAt.Add(time.Hour))
	_, _, err = protector.Unprotect(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshProtectorPurposeSeparation(t *testing.T) {
	refresh := NewRefreshProtector("secret", "refresh", time.Hour, nil)
	activation := NewRefreshProtector("secret", "activation", time.Hour, nil)

	token, err := refresh.Issue("account-123")
	require.NoError(t, err)

	_, _, err = activation.Unprotect(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshProtectorSecretSeparation(t *testing.T) {
	first := NewRefreshProtector("secret-one", "refresh", time.Hour, nil)
	second := NewRefreshProtector("secret-two", "refresh", time.Hour, nil)

	token, err := first.Issue("account-123")
	require.NoError(t, err)

	_, _, err = second.Unprotect(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

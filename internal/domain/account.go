package domain

import "time"

// AccountStatus represents lifecycle states for an account.
type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "PENDING"
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
	AccountStatusDeleted  AccountStatus = "DELETED"
)

// Role enumerates the fixed role set.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// ValidRole reports whether the role belongs to the supported set.
func ValidRole(role Role) bool {
	return role == RoleAdmin || role == RoleUser
}

// Account is the domain model for a registered user.
type Account struct {
	ID             string
	Email          string
	FirstName      string
	LastName       string
	PhoneNumber    string
	PasswordHash   string
	EmailConfirmed bool
	Status         AccountStatus

	// Lockout tracking. LockoutUntil is nil when the account is not locked.
	LockoutEnabled bool
	FailedAttempts int
	LockoutUntil   *time.Time

	// Single refresh-token slot. Empty string means no active session.
	RefreshToken string

	CreatedAt  time.Time
	CreatedBy  string
	ModifiedAt time.Time
	ModifiedBy string
}

// LockedOut reports whether the account is within a lockout window.
func (a *Account) LockedOut(now time.Time) bool {
	return a.LockoutEnabled && a.LockoutUntil != nil && now.Before(*a.LockoutUntil)
}

// Claim is an arbitrary key/value claim attached to an account.
type Claim struct {
	Type  string
	Value string
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/media-locator/internal/domain"
)

// ErrRefreshTokenConflict signals that a conditional refresh-token write lost
// against a concurrent rotation. Callers treat it as an invalid token.
var ErrRefreshTokenConflict = errors.New("refresh token slot changed concurrently")

// AccountStore defines persistence access for accounts, their roles and
// claims, and the single refresh-token slot per account.
type AccountStore interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	GetRefreshToken(ctx context.Context, accountID string) (string, error)
	SetRefreshToken(ctx context.Context, accountID, token string) error
	RemoveRefreshToken(ctx context.Context, accountID string) error
	// SwapRefreshToken replaces the slot only if it still holds old,
	// returning ErrRefreshTokenConflict otherwise.
	SwapRefreshToken(ctx context.Context, accountID, old, next string) error

	GetRoles(ctx context.Context, accountID string) ([]domain.Role, error)
	AddRole(ctx context.Context, accountID string, role domain.Role) error
	RemoveRole(ctx context.Context, accountID string, role domain.Role) error
	ReplaceRoles(ctx context.Context, accountID string, role domain.Role) error

	GetClaims(ctx context.Context, accountID string) ([]domain.Claim, error)
	AddClaim(ctx context.Context, accountID string, claim domain.Claim) error
}

type accountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore returns a Postgres-backed implementation.
func NewAccountStore(pool *pgxpool.Pool) AccountStore {
	return &accountStore{pool: pool}
}

const accountColumns = `
        id, email, first_name, last_name, phone_number, password_hash,
        email_confirmed, status, lockout_enabled, failed_attempts, lockout_until,
        COALESCE(refresh_token, ''), created_at, created_by, modified_at, modified_by`

func (r *accountStore) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (email, first_name, last_name, phone_number, password_hash,
                              email_confirmed, status, lockout_enabled, created_by, modified_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, modified_at`

	return r.pool.QueryRow(ctx, query,
		account.Email,
		account.FirstName,
		account.LastName,
		account.PhoneNumber,
		account.PasswordHash,
		account.EmailConfirmed,
		account.Status,
		account.LockoutEnabled,
		account.CreatedBy,
		account.ModifiedBy,
	).Scan(&account.ID, &account.CreatedAt, &account.ModifiedAt)
}

func (r *accountStore) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts
        SET email=$1, first_name=$2, last_name=$3, phone_number=$4, password_hash=$5,
            email_confirmed=$6, status=$7, lockout_enabled=$8, failed_attempts=$9,
            lockout_until=$10, modified_at=NOW(), modified_by=$11
        WHERE id=$12`

	cmd, err := r.pool.Exec(ctx, query,
		account.Email,
		account.FirstName,
		account.LastName,
		account.PhoneNumber,
		account.PasswordHash,
		account.EmailConfirmed,
		account.Status,
		account.LockoutEnabled,
		account.FailedAttempts,
		account.LockoutUntil,
		account.ModifiedBy,
		account.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountStore) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountStore) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE id=$1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *accountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE LOWER(email)=LOWER($1)`
	return r.scanAccount(r.pool.QueryRow(ctx, query, email))
}

func (r *accountStore) scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.FirstName,
		&account.LastName,
		&account.PhoneNumber,
		&account.PasswordHash,
		&account.EmailConfirmed,
		&account.Status,
		&account.LockoutEnabled,
		&account.FailedAttempts,
		&account.LockoutUntil,
		&account.RefreshToken,
		&account.CreatedAt,
		&account.CreatedBy,
		&account.ModifiedAt,
		&account.ModifiedBy,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountStore) GetRefreshToken(ctx context.Context, accountID string) (string, error) {
	var token string
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(refresh_token, '') FROM accounts WHERE id=$1`, accountID,
	).Scan(&token)
	return token, err
}

func (r *accountStore) SetRefreshToken(ctx context.Context, accountID, token string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE accounts SET refresh_token=$1, modified_at=NOW() WHERE id=$2`, token, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountStore) RemoveRefreshToken(ctx context.Context, accountID string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE accounts SET refresh_token=NULL, modified_at=NOW() WHERE id=$1`, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountStore) SwapRefreshToken(ctx context.Context, accountID, old, next string) error {
	const query = `
        UPDATE accounts SET refresh_token=NULLIF($1, ''), modified_at=NOW()
        WHERE id=$2 AND refresh_token IS NOT DISTINCT FROM NULLIF($3, '')`

	cmd, err := r.pool.Exec(ctx, query, next, accountID, old)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRefreshTokenConflict
	}
	return nil
}

func (r *accountStore) GetRoles(ctx context.Context, accountID string) ([]domain.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role FROM account_roles WHERE account_id=$1 ORDER BY role`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *accountStore) AddRole(ctx context.Context, accountID string, role domain.Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO account_roles (account_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		accountID, role)
	return err
}

func (r *accountStore) RemoveRole(ctx context.Context, accountID string, role domain.Role) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM account_roles WHERE account_id=$1 AND role=$2`, accountID, role)
	return err
}

func (r *accountStore) ReplaceRoles(ctx context.Context, accountID string, role domain.Role) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM account_roles WHERE account_id=$1`, accountID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO account_roles (account_id, role) VALUES ($1, $2)`, accountID, role); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *accountStore) GetClaims(ctx context.Context, accountID string) ([]domain.Claim, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT claim_type, claim_value FROM account_claims WHERE account_id=$1`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		var claim domain.Claim
		if err := rows.Scan(&claim.Type, &claim.Value); err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func (r *accountStore) AddClaim(ctx context.Context, accountID string, claim domain.Claim) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO account_claims (account_id, claim_type, claim_value) VALUES ($1, $2, $3)`,
		accountID, claim.Type, claim.Value)
	return err
}

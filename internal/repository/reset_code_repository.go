package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ResetCode represents a stored password recovery code. At most one code per
// email is redeemable at any instant: issuing a new code supersedes all
// earlier live codes for that address.
type ResetCode struct {
	ID           string
	Email        string
	Code         string
	ExpiresAt    time.Time
	UsedAt       *time.Time
	SupersededAt *time.Time
	CreatedAt    time.Time
}

// ResetCodeRepository manages password recovery code persistence.
type ResetCodeRepository interface {
	Create(ctx context.Context, code *ResetCode) error
	GetActive(ctx context.Context, email, code string) (*ResetCode, error)
	MarkUsed(ctx context.Context, id string) error
}

type resetCodeRepository struct {
	pool *pgxpool.Pool
}

// NewResetCodeRepository constructs repository.
func NewResetCodeRepository(pool *pgxpool.Pool) ResetCodeRepository {
	return &resetCodeRepository{pool: pool}
}

// Create supersedes prior live codes for the email and inserts the new one
// atomically, so a double-requested first code can never be redeemed.
func (r *resetCodeRepository) Create(ctx context.Context, code *ResetCode) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const supersede = `
        UPDATE password_reset_codes SET superseded_at=NOW()
        WHERE email=$1 AND used_at IS NULL AND superseded_at IS NULL`
	if _, err := tx.Exec(ctx, supersede, code.Email); err != nil {
		return err
	}

	const insert = `
        INSERT INTO password_reset_codes (email, code, expires_at)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insert, code.Email, code.Code, code.ExpiresAt).
		Scan(&code.ID, &code.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetActive fetches a code that is unused, unsuperseded, and unexpired.
func (r *resetCodeRepository) GetActive(ctx context.Context, email, codeStr string) (*ResetCode, error) {
	const query = `
        SELECT id, email, code, expires_at, used_at, superseded_at, created_at
        FROM password_reset_codes
        WHERE email=$1 AND code=$2 AND used_at IS NULL AND superseded_at IS NULL AND expires_at > NOW()`
	var code ResetCode
	if err := r.pool.QueryRow(ctx, query, email, codeStr).Scan(
		&code.ID,
		&code.Email,
		&code.Code,
		&code.ExpiresAt,
		&code.UsedAt,
		&code.SupersededAt,
		&code.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *resetCodeRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
        UPDATE password_reset_codes SET used_at=NOW()
        WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

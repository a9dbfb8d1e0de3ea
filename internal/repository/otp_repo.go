package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"brgykonek/internal/domain"
)

// OTPRepository persiste codigos de un solo uso por (email, tipo).
type OTPRepository interface {
	// Replace borra los codigos previos de (email, tipo) e inserta el nuevo.
	Replace(ctx context.Context, code domain.OneTimeCode) error
	ListByEmailType(ctx context.Context, email string, otpType domain.OTPType) ([]domain.OneTimeCode, error)
	MarkVerified(ctx context.Context, id string) error
}

type PgOTPRepository struct {
	pool *pgxpool.Pool
}

func NewPgOTPRepository(pool *pgxpool.Pool) *PgOTPRepository {
	return &PgOTPRepository{pool: pool}
}

func (r *PgOTPRepository) Replace(ctx context.Context, code domain.OneTimeCode) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin otp tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const deleteQuery = `DELETE FROM otp_codes WHERE email = $1 AND type = $2`
	if _, err := tx.Exec(ctx, deleteQuery, code.Email, string(code.Type)); err != nil {
		return fmt.Errorf("delete previous otp: %w", err)
	}

	const insertQuery = `
		INSERT INTO otp_codes (id, email, code_hash, type, expires_at, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.Exec(ctx, insertQuery,
		code.ID,
		code.Email,
		code.CodeHash,
		string(code.Type),
		code.ExpiresAt,
		code.Verified,
		code.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert otp: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgOTPRepository) ListByEmailType(ctx context.Context, email string, otpType domain.OTPType) ([]domain.OneTimeCode, error) {
	const query = `
		SELECT id, email, code_hash, type, expires_at, verified, created_at
		FROM otp_codes
		WHERE email = $1 AND type = $2
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, email, string(otpType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []domain.OneTimeCode
	for rows.Next() {
		var (
			c       domain.OneTimeCode
			typeStr string
		)
		if err := rows.Scan(&c.ID, &c.Email, &c.CodeHash, &typeStr, &c.ExpiresAt, &c.Verified, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Type = domain.OTPType(typeStr)
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (r *PgOTPRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `UPDATE otp_codes SET verified = TRUE WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	return affectedOne(tag, err)
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"brgykonek/internal/domain"
)

const pgUniqueViolation = "23505"

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateProfile(ctx context.Context, user domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	VerifyEmail(ctx context.Context, id string, verifiedAt time.Time) error
	Approve(ctx context.Context, id string, updatedAt time.Time) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `
	id, email, password_hash, role, is_approved,
	first_name, middle_name, last_name, mobile_number,
	house_number, street, purok, barangay, city, province,
	clearance_file, email_verified_at, created_at, updated_at
`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.IsApproved,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.MobileNumber,
		user.Address.HouseNumber,
		user.Address.Street,
		user.Address.Purok,
		user.Address.Barangay,
		user.Address.City,
		user.Address.Province,
		user.ClearanceFile,
		user.EmailVerifiedAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrDuplicateEmail
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) UpdateProfile(ctx context.Context, user domain.User) error {
	const query = `
		UPDATE users
		SET first_name = $2, middle_name = $3, last_name = $4, mobile_number = $5,
		    house_number = $6, street = $7, purok = $8, barangay = $9, city = $10, province = $11,
		    updated_at = $12
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		user.ID,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.MobileNumber,
		user.Address.HouseNumber,
		user.Address.Street,
		user.Address.Purok,
		user.Address.Barangay,
		user.Address.City,
		user.Address.Province,
		user.UpdatedAt,
	)
	return affectedOne(tag, err)
}

func (r *PgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, passwordHash, updatedAt)
	return affectedOne(tag, err)
}

func (r *PgUserRepository) VerifyEmail(ctx context.Context, id string, verifiedAt time.Time) error {
	const query = `UPDATE users SET email_verified_at = $2, updated_at = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, verifiedAt)
	return affectedOne(tag, err)
}

func (r *PgUserRepository) Approve(ctx context.Context, id string, updatedAt time.Time) error {
	const query = `UPDATE users SET is_approved = TRUE, updated_at = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, updatedAt)
	return affectedOne(tag, err)
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.IsApproved,
		&u.FirstName,
		&u.MiddleName,
		&u.LastName,
		&u.MobileNumber,
		&u.Address.HouseNumber,
		&u.Address.Street,
		&u.Address.Purok,
		&u.Address.Barangay,
		&u.Address.City,
		&u.Address.Province,
		&u.ClearanceFile,
		&u.EmailVerifiedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	return u, nil
}

// affectedOne devuelve pgx.ErrNoRows cuando un UPDATE no toco ninguna fila.
func affectedOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

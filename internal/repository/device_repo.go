package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"brgykonek/internal/domain"
)

// DeviceRepository persiste dispositivos de confianza.
// Las lecturas nunca devuelven registros vencidos.
type DeviceRepository interface {
	Upsert(ctx context.Context, device domain.TrustedDevice) (domain.TrustedDevice, error)
	FindActive(ctx context.Context, userID, deviceID string, now time.Time) (domain.TrustedDevice, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	ListActive(ctx context.Context, userID string, now time.Time) ([]domain.TrustedDevice, error)
	Delete(ctx context.Context, deviceID, userID string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PgDeviceRepository struct {
	pool *pgxpool.Pool
}

func NewPgDeviceRepository(pool *pgxpool.Pool) *PgDeviceRepository {
	return &PgDeviceRepository{pool: pool}
}

const deviceColumns = `
	id, user_id, device_id, device_name, user_agent, ip_address,
	trusted, last_used_at, created_at, expires_at
`

func (r *PgDeviceRepository) Upsert(ctx context.Context, d domain.TrustedDevice) (domain.TrustedDevice, error) {
	const query = `
		INSERT INTO trusted_devices (` + deviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (device_id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    device_name = EXCLUDED.device_name,
		    user_agent = EXCLUDED.user_agent,
		    ip_address = EXCLUDED.ip_address,
		    trusted = EXCLUDED.trusted,
		    last_used_at = EXCLUDED.last_used_at,
		    expires_at = EXCLUDED.expires_at
		RETURNING ` + deviceColumns
	return scanDevice(r.pool.QueryRow(ctx, query,
		d.ID,
		d.UserID,
		d.DeviceID,
		d.DeviceName,
		d.UserAgent,
		d.IPAddress,
		d.Trusted,
		d.LastUsedAt,
		d.CreatedAt,
		d.ExpiresAt,
	))
}

func (r *PgDeviceRepository) FindActive(ctx context.Context, userID, deviceID string, now time.Time) (domain.TrustedDevice, error) {
	query := `SELECT ` + deviceColumns + `
		FROM trusted_devices
		WHERE user_id = $1 AND device_id = $2 AND expires_at > $3`
	return scanDevice(r.pool.QueryRow(ctx, query, userID, deviceID, now))
}

func (r *PgDeviceRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE trusted_devices SET last_used_at = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, at)
	return affectedOne(tag, err)
}

func (r *PgDeviceRepository) ListActive(ctx context.Context, userID string, now time.Time) ([]domain.TrustedDevice, error) {
	query := `SELECT ` + deviceColumns + `
		FROM trusted_devices
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY last_used_at DESC`
	rows, err := r.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]domain.TrustedDevice, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *PgDeviceRepository) Delete(ctx context.Context, deviceID, userID string) (int64, error) {
	const query = `DELETE FROM trusted_devices WHERE device_id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, deviceID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgDeviceRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM trusted_devices WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgDeviceRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM trusted_devices WHERE expires_at <= $1`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanDevice(row pgx.Row) (domain.TrustedDevice, error) {
	var d domain.TrustedDevice
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.DeviceID,
		&d.DeviceName,
		&d.UserAgent,
		&d.IPAddress,
		&d.Trusted,
		&d.LastUsedAt,
		&d.CreatedAt,
		&d.ExpiresAt,
	)
	if err != nil {
		return domain.TrustedDevice{}, err
	}
	return d, nil
}

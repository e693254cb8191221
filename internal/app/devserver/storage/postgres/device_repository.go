package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

type DeviceRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewDeviceRepository(storage *Storage, log *slog.Logger) *DeviceRepository {
	return &DeviceRepository{
		pool: storage.Pool(),
		log:  log.With("component", "device_repository"),
	}
}

func (r *DeviceRepository) RegisterDevice(ctx context.Context, deviceID, fingerprint string) error {
	const query = `
		INSERT INTO devices (device_id, fingerprint)
		VALUES ($1, $2)
		ON CONFLICT (fingerprint) DO UPDATE SET device_id = EXCLUDED.device_id`

	if _, err := r.pool.Exec(ctx, query, deviceID, fingerprint); err != nil {
		r.log.Error("failed to register device", "device_id", deviceID, "error", err)
		return fmt.Errorf("register device: %w", err)
	}
	return nil
}

func (r *DeviceRepository) DeviceExists(ctx context.Context, deviceID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM devices WHERE device_id = $1)`, deviceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check device: %w", err)
	}
	return exists, nil
}

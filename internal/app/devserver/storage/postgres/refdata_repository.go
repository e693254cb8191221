package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"tillsync/internal/domain/sync"
)

type RefDataRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewRefDataRepository(storage *Storage, log *slog.Logger) *RefDataRepository {
	return &RefDataRepository{
		pool: storage.Pool(),
		log:  log.With("component", "refdata_repository"),
	}
}

func (r *RefDataRepository) DatasetVersions(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT dataset, version FROM dataset_versions`)
	if err != nil {
		return nil, fmt.Errorf("load dataset versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[string]string)
	for rows.Next() {
		var dataset, version string
		if err := rows.Scan(&dataset, &version); err != nil {
			return nil, fmt.Errorf("scan dataset version: %w", err)
		}
		versions[dataset] = version
	}
	return versions, rows.Err()
}

func (r *RefDataRepository) Credentials(ctx context.Context) ([]sync.CredentialDump, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT username, password_hash, role FROM credentials ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	defer rows.Close()

	var creds []sync.CredentialDump
	for rows.Next() {
		var c sync.CredentialDump
		if err := rows.Scan(&c.Username, &c.PasswordHash, &c.Role); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

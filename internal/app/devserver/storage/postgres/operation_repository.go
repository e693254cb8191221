package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"tillsync/internal/app/devserver/ingest"
)

// OperationRepository is the durable side of the ingestion contract: one row
// per accepted operation, one row per spent nonce, a sequence for order
// numbers.
type OperationRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewOperationRepository(storage *Storage, log *slog.Logger) *OperationRepository {
	return &OperationRepository{
		pool: storage.Pool(),
		log:  log.With("component", "operation_repository"),
	}
}

func (r *OperationRepository) Operation(ctx context.Context, operationID string) (*ingest.Operation, error) {
	const query = `
		SELECT operation_id, device_id, fingerprint, response, received_at
		FROM operations
		WHERE operation_id = $1`

	var op ingest.Operation
	var response []byte
	err := r.pool.QueryRow(ctx, query, operationID).Scan(
		&op.OperationID, &op.DeviceID, &op.Fingerprint, &response, &op.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ingest.ErrNotFound
	}
	if err != nil {
		r.log.Error("failed to load operation", "operation_id", operationID, "error", err)
		return nil, fmt.Errorf("load operation: %w", err)
	}

	if err := json.Unmarshal(response, &op.Response); err != nil {
		return nil, fmt.Errorf("decode stored response: %w", err)
	}
	return &op, nil
}

func (r *OperationRepository) SaveOperation(ctx context.Context, op *ingest.Operation) error {
	response, err := json.Marshal(op.Response)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	const query = `
		INSERT INTO operations (operation_id, device_id, fingerprint, response, received_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, query,
		op.OperationID, op.DeviceID, op.Fingerprint, response, op.ReceivedAt); err != nil {
		r.log.Error("failed to save operation", "operation_id", op.OperationID, "error", err)
		return fmt.Errorf("save operation: %w", err)
	}
	return nil
}

func (r *OperationRepository) ReserveNonce(ctx context.Context, nonce string) error {
	const query = `INSERT INTO nonces (nonce) VALUES ($1)`

	if _, err := r.pool.Exec(ctx, query, nonce); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ingest.ErrNonceReused
		}
		return fmt.Errorf("reserve nonce: %w", err)
	}
	return nil
}

func (r *OperationRepository) NextOrderNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return fmt.Sprintf("W-%03d", n), nil
}

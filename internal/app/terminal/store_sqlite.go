package terminal

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"tillsync/internal/domain/credential"
	"tillsync/internal/domain/device"
	"tillsync/internal/domain/order"
	"tillsync/internal/domain/sync"
	"tillsync/internal/infrastructure/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the terminal's local durable database: the offline order queue,
// the credential cache, the device identity, and the reference-dataset
// versions. Every state change is persisted before the call returns.
type Store struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// OpenStore migrates and opens the local database at path.
func OpenStore(path string, log *slog.Logger) (*Store, error) {
	mg := migration.New("sqlite3://"+path, migration.FSEngine(migrationsFS, "migrations"))
	if err := mg.Up(); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("local store unreadable: %w", err)
	}

	return &Store{db: db, path: path, log: log}, nil
}

// Path returns the database file location, used by backup and restore.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

// orderPayload is the versioned persisted shape of an order's business
// content. schema_version rides in its own column so newer binaries can
// decode older rows without guessing at blobs.
type orderPayload struct {
	Order           order.Order            `json:"order"`
	Payments        []order.Payment        `json:"payments"`
	InventoryDeltas []order.InventoryDelta `json:"inventory_deltas"`
	Approvals       []order.Approval       `json:"approvals"`
}

// Enqueue persists a new order as PENDING and returns its local order id.
// Business validation is deliberately absent: that is the backend's job,
// and an offline terminal must never refuse a sale it can record.
func (s *Store) Enqueue(ctx context.Context, o *order.LocalOrder) (string, error) {
	if o.LocalOrderID == "" {
		o.LocalOrderID = uuid.NewString()
	}
	if o.CreatedOfflineAt.IsZero() {
		o.CreatedOfflineAt = time.Now().UTC()
	}
	o.SchemaVersion = order.PayloadSchemaVersion
	o.SyncState = order.StatePending
	o.UpdatedAt = time.Now().UTC()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM orders WHERE local_order_id = ?)", o.LocalOrderID,
	).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("check order existence: %w", err)
	}
	if exists {
		return "", fmt.Errorf("%w: %s", order.ErrDuplicateID, o.LocalOrderID)
	}

	payload, err := json.Marshal(orderPayload{
		Order:           o.Order,
		Payments:        o.Payments,
		InventoryDeltas: o.InventoryDeltas,
		Approvals:       o.Approvals,
	})
	if err != nil {
		return "", fmt.Errorf("marshal order payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (local_order_id, schema_version, payload,
		                    created_offline_at, sync_state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, o.LocalOrderID, o.SchemaVersion, string(payload),
		o.CreatedOfflineAt.Format(time.RFC3339Nano), o.SyncState,
		o.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("enqueue order: %w", err)
	}

	s.log.Debug("order enqueued", "local_order_id", o.LocalOrderID)
	return o.LocalOrderID, nil
}

const orderColumns = `local_order_id, schema_version, payload, created_offline_at,
       sync_state, server_order_id, order_number, last_error, attempts, updated_at`

// Order loads a single order by its local id.
func (s *Store) Order(ctx context.Context, localOrderID string) (*order.LocalOrder, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE local_order_id = ?", localOrderID)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", order.ErrNotFound, localOrderID)
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListPending returns queued orders oldest first, the submission order the
// orchestrator must honor.
func (s *Store) ListPending(ctx context.Context) ([]order.LocalOrder, error) {
	return s.listByState(ctx, order.StatePending)
}

// ListByState returns all orders in the given state, oldest first.
func (s *Store) ListByState(ctx context.Context, state order.SyncState) ([]order.LocalOrder, error) {
	return s.listByState(ctx, state)
}

func (s *Store) listByState(ctx context.Context, state order.SyncState) ([]order.LocalOrder, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE sync_state = ? ORDER BY created_offline_at ASC",
		state)
	if err != nil {
		return nil, fmt.Errorf("list %s orders: %w", state, err)
	}
	defer rows.Close()

	var orders []order.LocalOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*order.LocalOrder, error) {
	var o order.LocalOrder
	var payload, createdAt, updatedAt string

	if err := row.Scan(&o.LocalOrderID, &o.SchemaVersion, &payload, &createdAt,
		&o.SyncState, &o.ServerOrderID, &o.OrderNumber, &o.LastError,
		&o.Attempts, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	var body orderPayload
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return nil, fmt.Errorf("decode order payload: %w", err)
	}
	o.Order = body.Order
	o.Payments = body.Payments
	o.InventoryDeltas = body.InventoryDeltas
	o.Approvals = body.Approvals

	var err error
	if o.CreatedOfflineAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("decode created_offline_at: %w", err)
	}
	if o.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	return &o, nil
}

// Transition moves an order one step through the sync state machine,
// persisting the step atomically. An illegal step fails with
// order.ErrInvalidTransition and changes nothing.
func (s *Store) Transition(ctx context.Context, localOrderID string, newState order.SyncState, result *sync.SubmitResponse) error {
	if !order.Valid(newState) {
		return fmt.Errorf("%w: unknown state %q", order.ErrInvalidTransition, newState)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	var current order.SyncState
	err = tx.QueryRowContext(ctx,
		"SELECT sync_state FROM orders WHERE local_order_id = ?", localOrderID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", order.ErrNotFound, localOrderID)
	}
	if err != nil {
		return fmt.Errorf("read current state: %w", err)
	}

	if !order.CanTransition(current, newState) {
		return fmt.Errorf("%w: %s -> %s for %s", order.ErrInvalidTransition, current, newState, localOrderID)
	}

	serverOrderID, orderNumber, lastError := "", "", ""
	if result != nil {
		serverOrderID = result.OrderID
		orderNumber = result.OrderNumber
		if len(result.Errors) > 0 {
			lastError = result.Errors[0]
		}
	}

	attempts := 0
	if newState == order.StateSyncing {
		attempts = 1
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET sync_state = ?,
		    server_order_id = CASE WHEN ? != '' THEN ? ELSE server_order_id END,
		    order_number    = CASE WHEN ? != '' THEN ? ELSE order_number END,
		    last_error      = CASE WHEN ? != '' THEN ? ELSE last_error END,
		    attempts        = attempts + ?,
		    updated_at      = ?
		WHERE local_order_id = ?
	`, newState,
		serverOrderID, serverOrderID,
		orderNumber, orderNumber,
		lastError, lastError,
		attempts,
		time.Now().UTC().Format(time.RFC3339Nano),
		localOrderID)
	if err != nil {
		return fmt.Errorf("persist transition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}

	s.log.Debug("order transitioned",
		"local_order_id", localOrderID,
		"from", current,
		"to", newState,
	)
	return nil
}

// ResetSyncing returns any order stranded in SYNCING to PENDING. Run at the
// start of every cycle: a crash mid-submission leaves server state ambiguous,
// and idempotent resubmission is the only safe way to resolve it.
func (s *Store) ResetSyncing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET sync_state = ?, updated_at = ?
		WHERE sync_state = ?
	`, order.StatePending, time.Now().UTC().Format(time.RFC3339Nano), order.StateSyncing)
	if err != nil {
		return 0, fmt.Errorf("reset syncing orders: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset syncing orders: %w", err)
	}
	if n > 0 {
		s.log.Info("reset stranded orders to pending", "count", n)
	}
	return n, nil
}

// RequeueFailed returns FAILED orders to PENDING. Operator action, used by
// full resync.
func (s *Store) RequeueFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET sync_state = ?, last_error = '', updated_at = ?
		WHERE sync_state = ?
	`, order.StatePending, time.Now().UTC().Format(time.RFC3339Nano), order.StateFailed)
	if err != nil {
		return 0, fmt.Errorf("requeue failed orders: %w", err)
	}
	return res.RowsAffected()
}

// Stats recomputes queue counts on demand. Display only, never persisted.
func (s *Store) Stats(ctx context.Context) (sync.QueueStats, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT sync_state, COUNT(*) FROM orders GROUP BY sync_state")
	if err != nil {
		return sync.QueueStats{}, fmt.Errorf("count queue states: %w", err)
	}
	defer rows.Close()

	var stats sync.QueueStats
	for rows.Next() {
		var state order.SyncState
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return sync.QueueStats{}, fmt.Errorf("scan queue counts: %w", err)
		}
		switch state {
		case order.StatePending:
			stats.Pending = count
		case order.StateSyncing:
			stats.Syncing = count
		case order.StateSynced:
			stats.Synced = count
		case order.StateFailed:
			stats.Failed = count
		case order.StateConflict:
			stats.Conflict = count
		}
	}
	return stats, rows.Err()
}

// Credential implements credential.Store against the local cache.
func (s *Store) Credential(ctx context.Context, username string) (*credential.CachedCredential, error) {
	var cred credential.CachedCredential
	var refreshedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, role, refreshed_at
		FROM credentials WHERE username = ?
	`, username).Scan(&cred.Username, &cred.PasswordHash, &cred.Role, &refreshedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, credential.ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("read cached credential: %w", err)
	}

	if cred.RefreshedAt, err = time.Parse(time.RFC3339Nano, refreshedAt); err != nil {
		return nil, fmt.Errorf("decode refreshed_at: %w", err)
	}
	return &cred, nil
}

// UpsertCredentials replaces cached credentials with a fresh remote dump.
func (s *Store) UpsertCredentials(ctx context.Context, creds []sync.CredentialDump) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin credential refresh: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, c := range creds {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credentials (username, password_hash, role, refreshed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(username) DO UPDATE SET
				password_hash = excluded.password_hash,
				role = excluded.role,
				refreshed_at = excluded.refreshed_at
		`, c.Username, c.PasswordHash, c.Role, now)
		if err != nil {
			return fmt.Errorf("upsert credential %s: %w", c.Username, err)
		}
	}
	return tx.Commit()
}

// EnsureIdentity creates the identity row on first run. The fingerprint is
// computed once and cached here.
func (s *Store) EnsureIdentity(ctx context.Context, fingerprint string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_identity (id, fingerprint, status)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, fingerprint, device.StatusUnpaired)
	if err != nil {
		return fmt.Errorf("ensure device identity: %w", err)
	}
	return nil
}

// Identity implements device.IdentityStore.
func (s *Store) Identity(ctx context.Context) (*device.Identity, error) {
	var ident device.Identity
	err := s.db.QueryRowContext(ctx,
		"SELECT fingerprint, device_id, status FROM device_identity WHERE id = 1",
	).Scan(&ident.Fingerprint, &ident.DeviceID, &ident.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, device.ErrNotPaired
	}
	if err != nil {
		return nil, fmt.Errorf("read device identity: %w", err)
	}
	return &ident, nil
}

// SaveIdentity persists pairing status changes. The device id column is
// immutable here; only SetDeviceID may fill it, exactly once.
func (s *Store) SaveIdentity(ctx context.Context, identity device.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE device_identity SET fingerprint = ?, status = ? WHERE id = 1
	`, identity.Fingerprint, identity.Status)
	if err != nil {
		return fmt.Errorf("save device identity: %w", err)
	}
	return nil
}

// SetDeviceID binds the backend-assigned id. Refuses to overwrite: re-pairing
// a terminal requires an explicit operator reset, not a second approval.
func (s *Store) SetDeviceID(ctx context.Context, deviceID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE device_identity SET device_id = ?, status = ?
		WHERE id = 1 AND device_id = ''
	`, deviceID, device.StatusPaired)
	if err != nil {
		return fmt.Errorf("set device id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set device id: %w", err)
	}
	if n == 0 {
		return device.ErrAlreadyPaired
	}
	return nil
}

// ClearDeviceID is the explicit operator re-pair action.
func (s *Store) ClearDeviceID(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE device_identity SET device_id = '', status = ? WHERE id = 1
	`, device.StatusUnpaired)
	if err != nil {
		return fmt.Errorf("clear device id: %w", err)
	}
	return nil
}

// DatasetVersions returns the reference-dataset versions the terminal
// currently holds, stamped onto every envelope.
func (s *Store) DatasetVersions(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT dataset, version FROM dataset_versions")
	if err != nil {
		return nil, fmt.Errorf("read dataset versions: %w", err)
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

// PutDatasetVersions records freshly pulled reference-dataset versions.
func (s *Store) PutDatasetVersions(ctx context.Context, versions map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin dataset refresh: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for dataset, version := range versions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dataset_versions (dataset, version, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(dataset) DO UPDATE SET
				version = excluded.version,
				updated_at = excluded.updated_at
		`, dataset, version, now)
		if err != nil {
			return fmt.Errorf("upsert dataset %s: %w", dataset, err)
		}
	}
	return tx.Commit()
}

// Wipe clears all sale and reference data while preserving the device
// identity. Only the recovery manager's destructive reset calls this.
func (s *Store) Wipe(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin wipe: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"orders", "credentials", "dataset_versions"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("wipe %s: %w", table, err)
		}
	}
	return tx.Commit()
}

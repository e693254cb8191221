package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"tillsync/internal/domain/order"
	"tillsync/internal/domain/sync"
)

// RefDataFetcher pulls the reference dataset from the backend, satisfied by
// BackendClient.
type RefDataFetcher interface {
	FetchReferenceData(ctx context.Context) (*sync.ReferenceData, error)
}

// Recovery groups the operator-driven repair actions: backups, reference
// data refresh, conflict resolution and the destructive reset.
type Recovery struct {
	store     *Store
	backend   RefDataFetcher
	log       *slog.Logger
	backupDir string
}

func NewRecovery(store *Store, backend RefDataFetcher, backupDir string, log *slog.Logger) *Recovery {
	return &Recovery{
		store:     store,
		backend:   backend,
		log:       log,
		backupDir: backupDir,
	}
}

// BackupStore writes a consistent snapshot of the local database into the
// backup directory and returns its path. VACUUM INTO produces a complete
// standalone copy even while the WAL is active.
func (r *Recovery) BackupStore(ctx context.Context) (string, error) {
	name := fmt.Sprintf("terminal-%s.db", time.Now().UTC().Format("20060102-150405"))
	dest := filepath.Join(r.backupDir, name)

	if _, err := r.store.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return "", fmt.Errorf("snapshot store: %w", err)
	}

	r.log.Info("store backed up", "path", dest)
	return dest, nil
}

// RestoreFromBackup replaces the live database file with a backup snapshot.
// The store must be closed by the caller first; the terminal reopens it on
// the next start. The displaced file is kept alongside with a .pre-restore
// suffix until the operator confirms the restore worked.
func RestoreFromBackup(backupPath, storePath string, log *slog.Logger) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup not readable: %w", err)
	}

	if _, err := os.Stat(storePath); err == nil {
		displaced := storePath + ".pre-restore"
		if err := os.Rename(storePath, displaced); err != nil {
			return fmt.Errorf("set aside current store: %w", err)
		}
		// WAL sidecars belong to the displaced database, not the restored one.
		os.Remove(storePath + "-wal")
		os.Remove(storePath + "-shm")
	}

	if err := copyFile(backupPath, storePath); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}

	log.Info("store restored from backup", "backup", backupPath)
	return nil
}

// FullResync refreshes the credential cache and dataset versions from the
// backend, then returns FAILED orders to the queue so the next cycle retries
// them against fresh reference data. CONFLICT orders are left for the
// operator.
func (r *Recovery) FullResync(ctx context.Context) error {
	ref, err := r.backend.FetchReferenceData(ctx)
	if err != nil {
		return fmt.Errorf("fetch reference data: %w", err)
	}
	if err := r.applyReferenceData(ctx, ref); err != nil {
		return err
	}

	requeued, err := r.store.RequeueFailed(ctx)
	if err != nil {
		return fmt.Errorf("requeue failed orders: %w", err)
	}
	if requeued > 0 {
		r.log.Info("failed orders requeued", "count", requeued)
	}
	return nil
}

// LoadSeedData installs reference data from a local JSON file, for
// provisioning a terminal before it has ever reached the backend.
func (r *Recovery) LoadSeedData(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var ref sync.ReferenceData
	if err := json.Unmarshal(raw, &ref); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	return r.applyReferenceData(ctx, &ref)
}

func (r *Recovery) applyReferenceData(ctx context.Context, ref *sync.ReferenceData) error {
	if err := r.store.UpsertCredentials(ctx, ref.Credentials); err != nil {
		return fmt.Errorf("refresh credentials: %w", err)
	}
	if err := r.store.PutDatasetVersions(ctx, ref.DatasetVersions); err != nil {
		return fmt.Errorf("refresh dataset versions: %w", err)
	}
	r.log.Info("reference data applied",
		"credentials", len(ref.Credentials),
		"datasets", len(ref.DatasetVersions),
	)
	return nil
}

// DestructiveReset wipes orders, credentials and dataset versions after
// taking a backup. Device identity survives so the terminal stays paired.
// Unsynced orders in the wiped queue are gone for good; callers must confirm
// with the operator first.
func (r *Recovery) DestructiveReset(ctx context.Context) (string, error) {
	backup, err := r.BackupStore(ctx)
	if err != nil {
		return "", err
	}
	if err := r.store.Wipe(ctx); err != nil {
		return backup, fmt.Errorf("wipe store: %w", err)
	}
	r.log.Warn("destructive reset completed", "backup", backup)
	return backup, nil
}

// ResolveConflict settles a conflicted order by operator decision. Discard
// marks it failed and leaves the record for audit. Requeue additionally
// clones the business payload into a fresh pending order under a new id, so
// the resubmission is a new operation rather than a replay of the disputed
// one.
func (r *Recovery) ResolveConflict(ctx context.Context, localOrderID string, requeue bool) (string, error) {
	ord, err := r.store.Order(ctx, localOrderID)
	if err != nil {
		return "", err
	}
	if ord.SyncState != order.StateConflict {
		return "", fmt.Errorf("order %s is %s, not %s: %w",
			localOrderID, ord.SyncState, order.StateConflict, order.ErrInvalidTransition)
	}

	if err := r.store.Transition(ctx, localOrderID, order.StateFailed, nil); err != nil {
		return "", err
	}

	if !requeue {
		r.log.Info("conflicted order discarded", "local_order_id", localOrderID)
		return "", nil
	}

	clone := &order.LocalOrder{
		LocalOrderID:     uuid.NewString(),
		SchemaVersion:    ord.SchemaVersion,
		Order:            ord.Order,
		Payments:         ord.Payments,
		InventoryDeltas:  ord.InventoryDeltas,
		Approvals:        ord.Approvals,
		CreatedOfflineAt: ord.CreatedOfflineAt,
	}
	newID, err := r.store.Enqueue(ctx, clone)
	if err != nil {
		return "", fmt.Errorf("requeue conflicted order: %w", err)
	}

	r.log.Info("conflicted order requeued",
		"local_order_id", localOrderID,
		"new_local_order_id", newID,
	)
	return newID, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

package terminal

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"tillsync/internal/domain/device"
	"tillsync/internal/domain/order"
	"tillsync/internal/domain/sync"
)

// Submitter is the ingestion surface of the backend, satisfied by
// BackendClient.
type Submitter interface {
	SubmitOrder(ctx context.Context, env sync.Envelope) (*sync.SubmitResponse, error)
}

// Orchestrator drains the offline queue. One cycle submits one idempotent
// envelope per pending order, in creation order, and reconciles local state
// with the backend's verdicts. Single-flight: a cycle never starts while
// another runs on this device.
type Orchestrator struct {
	store   *Store
	backend Submitter
	monitor *Monitor
	log     *slog.Logger

	mu        gosync.RWMutex
	isSyncing bool
	lastCycle *sync.CycleResult
}

func NewOrchestrator(store *Store, backend Submitter, monitor *Monitor, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		backend: backend,
		monitor: monitor,
		log:     log,
	}
}

// Run drives sync on a timer until the context is cancelled. Skipped ticks
// (offline, cycle still running) are routine and only logged at debug.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	o.log.Info("sync loop started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.log.Info("sync loop stopped")
			return
		case <-ticker.C:
			if _, err := o.SyncNow(ctx); err != nil {
				if errors.Is(err, sync.ErrSyncInProgress) || errors.Is(err, sync.ErrOffline) {
					o.log.Debug("sync tick skipped", "reason", err)
					continue
				}
				o.log.Error("sync cycle failed", "error", err)
			}
		}
	}
}

// SyncNow runs one cycle immediately. Returns sync.ErrSyncInProgress while
// another cycle runs and sync.ErrOffline when the connectivity check fails.
func (o *Orchestrator) SyncNow(ctx context.Context) (*sync.CycleResult, error) {
	o.mu.Lock()
	if o.isSyncing {
		o.mu.Unlock()
		return nil, sync.ErrSyncInProgress
	}
	o.isSyncing = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.isSyncing = false
		o.mu.Unlock()
	}()

	if !o.monitor.IsOnline(ctx) {
		return nil, sync.ErrOffline
	}

	identity, err := o.store.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device identity: %w", err)
	}
	if !identity.Paired() {
		return nil, fmt.Errorf("cannot sync: %w", device.ErrNotPaired)
	}

	result := &sync.CycleResult{StartTime: time.Now()}
	defer func() {
		result.Duration = time.Since(result.StartTime)
		o.mu.Lock()
		o.lastCycle = result
		o.mu.Unlock()
	}()

	// A crash mid-submission leaves rows in SYNCING with unknown server
	// state. Requeue them; idempotent resubmission settles the ambiguity.
	if _, err := o.store.ResetSyncing(ctx); err != nil {
		return result, fmt.Errorf("reset stranded orders: %w", err)
	}

	pending, err := o.store.ListPending(ctx)
	if err != nil {
		return result, fmt.Errorf("list pending orders: %w", err)
	}

	o.log.Info("sync cycle started", "pending", len(pending))

	for i := range pending {
		// Cancellation is honored between orders only, never mid-submission:
		// abandoning a half-submitted envelope leaves ambiguous server state.
		select {
		case <-ctx.Done():
			result.Stopped = true
			return result, ctx.Err()
		default:
		}

		if err := o.submitOne(ctx, &pending[i], identity.DeviceID, result); err != nil {
			// Transient failure: the order is back in PENDING and the rest
			// of the queue waits for the next tick.
			o.log.Warn("sync cycle stopped on transport failure", "error", err)
			result.Stopped = true
			break
		}
	}

	o.log.Info("sync cycle finished",
		"submitted", result.Submitted,
		"synced", result.Synced,
		"failed", result.Failed,
		"conflicts", result.Conflicts,
		"stopped", result.Stopped,
	)
	return result, nil
}

func (o *Orchestrator) submitOne(ctx context.Context, ord *order.LocalOrder, deviceID string, result *sync.CycleResult) error {
	env, err := o.buildEnvelope(ctx, ord, deviceID)
	if err != nil {
		return err
	}

	if err := o.store.Transition(ctx, ord.LocalOrderID, order.StateSyncing, nil); err != nil {
		return err
	}
	result.Submitted++

	resp, err := o.backend.SubmitOrder(ctx, *env)
	if err != nil {
		// Unresolved attempt. Un-reserve the order; the stable operation id
		// makes the retry safe even if this envelope did reach the server.
		if terr := o.store.Transition(ctx, ord.LocalOrderID, order.StatePending, nil); terr != nil {
			o.log.Error("failed to unreserve order", "local_order_id", ord.LocalOrderID, "error", terr)
		}
		return err
	}

	switch resp.Status {
	case sync.StatusSuccess:
		if err := o.store.Transition(ctx, ord.LocalOrderID, order.StateSynced, resp); err != nil {
			return err
		}
		result.Synced++
		for _, w := range resp.Warnings {
			o.log.Warn("backend accepted order with warning",
				"local_order_id", ord.LocalOrderID,
				"type", w.Type,
				"message", w.Message,
			)
		}
	case sync.StatusConflict:
		// Needs an operator decision; never retried blindly.
		if err := o.store.Transition(ctx, ord.LocalOrderID, order.StateConflict, resp); err != nil {
			return err
		}
		result.Conflicts++
		o.log.Warn("order in conflict", "local_order_id", ord.LocalOrderID, "errors", resp.Errors)
	default:
		// Validation rejection. One bad order must not block the queue.
		if err := o.store.Transition(ctx, ord.LocalOrderID, order.StateFailed, resp); err != nil {
			return err
		}
		result.Failed++
		o.log.Warn("order rejected", "local_order_id", ord.LocalOrderID, "errors", resp.Errors)
	}
	return nil
}

func (o *Orchestrator) buildEnvelope(ctx context.Context, ord *order.LocalOrder, deviceID string) (*sync.Envelope, error) {
	nonce, err := sync.NewNonce()
	if err != nil {
		return nil, err
	}

	versions, err := o.store.DatasetVersions(ctx)
	if err != nil {
		return nil, err
	}

	return &sync.Envelope{
		OperationID:      ord.LocalOrderID,
		DeviceID:         deviceID,
		Nonce:            nonce,
		CreatedAt:        time.Now().UTC(),
		OfflineCreatedAt: ord.CreatedOfflineAt,
		DatasetVersions:  versions,
		Order:            ord.Order,
		Payments:         ord.Payments,
		InventoryDeltas:  ord.InventoryDeltas,
		Approvals:        ord.Approvals,
	}, nil
}

// IsSyncing reports whether a cycle is currently running.
func (o *Orchestrator) IsSyncing() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.isSyncing
}

// LastCycle returns the most recent cycle result, or nil before the first.
func (o *Orchestrator) LastCycle() *sync.CycleResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastCycle
}

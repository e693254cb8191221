package terminal

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"tillsync/internal/domain/order"
	"tillsync/internal/domain/sync"
)

// fakeBackend scripts per-operation responses and records every envelope it
// receives, so tests can assert on idempotency keys and nonces.
type fakeBackend struct {
	mu        gosync.Mutex
	responses map[string]*sync.SubmitResponse
	fail      map[string]error
	envelopes []sync.Envelope
	pingErr   error
	block     chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		responses: make(map[string]*sync.SubmitResponse),
		fail:      make(map[string]error),
	}
}

func (f *fakeBackend) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeBackend) SubmitOrder(ctx context.Context, env sync.Envelope) (*sync.SubmitResponse, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envelopes = append(f.envelopes, env)
	if err, ok := f.fail[env.OperationID]; ok {
		return nil, err
	}
	if resp, ok := f.responses[env.OperationID]; ok {
		return resp, nil
	}
	return &sync.SubmitResponse{Status: sync.StatusSuccess, OrderNumber: "W-001", OrderID: "srv-1"}, nil
}

func (f *fakeBackend) received() []sync.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sync.Envelope, len(f.envelopes))
	copy(out, f.envelopes)
	return out
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *Store, *fakeBackend) {
	t.Helper()
	store := newTestStore(t)
	backend := newFakeBackend()
	log := slog.Default()
	monitor := NewMonitor(backend, time.Second, log)
	orch := NewOrchestrator(store, backend, monitor, log)

	require.NoError(t, store.EnsureIdentity(context.Background(), "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"))
	require.NoError(t, store.SetDeviceID(context.Background(), "dev-42"))
	return orch, store, backend
}

func TestOrchestrator_SyncNowDrainsQueue(t *testing.T) {
	orch, store, backend := newTestOrchestrator(t)
	ctx := context.Background()

	id1, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)
	id2, err := store.Enqueue(ctx, testOrder("bob"))
	require.NoError(t, err)

	result, err := orch.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Submitted)
	assert.Equal(t, 2, result.Synced)
	assert.False(t, result.Stopped)

	for _, id := range []string{id1, id2} {
		got, err := store.Order(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, order.StateSynced, got.SyncState)
		assert.Equal(t, "W-001", got.OrderNumber)
	}

	// Envelopes go out in creation order, carry the device id, and use the
	// local order id as the idempotency key.
	envs := backend.received()
	require.Len(t, envs, 2)
	assert.Equal(t, id1, envs[0].OperationID)
	assert.Equal(t, id2, envs[1].OperationID)
	assert.Equal(t, "dev-42", envs[0].DeviceID)
	assert.Len(t, envs[0].Nonce, 32)
	assert.NotEqual(t, envs[0].Nonce, envs[1].Nonce)
}

func TestOrchestrator_NetworkErrorRequeuesAndStops(t *testing.T) {
	orch, store, backend := newTestOrchestrator(t)
	ctx := context.Background()

	id1, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)
	id2, err := store.Enqueue(ctx, testOrder("bob"))
	require.NoError(t, err)
	backend.fail[id1] = sync.ErrNetwork

	result, err := orch.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Submitted)
	assert.Equal(t, 0, result.Synced)
	assert.True(t, result.Stopped)

	// The failed attempt is unresolved, not failed: back to the queue, and
	// the order behind it was never touched.
	got1, err := store.Order(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, order.StatePending, got1.SyncState)
	assert.Equal(t, 1, got1.Attempts)

	got2, err := store.Order(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, order.StatePending, got2.SyncState)
	assert.Equal(t, 0, got2.Attempts)
}

func TestOrchestrator_RetryReusesOperationID(t *testing.T) {
	orch, store, backend := newTestOrchestrator(t)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)

	backend.fail[id] = sync.ErrNetwork
	_, err = orch.SyncNow(ctx)
	require.NoError(t, err)

	delete(backend.fail, id)
	result, err := orch.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)

	// Same operation id on every attempt, fresh nonce each time.
	envs := backend.received()
	require.Len(t, envs, 2)
	assert.Equal(t, envs[0].OperationID, envs[1].OperationID)
	assert.NotEqual(t, envs[0].Nonce, envs[1].Nonce)

	got, err := store.Order(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
}

func TestOrchestrator_RejectionDoesNotBlockQueue(t *testing.T) {
	orch, store, backend := newTestOrchestrator(t)
	ctx := context.Background()

	bad, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)
	good, err := store.Enqueue(ctx, testOrder("bob"))
	require.NoError(t, err)

	backend.responses[bad] = &sync.SubmitResponse{
		Status: sync.StatusError,
		Errors: []string{"cashier lacks permission for manual discount"},
	}

	result, err := orch.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Synced)
	assert.False(t, result.Stopped)

	gotBad, err := store.Order(ctx, bad)
	require.NoError(t, err)
	assert.Equal(t, order.StateFailed, gotBad.SyncState)
	assert.Contains(t, gotBad.LastError, "manual discount")

	gotGood, err := store.Order(ctx, good)
	require.NoError(t, err)
	assert.Equal(t, order.StateSynced, gotGood.SyncState)
}

func TestOrchestrator_ConflictParksOrder(t *testing.T) {
	orch, store, backend := newTestOrchestrator(t)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)
	backend.responses[id] = &sync.SubmitResponse{
		Status: sync.StatusConflict,
		Errors: []string{"duplicate operation with different content"},
	}

	result, err := orch.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Conflicts)

	got, err := store.Order(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.StateConflict, got.SyncState)

	// Conflicted orders never go back out on their own.
	backend.envelopes = nil
	result, err = orch.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Submitted)
}

func TestOrchestrator_RecoversStrandedSyncing(t *testing.T) {
	orch, store, _ := newTestOrchestrator(t)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)
	// Simulate a crash after reservation but before a verdict arrived.
	require.NoError(t, store.Transition(ctx, id, order.StateSyncing, nil))

	result, err := orch.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)

	got, err := store.Order(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.StateSynced, got.SyncState)
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	orch, store, backend := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)

	backend.block = make(chan struct{})
	first := make(chan error, 1)
	go func() {
		_, err := orch.SyncNow(ctx)
		first <- err
	}()

	// Wait for the first cycle to reach the blocked submission.
	require.Eventually(t, orch.IsSyncing, time.Second, 5*time.Millisecond)

	_, err = orch.SyncNow(ctx)
	assert.ErrorIs(t, err, sync.ErrSyncInProgress)

	close(backend.block)
	require.NoError(t, <-first)
}

func TestOrchestrator_OfflineSkipsCycle(t *testing.T) {
	orch, store, backend := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)
	backend.pingErr = errors.New("connection refused")

	_, err = orch.SyncNow(ctx)
	assert.ErrorIs(t, err, sync.ErrOffline)
	assert.Empty(t, backend.received())
}

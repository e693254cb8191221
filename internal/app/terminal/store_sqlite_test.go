package terminal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"tillsync/internal/domain/credential"
	"tillsync/internal/domain/device"
	"tillsync/internal/domain/order"
	"tillsync/internal/domain/sync"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "terminal.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testOrder(cashier string) *order.LocalOrder {
	return &order.LocalOrder{
		Order: order.Order{
			OrderType:        "counter",
			DiningPreference: "takeaway",
			Status:           "completed",
			StoreLocationID:  "store-1",
			CashierID:        cashier,
			Items: []order.Item{
				{ProductID: "espresso", Name: "Espresso", Quantity: 2, UnitPrice: 3.5},
			},
			Subtotal: 7.0,
			Tax:      0.7,
			Total:    7.7,
		},
		Payments: []order.Payment{
			{Method: "cash", Amount: 7.7, Status: "captured", CashTendered: 10, ChangeGiven: 2.3},
		},
		InventoryDeltas: []order.InventoryDelta{
			{ProductID: "espresso", LocationID: "store-1", QuantityChange: -2, Reason: "sale"},
		},
	}
}

func TestStore_EnqueueAndListPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testOrder("alice")
	first.CreatedOfflineAt = time.Now().UTC().Add(-2 * time.Minute)
	second := testOrder("bob")
	second.CreatedOfflineAt = time.Now().UTC().Add(-1 * time.Minute)

	// Enqueued out of creation order on purpose.
	secondID, err := store.Enqueue(ctx, second)
	require.NoError(t, err)
	firstID, err := store.Enqueue(ctx, first)
	require.NoError(t, err)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// Oldest first, regardless of insertion order.
	assert.Equal(t, firstID, pending[0].LocalOrderID)
	assert.Equal(t, secondID, pending[1].LocalOrderID)
	assert.Equal(t, order.StatePending, pending[0].SyncState)
	assert.Equal(t, "alice", pending[0].Order.CashierID)
	assert.Equal(t, -2, pending[0].InventoryDeltas[0].QuantityChange)
}

func TestStore_EnqueueDuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	o := testOrder("alice")
	id, err := store.Enqueue(ctx, o)
	require.NoError(t, err)

	dup := testOrder("alice")
	dup.LocalOrderID = id
	_, err = store.Enqueue(ctx, dup)
	assert.ErrorIs(t, err, order.ErrDuplicateID)
}

func TestStore_Transition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)

	require.NoError(t, store.Transition(ctx, id, order.StateSyncing, nil))

	result := &sync.SubmitResponse{
		Status:      sync.StatusSuccess,
		OrderNumber: "1042",
		OrderID:     "srv-77",
	}
	require.NoError(t, store.Transition(ctx, id, order.StateSynced, result))

	got, err := store.Order(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.StateSynced, got.SyncState)
	assert.Equal(t, "1042", got.OrderNumber)
	assert.Equal(t, "srv-77", got.ServerOrderID)
	assert.Equal(t, 1, got.Attempts)
}

func TestStore_TransitionRejectsIllegalStep(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)

	err = store.Transition(ctx, id, order.StateSynced, nil)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	// Nothing changed.
	got, err := store.Order(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.StatePending, got.SyncState)

	err = store.Transition(ctx, "no-such-order", order.StateSyncing, nil)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestStore_ResetSyncing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)
	require.NoError(t, store.Transition(ctx, id, order.StateSyncing, nil))

	// Simulates a restart after a crash mid-submission.
	n, err := store.ResetSyncing(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].LocalOrderID)
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, testOrder("bob"))
	require.NoError(t, err)

	require.NoError(t, store.Transition(ctx, a, order.StateSyncing, nil))
	require.NoError(t, store.Transition(ctx, a, order.StateFailed,
		&sync.SubmitResponse{Status: sync.StatusError, Errors: []string{"unknown product"}}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, sync.QueueStats{Pending: 1, Failed: 1}, stats)
}

func TestStore_CredentialCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Credential(ctx, "alice")
	assert.ErrorIs(t, err, credential.ErrNotCached)

	require.NoError(t, store.UpsertCredentials(ctx, []sync.CredentialDump{
		{Username: "alice", PasswordHash: "pbkdf2_sha256$1000$salt$AAAA", Role: "cashier"},
	}))

	cred, err := store.Credential(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "cashier", cred.Role)
	assert.False(t, cred.RefreshedAt.IsZero())

	// Refresh overwrites in place.
	require.NoError(t, store.UpsertCredentials(ctx, []sync.CredentialDump{
		{Username: "alice", PasswordHash: "pbkdf2_sha256$1000$salt$BBBB", Role: "manager"},
	}))
	cred, err = store.Credential(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "manager", cred.Role)
}

func TestStore_DeviceIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fp := device.Fingerprint("machine-1", "till-01")
	require.NoError(t, store.EnsureIdentity(ctx, fp))

	ident, err := store.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, fp, ident.Fingerprint)
	assert.Equal(t, device.StatusUnpaired, ident.Status)

	require.NoError(t, store.SetDeviceID(ctx, "dev-1"))

	ident, err = store.Identity(ctx)
	require.NoError(t, err)
	assert.True(t, ident.Paired())

	// Device id is set exactly once.
	assert.ErrorIs(t, store.SetDeviceID(ctx, "dev-2"), device.ErrAlreadyPaired)

	// Explicit operator re-pair clears it.
	require.NoError(t, store.ClearDeviceID(ctx))
	require.NoError(t, store.SetDeviceID(ctx, "dev-2"))
}

func TestStore_DatasetVersions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	versions, err := store.DatasetVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)

	require.NoError(t, store.PutDatasetVersions(ctx, map[string]string{
		"products":  "v12",
		"discounts": "v3",
	}))

	versions, err = store.DatasetVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"products": "v12", "discounts": "v3"}, versions)
}

func TestStore_WipeKeepsIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureIdentity(ctx, device.Fingerprint("m", "h")))
	require.NoError(t, store.SetDeviceID(ctx, "dev-1"))
	_, err := store.Enqueue(ctx, testOrder("alice"))
	require.NoError(t, err)

	require.NoError(t, store.Wipe(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)

	ident, err := store.Identity(ctx)
	require.NoError(t, err)
	assert.True(t, ident.Paired())
}

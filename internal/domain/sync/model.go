package sync

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"tillsync/internal/domain/order"
)

// Submission statuses returned by the ingestion endpoint.
const (
	StatusSuccess  = "SUCCESS"
	StatusConflict = "CONFLICT"
	StatusError    = "ERROR"
)

// Envelope is the wire representation of one queued order. OperationID
// equals the order's LocalOrderID and is the idempotency key: the backend
// must collapse duplicate submissions and answer with the same order number.
type Envelope struct {
	OperationID      string                 `json:"operation_id"`
	DeviceID         string                 `json:"device_id"`
	Nonce            string                 `json:"nonce"`
	CreatedAt        time.Time              `json:"created_at"`
	OfflineCreatedAt time.Time              `json:"offline_created_at"`
	DatasetVersions  map[string]string      `json:"dataset_versions"`
	Order            order.Order            `json:"order"`
	Payments         []order.Payment        `json:"payments"`
	InventoryDeltas  []order.InventoryDelta `json:"inventory_deltas"`
	Approvals        []order.Approval       `json:"approvals"`
}

// SubmitResponse is the backend's verdict on a submitted envelope.
type SubmitResponse struct {
	Status      string    `json:"status"`
	OrderNumber string    `json:"order_number,omitempty"`
	OrderID     string    `json:"order_id,omitempty"`
	Warnings    []Warning `json:"warnings,omitempty"`
	Errors      []string  `json:"errors,omitempty"`
}

// Warning flags stale reference data the terminal used, without failing the
// whole order.
type Warning struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	ProductID string `json:"product_id,omitempty"`
}

// ReferenceData is the reference-dataset pull used by full resync. The
// credential hashes come straight from the identity server so offline PIN
// checks stay byte-compatible.
type ReferenceData struct {
	DatasetVersions map[string]string `json:"dataset_versions"`
	Credentials     []CredentialDump  `json:"credentials"`
}

type CredentialDump struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
}

// QueueStats are derived counts for status display. Recomputed on demand,
// never a source of truth.
type QueueStats struct {
	Pending  int `json:"pending"`
	Syncing  int `json:"syncing"`
	Synced   int `json:"synced"`
	Failed   int `json:"failed"`
	Conflict int `json:"conflict"`
}

// CycleResult summarizes one drain of the queue.
type CycleResult struct {
	Submitted int           `json:"submitted"`
	Synced    int           `json:"synced"`
	Failed    int           `json:"failed"`
	Conflicts int           `json:"conflicts"`
	Stopped   bool          `json:"stopped"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

// NewNonce returns a fresh 32-hex single-use value for one envelope.
func NewNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

package order

import (
	"time"
)

// PayloadSchemaVersion is bumped whenever the persisted order payload gains
// fields, so older rows can still be decoded.
const PayloadSchemaVersion = 1

// SyncState tracks where a locally created order sits in its sync lifecycle.
type SyncState string

const (
	StatePending  SyncState = "PENDING"
	StateSyncing  SyncState = "SYNCING"
	StateSynced   SyncState = "SYNCED"
	StateFailed   SyncState = "FAILED"
	StateConflict SyncState = "CONFLICT"
)

// LocalOrder is an order created on the terminal, queued for submission.
// LocalOrderID is client-generated, stable, and doubles as the idempotency
// key for the backend. Rows are never deleted: SYNCED orders are retained
// for audit, FAILED and CONFLICT orders for operator review.
type LocalOrder struct {
	LocalOrderID     string           `json:"local_order_id"`
	SchemaVersion    int              `json:"schema_version"`
	Order            Order            `json:"order"`
	Payments         []Payment        `json:"payments"`
	InventoryDeltas  []InventoryDelta `json:"inventory_deltas"`
	Approvals        []Approval       `json:"approvals"`
	CreatedOfflineAt time.Time        `json:"created_offline_at"`
	SyncState        SyncState        `json:"sync_state"`
	ServerOrderID    string           `json:"server_order_id,omitempty"`
	OrderNumber      string           `json:"order_number,omitempty"`
	LastError        string           `json:"last_error,omitempty"`
	Attempts         int              `json:"attempts"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Order holds the business content of a sale. Pricing is whatever the
// terminal computed at sale time; the backend stays authoritative and may
// reprice on ingestion.
type Order struct {
	OrderType        string       `json:"order_type"`
	DiningPreference string       `json:"dining_preference"`
	Status           string       `json:"status"`
	StoreLocationID  string       `json:"store_location_id"`
	CashierID        string       `json:"cashier_id"`
	Items            []Item       `json:"items"`
	Discounts        []Discount   `json:"discounts"`
	Adjustments      []Adjustment `json:"adjustments"`
	Subtotal         float64      `json:"subtotal"`
	Tax              float64      `json:"tax"`
	Surcharge        float64      `json:"surcharge"`
	DiscountTotal    float64      `json:"discount_total"`
	Total            float64      `json:"total"`
}

type Item struct {
	ProductID string     `json:"product_id"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	UnitPrice float64    `json:"unit_price"`
	Modifiers []Modifier `json:"modifiers,omitempty"`
}

type Modifier struct {
	ModifierID string  `json:"modifier_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
}

type Discount struct {
	DiscountID string  `json:"discount_id"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
}

type Adjustment struct {
	Reason string  `json:"reason"`
	Amount float64 `json:"amount"`
}

type Payment struct {
	Method        string  `json:"method"`
	Amount        float64 `json:"amount"`
	Tip           float64 `json:"tip"`
	Surcharge     float64 `json:"surcharge"`
	Status        string  `json:"status"`
	TransactionID string  `json:"transaction_id,omitempty"`
	GiftCardCode  string  `json:"gift_card_code,omitempty"`
	CashTendered  float64 `json:"cash_tendered,omitempty"`
	ChangeGiven   float64 `json:"change_given,omitempty"`
}

type InventoryDelta struct {
	ProductID      string `json:"product_id"`
	LocationID     string `json:"location_id"`
	QuantityChange int    `json:"quantity_change"`
	Reason         string `json:"reason"`
}

type Approval struct {
	UserID    string    `json:"user_id"`
	PIN       string    `json:"pin"`
	Action    string    `json:"action"`
	Reference string    `json:"reference"`
	Timestamp time.Time `json:"timestamp"`
}

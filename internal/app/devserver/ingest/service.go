package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"tillsync/internal/domain/order"
	"tillsync/internal/domain/sync"
)

var (
	ErrNotFound    = errors.New("operation not found")
	ErrNonceReused = errors.New("nonce already used")
)

// Operation is one accepted offline submission, kept forever so replays can
// be answered with the original outcome.
type Operation struct {
	OperationID string
	DeviceID    string
	Fingerprint string
	Response    sync.SubmitResponse
	ReceivedAt  time.Time
}

// Repository persists operations and enforces nonce single-use.
type Repository interface {
	Operation(ctx context.Context, operationID string) (*Operation, error)
	SaveOperation(ctx context.Context, op *Operation) error
	// ReserveNonce fails with ErrNonceReused on a second reservation.
	ReserveNonce(ctx context.Context, nonce string) error
	NextOrderNumber(ctx context.Context) (string, error)
	DeviceExists(ctx context.Context, deviceID string) (bool, error)
	DatasetVersions(ctx context.Context) (map[string]string, error)
}

// Service applies the offline-order ingestion contract: duplicate operation
// ids with identical content replay the original verdict, identical ids with
// different content are conflicts, everything else is validated once and
// recorded.
type Service struct {
	repo      Repository
	log       *slog.Logger
	freshness time.Duration
	now       func() time.Time
}

func NewService(repo Repository, freshness time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		log:       log.With("component", "ingest_service"),
		freshness: freshness,
		now:       time.Now,
	}
}

// Submit processes one envelope. Contract violations come back as ERROR or
// CONFLICT responses, not Go errors; an error return means the server itself
// failed and the terminal should retry later.
func (s *Service) Submit(ctx context.Context, env sync.Envelope) (*sync.SubmitResponse, error) {
	if msg := s.checkEnvelope(env); msg != "" {
		return reject(msg), nil
	}

	known, err := s.repo.DeviceExists(ctx, env.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("check device: %w", err)
	}
	if !known {
		return reject("unknown device id"), nil
	}

	// Every envelope, including a replay, must carry a fresh nonce.
	if err := s.repo.ReserveNonce(ctx, env.Nonce); err != nil {
		if errors.Is(err, ErrNonceReused) {
			return reject("nonce already used"), nil
		}
		return nil, fmt.Errorf("reserve nonce: %w", err)
	}

	fingerprint, err := payloadFingerprint(env)
	if err != nil {
		return nil, fmt.Errorf("fingerprint payload: %w", err)
	}

	existing, err := s.repo.Operation(ctx, env.OperationID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("look up operation: %w", err)
	}
	if existing != nil {
		if existing.Fingerprint == fingerprint {
			s.log.Info("replayed duplicate operation",
				"operation_id", env.OperationID,
				"order_number", existing.Response.OrderNumber,
			)
			resp := existing.Response
			return &resp, nil
		}
		s.log.Warn("operation id reused with different content",
			"operation_id", env.OperationID, "device_id", env.DeviceID)
		return &sync.SubmitResponse{
			Status: sync.StatusConflict,
			Errors: []string{"duplicate operation with different content"},
		}, nil
	}

	if msg := validateOrder(env); msg != "" {
		return reject(msg), nil
	}

	warnings, err := s.datasetWarnings(ctx, env.DatasetVersions)
	if err != nil {
		return nil, err
	}

	orderNumber, err := s.repo.NextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate order number: %w", err)
	}

	resp := sync.SubmitResponse{
		Status:      sync.StatusSuccess,
		OrderNumber: orderNumber,
		OrderID:     uuid.NewString(),
		Warnings:    warnings,
	}
	op := &Operation{
		OperationID: env.OperationID,
		DeviceID:    env.DeviceID,
		Fingerprint: fingerprint,
		Response:    resp,
		ReceivedAt:  s.now().UTC(),
	}
	if err := s.repo.SaveOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("save operation: %w", err)
	}

	s.log.Info("offline order accepted",
		"operation_id", env.OperationID,
		"device_id", env.DeviceID,
		"order_number", orderNumber,
		"warnings", len(warnings),
	)
	return &resp, nil
}

func (s *Service) checkEnvelope(env sync.Envelope) string {
	switch {
	case env.OperationID == "":
		return "operation_id is required"
	case env.DeviceID == "":
		return "device_id is required"
	case env.Nonce == "":
		return "nonce is required"
	}

	// offline_created_at may be arbitrarily old; only the envelope itself
	// must be fresh.
	age := s.now().Sub(env.CreatedAt)
	if age > s.freshness || age < -s.freshness {
		return "envelope created_at outside freshness window"
	}
	return ""
}

func validateOrder(env sync.Envelope) string {
	if len(env.Order.Items) == 0 {
		return "order has no items"
	}
	if env.Order.Total < 0 {
		return "order total is negative"
	}

	var paid float64
	for _, p := range env.Payments {
		if p.Status == "captured" {
			paid += p.Amount
		}
	}
	if math.Abs(paid-env.Order.Total) > 0.005 {
		return fmt.Sprintf("captured payments %.2f do not cover order total %.2f", paid, env.Order.Total)
	}

	for _, a := range env.Approvals {
		if a.UserID == "" {
			return fmt.Sprintf("approval for %s has no approver", a.Action)
		}
	}
	return ""
}

// datasetWarnings flags reference data that moved on while the terminal was
// offline. The order is still accepted; stale prices are a reporting
// concern, not grounds to lose a sale.
func (s *Service) datasetWarnings(ctx context.Context, used map[string]string) ([]sync.Warning, error) {
	current, err := s.repo.DatasetVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset versions: %w", err)
	}

	var warnings []sync.Warning
	for dataset, version := range used {
		latest, ok := current[dataset]
		if ok && latest != version {
			warnings = append(warnings, sync.Warning{
				Type:    "stale_dataset",
				Message: fmt.Sprintf("dataset %s was %s at sale time, current is %s", dataset, version, latest),
			})
		}
	}
	return warnings, nil
}

// payloadFingerprint hashes the business content of an envelope, leaving out
// the per-attempt fields (nonce, created_at) so retries of the same sale
// hash identically.
func payloadFingerprint(env sync.Envelope) (string, error) {
	raw, err := json.Marshal(struct {
		Order           order.Order            `json:"order"`
		Payments        []order.Payment        `json:"payments"`
		InventoryDeltas []order.InventoryDelta `json:"inventory_deltas"`
		Approvals       []order.Approval       `json:"approvals"`
	}{env.Order, env.Payments, env.InventoryDeltas, env.Approvals})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func reject(msg string) *sync.SubmitResponse {
	return &sync.SubmitResponse{
		Status: sync.StatusError,
		Errors: []string{msg},
	}
}

package memory

import (
	"context"
	"fmt"
	gosync "sync"

	"tillsync/internal/app/devserver/ingest"
	"tillsync/internal/domain/sync"
)

// Storage keeps the whole server state in maps, for local development and
// tests. The interface contract matches the postgres implementation exactly.
type Storage struct {
	mu         gosync.Mutex
	operations map[string]ingest.Operation
	nonces     map[string]struct{}
	devices    map[string]string
	datasets   map[string]string
	creds      []sync.CredentialDump
	nextSeq    int
}

func New() *Storage {
	return &Storage{
		operations: make(map[string]ingest.Operation),
		nonces:     make(map[string]struct{}),
		devices:    make(map[string]string),
		datasets:   make(map[string]string),
		nextSeq:    1,
	}
}

func (s *Storage) Operation(ctx context.Context, operationID string) (*ingest.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.operations[operationID]
	if !ok {
		return nil, ingest.ErrNotFound
	}
	return &op, nil
}

func (s *Storage) SaveOperation(ctx context.Context, op *ingest.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations[op.OperationID] = *op
	return nil
}

func (s *Storage) ReserveNonce(ctx context.Context, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.nonces[nonce]; seen {
		return ingest.ErrNonceReused
	}
	s.nonces[nonce] = struct{}{}
	return nil
}

func (s *Storage) NextOrderNumber(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.nextSeq
	s.nextSeq++
	return fmt.Sprintf("W-%03d", n), nil
}

func (s *Storage) RegisterDevice(ctx context.Context, deviceID, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[deviceID] = fingerprint
	return nil
}

func (s *Storage) DeviceExists(ctx context.Context, deviceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.devices[deviceID]
	return ok, nil
}

func (s *Storage) DatasetVersions(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.datasets))
	for k, v := range s.datasets {
		out[k] = v
	}
	return out, nil
}

// SetDatasetVersion updates one dataset pointer, for seeding and tests.
func (s *Storage) SetDatasetVersion(dataset, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[dataset] = version
}

func (s *Storage) Credentials(ctx context.Context) ([]sync.CredentialDump, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sync.CredentialDump, len(s.creds))
	copy(out, s.creds)
	return out, nil
}

// SetCredentials replaces the credential dump, for seeding and tests.
func (s *Storage) SetCredentials(creds []sync.CredentialDump) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = append([]sync.CredentialDump(nil), creds...)
}

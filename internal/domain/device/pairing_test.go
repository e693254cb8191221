package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type memIdentityStore struct {
	identity Identity
}

func (m *memIdentityStore) Identity(_ context.Context) (*Identity, error) {
	ident := m.identity
	return &ident, nil
}

func (m *memIdentityStore) SaveIdentity(_ context.Context, identity Identity) error {
	if m.identity.DeviceID != "" && identity.DeviceID != m.identity.DeviceID {
		return ErrAlreadyPaired
	}
	m.identity = identity
	return nil
}

func (m *memIdentityStore) SetDeviceID(_ context.Context, deviceID string) error {
	if m.identity.DeviceID != "" {
		return ErrAlreadyPaired
	}
	m.identity.DeviceID = deviceID
	m.identity.Status = StatusPaired
	return nil
}

type scriptedBackend struct {
	code      *ActivationCode
	codeErr   error
	polls     []*ApprovalStatus
	pollCalls int
	codeCalls int
}

func (s *scriptedBackend) RequestActivationCode(_ context.Context, _ string) (*ActivationCode, error) {
	s.codeCalls++
	if s.codeErr != nil {
		return nil, s.codeErr
	}
	return s.code, nil
}

func (s *scriptedBackend) PollApproval(_ context.Context, _ string) (*ApprovalStatus, error) {
	if s.pollCalls >= len(s.polls) {
		return s.polls[len(s.polls)-1], nil
	}
	status := s.polls[s.pollCalls]
	s.pollCalls++
	return status, nil
}

func TestPairer_Run_Approved(t *testing.T) {
	store := &memIdentityStore{identity: Identity{Fingerprint: "fp-1", Status: StatusUnpaired}}
	backend := &scriptedBackend{
		code: &ActivationCode{UserCode: "HX7K2M", VerificationURI: "https://backoffice/pair", ExpiresIn: 60},
		polls: []*ApprovalStatus{
			{Status: PollWaitingApproval, RemainingSeconds: 55},
			{Status: PollApproved, DeviceID: "dev-42"},
		},
	}

	pairer := NewPairer(backend, store, time.Millisecond, slog.Default())

	var states []PairingState
	pairer.OnProgress(func(p Progress) {
		states = append(states, p.State)
	})

	identity, err := pairer.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "dev-42", identity.DeviceID)
	assert.Equal(t, StatusPaired, identity.Status)
	assert.Contains(t, states, PairingWaitingApproval)
	assert.Equal(t, PairingApproved, states[len(states)-1])
}

func TestPairer_Run_Expired(t *testing.T) {
	store := &memIdentityStore{identity: Identity{Fingerprint: "fp-1", Status: StatusUnpaired}}
	backend := &scriptedBackend{
		code: &ActivationCode{UserCode: "HX7K2M", VerificationURI: "https://backoffice/pair", ExpiresIn: 30},
		polls: []*ApprovalStatus{
			{Status: PollExpired},
		},
	}

	pairer := NewPairer(backend, store, time.Millisecond, slog.Default())

	_, err := pairer.Run(context.Background())

	assert.ErrorIs(t, err, ErrPairingExpired)
	assert.Equal(t, StatusUnpaired, store.identity.Status)

	// A fresh attempt must request a new code, not reuse the stale one.
	backend.polls = []*ApprovalStatus{{Status: PollApproved, DeviceID: "dev-42"}}
	retry := NewPairer(backend, store, time.Millisecond, slog.Default())
	_, err = retry.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, backend.codeCalls)
}

func TestPairer_Run_AlreadyPaired(t *testing.T) {
	store := &memIdentityStore{identity: Identity{Fingerprint: "fp-1", DeviceID: "dev-9", Status: StatusPaired}}
	backend := &scriptedBackend{}

	pairer := NewPairer(backend, store, time.Millisecond, slog.Default())
	_, err := pairer.Run(context.Background())

	assert.ErrorIs(t, err, ErrAlreadyPaired)
	assert.Zero(t, backend.codeCalls)
}

func TestPairer_Run_Cancelled(t *testing.T) {
	store := &memIdentityStore{identity: Identity{Fingerprint: "fp-1", Status: StatusUnpaired}}
	backend := &scriptedBackend{
		code: &ActivationCode{UserCode: "HX7K2M", VerificationURI: "https://backoffice/pair", ExpiresIn: 300},
		polls: []*ApprovalStatus{
			{Status: PollWaitingApproval, RemainingSeconds: 299},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	pairer := NewPairer(backend, store, 50*time.Millisecond, slog.Default())

	done := make(chan error, 1)
	go func() {
		_, err := pairer.Run(ctx)
		done <- err
	}()

	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("pairer did not stop on cancellation")
	}
}

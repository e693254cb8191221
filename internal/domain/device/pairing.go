package device

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

// ActivationCode is the backend's answer to a pairing request.
type ActivationCode struct {
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
}

// ApprovalStatus is one pairing poll result.
type ApprovalStatus struct {
	Status           string `json:"status"`
	RemainingSeconds int    `json:"remaining_seconds"`
	DeviceID         string `json:"device_id,omitempty"`
}

// Backend is the pairing surface of the authoritative backend.
type Backend interface {
	RequestActivationCode(ctx context.Context, fingerprint string) (*ActivationCode, error)
	PollApproval(ctx context.Context, fingerprint string) (*ApprovalStatus, error)
}

// IdentityStore persists the device identity. SetDeviceID must refuse to
// overwrite an existing device id.
type IdentityStore interface {
	Identity(ctx context.Context) (*Identity, error)
	SaveIdentity(ctx context.Context, identity Identity) error
	SetDeviceID(ctx context.Context, deviceID string) error
}

// Progress is reported to the operator while the flow runs.
type Progress struct {
	State            PairingState
	UserCode         string
	VerificationURI  string
	RemainingSeconds int
}

// Pairer runs the one-time approval handshake: request an activation code,
// poll until an operator approves elsewhere, persist the assigned device id.
// A new Pairer is constructed per attempt; an expired code is never reused.
type Pairer struct {
	backend  Backend
	store    IdentityStore
	log      *slog.Logger
	interval time.Duration
	notify   func(Progress)
}

func NewPairer(backend Backend, store IdentityStore, interval time.Duration, log *slog.Logger) *Pairer {
	return &Pairer{
		backend:  backend,
		store:    store,
		log:      log,
		interval: interval,
	}
}

// OnProgress registers an observer for state changes, typically the CLI.
func (p *Pairer) OnProgress(fn func(Progress)) {
	p.notify = fn
}

// Run executes the pairing flow to completion. It is cancellable between
// polls and returns the paired identity on approval, ErrPairingExpired when
// the code lapses, or ErrAlreadyPaired when the terminal holds a device id.
func (p *Pairer) Run(ctx context.Context) (*Identity, error) {
	p.report(Progress{State: PairingInitializing})

	identity, err := p.store.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if identity.Paired() {
		return nil, ErrAlreadyPaired
	}

	code, err := p.backend.RequestActivationCode(ctx, identity.Fingerprint)
	if err != nil {
		p.report(Progress{State: PairingError})
		return nil, fmt.Errorf("request activation code: %w", err)
	}

	identity.Status = StatusPendingApproval
	if err := p.store.SaveIdentity(ctx, *identity); err != nil {
		return nil, fmt.Errorf("persist pending identity: %w", err)
	}

	p.log.Info("pairing started",
		"user_code", code.UserCode,
		"verification_uri", code.VerificationURI,
		"expires_in", code.ExpiresIn,
	)
	p.report(Progress{
		State:            PairingWaitingApproval,
		UserCode:         code.UserCode,
		VerificationURI:  code.VerificationURI,
		RemainingSeconds: code.ExpiresIn,
	})

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	deadline := time.Now().Add(time.Duration(code.ExpiresIn) * time.Second)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			return nil, p.expire(ctx, identity)
		}

		status, err := p.backend.PollApproval(ctx, identity.Fingerprint)
		if err != nil {
			// Transient poll failures are retried until the code expires.
			p.log.Warn("approval poll failed", "error", err)
			continue
		}

		switch status.Status {
		case PollApproved:
			if err := p.store.SetDeviceID(ctx, status.DeviceID); err != nil {
				return nil, fmt.Errorf("persist device id: %w", err)
			}
			p.report(Progress{State: PairingApproved})
			p.log.Info("pairing approved", "device_id", status.DeviceID)
			return p.store.Identity(ctx)
		case PollExpired:
			return nil, p.expire(ctx, identity)
		default:
			p.report(Progress{
				State:            PairingWaitingApproval,
				UserCode:         code.UserCode,
				VerificationURI:  code.VerificationURI,
				RemainingSeconds: status.RemainingSeconds,
			})
		}
	}
}

func (p *Pairer) expire(ctx context.Context, identity *Identity) error {
	identity.Status = StatusUnpaired
	if err := p.store.SaveIdentity(ctx, *identity); err != nil {
		p.log.Error("reset identity after expiry", "error", err)
	}
	p.report(Progress{State: PairingError})
	return ErrPairingExpired
}

func (p *Pairer) report(progress Progress) {
	if p.notify != nil {
		p.notify(progress)
	}
}

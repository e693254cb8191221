package pairing

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"tillsync/internal/domain/device"
)

var (
	ErrUnknownFingerprint = errors.New("no pairing in progress for fingerprint")
	ErrUnknownCode        = errors.New("unknown user code")
	ErrCodeExpired        = errors.New("user code expired")
)

// DeviceRegistry persists approved devices. Pending codes never touch it.
type DeviceRegistry interface {
	RegisterDevice(ctx context.Context, deviceID, fingerprint string) error
}

type attempt struct {
	fingerprint string
	userCode    string
	expiresAt   time.Time
	deviceID    string
	approved    bool
}

// Service runs the operator-approval pairing flow. Codes are short-lived and
// held in memory only; an approved device is the one durable outcome.
type Service struct {
	devices DeviceRegistry
	log     *slog.Logger
	ttl     time.Duration
	now     func() time.Time

	mu            gosync.Mutex
	byFingerprint map[string]*attempt
	byCode        map[string]*attempt
}

func NewService(devices DeviceRegistry, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		devices:       devices,
		log:           log.With("component", "pairing_service"),
		ttl:           ttl,
		now:           time.Now,
		byFingerprint: make(map[string]*attempt),
		byCode:        make(map[string]*attempt),
	}
}

// RequestCode starts (or restarts) pairing for a fingerprint. A repeated
// request discards the previous code.
func (s *Service) RequestCode(ctx context.Context, fingerprint string) (*device.ActivationCode, error) {
	code, err := newUserCode()
	if err != nil {
		return nil, fmt.Errorf("generate user code: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byFingerprint[fingerprint]; ok {
		delete(s.byCode, old.userCode)
	}

	a := &attempt{
		fingerprint: fingerprint,
		userCode:    code,
		expiresAt:   s.now().Add(s.ttl),
	}
	s.byFingerprint[fingerprint] = a
	s.byCode[code] = a

	s.log.Info("pairing requested", "fingerprint", fingerprint, "user_code", code)
	return &device.ActivationCode{
		UserCode:        code,
		VerificationURI: "/pairing/approve/" + code,
		ExpiresIn:       int(s.ttl.Seconds()),
	}, nil
}

// Poll reports the terminal-facing view of a pairing attempt.
func (s *Service) Poll(ctx context.Context, fingerprint string) (*device.ApprovalStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byFingerprint[fingerprint]
	if !ok {
		return nil, ErrUnknownFingerprint
	}

	if a.approved {
		return &device.ApprovalStatus{
			Status:   device.PollApproved,
			DeviceID: a.deviceID,
		}, nil
	}

	remaining := a.expiresAt.Sub(s.now())
	if remaining <= 0 {
		delete(s.byFingerprint, fingerprint)
		delete(s.byCode, a.userCode)
		return &device.ApprovalStatus{Status: device.PollExpired}, nil
	}

	return &device.ApprovalStatus{
		Status:           device.PollWaitingApproval,
		RemainingSeconds: int(remaining.Seconds()),
	}, nil
}

// Approve is the operator side: exchange a user code for a registered
// device id. The terminal learns the id on its next poll.
func (s *Service) Approve(ctx context.Context, userCode string) (string, error) {
	s.mu.Lock()
	a, ok := s.byCode[userCode]
	if !ok {
		s.mu.Unlock()
		return "", ErrUnknownCode
	}
	if s.now().After(a.expiresAt) {
		delete(s.byFingerprint, a.fingerprint)
		delete(s.byCode, userCode)
		s.mu.Unlock()
		return "", ErrCodeExpired
	}
	if a.approved {
		deviceID := a.deviceID
		s.mu.Unlock()
		return deviceID, nil
	}
	s.mu.Unlock()

	deviceID := uuid.NewString()
	if err := s.devices.RegisterDevice(ctx, deviceID, a.fingerprint); err != nil {
		return "", fmt.Errorf("register device: %w", err)
	}

	s.mu.Lock()
	a.approved = true
	a.deviceID = deviceID
	s.mu.Unlock()

	s.log.Info("pairing approved", "user_code", userCode, "device_id", deviceID)
	return deviceID, nil
}

// codeAlphabet omits characters operators misread over the phone.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func newUserCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf[:3]) + "-" + string(buf[3:]), nil
}

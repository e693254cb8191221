package terminal

import (
	"context"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"
)

// Prober is the active connectivity check, satisfied by BackendClient.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor tracks connectivity from two directions: a passive environment
// signal (connectivity-change events) and an active probe against the
// backend. The passive signal alone is not trusted; captive portals report
// a link that cannot reach the backend.
type Monitor struct {
	prober       Prober
	log          *slog.Logger
	probeTimeout time.Duration

	mu      gosync.RWMutex
	passive bool
}

func NewMonitor(prober Prober, probeTimeout time.Duration, log *slog.Logger) *Monitor {
	return &Monitor{
		prober:       prober,
		log:          log,
		probeTimeout: probeTimeout,
		passive:      true,
	}
}

// SetOnline records the passive environment signal.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.passive != online {
		m.log.Info("connectivity signal changed", "online", online)
	}
	m.passive = online
}

// PassiveOnline reports the last environment signal without probing.
func (m *Monitor) PassiveOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.passive
}

// IsOnline re-verifies connectivity right now: passive signal AND a fresh
// probe. Called immediately before each sync attempt, never cached.
func (m *Monitor) IsOnline(ctx context.Context) bool {
	if !m.PassiveOnline() {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	if err := m.prober.Ping(probeCtx); err != nil {
		m.log.Debug("connectivity probe failed", "error", err)
		return false
	}
	return true
}

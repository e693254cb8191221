package terminal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

type fakeProber struct {
	err   error
	calls int
}

func (f *fakeProber) Ping(ctx context.Context) error {
	f.calls++
	return f.err
}

func TestMonitor_IsOnline(t *testing.T) {
	prober := &fakeProber{}
	m := NewMonitor(prober, time.Second, slog.Default())

	assert.True(t, m.IsOnline(context.Background()))
	assert.Equal(t, 1, prober.calls)
}

func TestMonitor_ProbeFailureMeansOffline(t *testing.T) {
	prober := &fakeProber{err: errors.New("connection refused")}
	m := NewMonitor(prober, time.Second, slog.Default())

	assert.True(t, m.PassiveOnline())
	assert.False(t, m.IsOnline(context.Background()))
}

func TestMonitor_PassiveOfflineSkipsProbe(t *testing.T) {
	prober := &fakeProber{}
	m := NewMonitor(prober, time.Second, slog.Default())

	m.SetOnline(false)
	assert.False(t, m.IsOnline(context.Background()))
	assert.Equal(t, 0, prober.calls)

	// A restored link is verified by probing again, never assumed.
	m.SetOnline(true)
	assert.True(t, m.IsOnline(context.Background()))
	assert.Equal(t, 1, prober.calls)
}

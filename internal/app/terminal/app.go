package terminal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"

	"golang.org/x/exp/slog"

	"tillsync/internal/app/terminal/config"
	"tillsync/internal/domain/credential"
	"tillsync/internal/domain/device"
)

// App is the composition root of the terminal: local store, backend client,
// connectivity monitor, sync orchestrator, recovery tooling and the offline
// login verifier, wired from one config.
type App struct {
	Config       *config.Config
	Log          *slog.Logger
	Store        *Store
	Backend      *BackendClient
	Monitor      *Monitor
	Orchestrator *Orchestrator
	Recovery     *Recovery
	Verifier     *credential.Verifier

	wg     gosync.WaitGroup
	cancel context.CancelFunc
}

// New wires the terminal. The device fingerprint is derived from the host
// and persisted on first run, before any pairing has happened.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	store, err := OpenStore(cfg.StorePath, log)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	fingerprint, err := device.HostFingerprint()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("derive device fingerprint: %w", err)
	}
	if err := store.EnsureIdentity(context.Background(), fingerprint); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure device identity: %w", err)
	}

	backend := NewBackendClient(cfg, log)
	monitor := NewMonitor(backend, cfg.ProbeTimeout, log)

	return &App{
		Config:       cfg,
		Log:          log,
		Store:        store,
		Backend:      backend,
		Monitor:      monitor,
		Orchestrator: NewOrchestrator(store, backend, monitor, log),
		Recovery:     NewRecovery(store, backend, cfg.BackupDir, log),
		Verifier:     credential.NewVerifier(store, log),
	}, nil
}

// NewPairer builds a pairing flow for one attempt.
func (a *App) NewPairer() *device.Pairer {
	return device.NewPairer(a.Backend, a.Store, a.Config.PairingPollInterval, a.Log)
}

// Run starts the background sync loop and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.handleSignals()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Orchestrator.Run(ctx, a.Config.SyncInterval)
	}()

	a.Log.Info("terminal started",
		"server", a.Config.ServerAddress,
		"env", a.Config.Env,
		"store", a.Config.StorePath,
	)

	a.wg.Wait()
	return a.Store.Close()
}

func (a *App) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	a.Log.Info("shutting down", "signal", sig.String())
	a.Stop()
}

// Stop cancels the background sync loop. A cycle in flight finishes its
// current order first.
func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

// Close releases the store without running the signal loop, for one-shot
// CLI commands.
func (a *App) Close() error {
	return a.Store.Close()
}

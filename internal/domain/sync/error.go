package sync

import (
	"errors"
)

var (
	// ErrNetwork marks a transient transport failure. The affected order
	// returns to PENDING and retries on the next cycle.
	ErrNetwork = errors.New("backend unreachable")
	// ErrSyncInProgress is returned when a cycle is already running.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrOffline is returned when the connectivity check fails before a cycle.
	ErrOffline = errors.New("terminal is offline")
)

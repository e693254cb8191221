package order

// transitions is the full state machine for a LocalOrder. SYNCING→PENDING
// exists for crash recovery: a process that dies mid-submission cannot know
// whether the envelope reached the server, so the row goes back to the queue
// and idempotent resubmission resolves the ambiguity. FAILED→PENDING and
// CONFLICT→FAILED are operator actions, never automatic.
var transitions = map[SyncState][]SyncState{
	StatePending:  {StateSyncing},
	StateSyncing:  {StateSynced, StateFailed, StateConflict, StatePending},
	StateFailed:   {StatePending},
	StateConflict: {StateFailed},
	StateSynced:   {},
}

// CanTransition reports whether moving from one sync state to another is a
// legal step of the state machine.
func CanTransition(from, to SyncState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a state needs no further sync work. FAILED and
// CONFLICT are sticky but not terminal: an operator can requeue or resolve.
func Terminal(s SyncState) bool {
	return s == StateSynced
}

// Valid reports whether s is a known sync state.
func Valid(s SyncState) bool {
	switch s {
	case StatePending, StateSyncing, StateSynced, StateFailed, StateConflict:
		return true
	}
	return false
}

package order

import (
	"errors"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid sync state transition")
	ErrDuplicateID       = errors.New("local order id already queued")
)

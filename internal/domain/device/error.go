package device

import (
	"errors"
)

var (
	ErrAlreadyPaired  = errors.New("device already paired")
	ErrNotPaired      = errors.New("device not paired")
	ErrPairingExpired = errors.New("activation code expired")
)

package credential

import (
	"errors"
)

var (
	ErrNotCached            = errors.New("user not found or not cached")
	ErrBadPIN               = errors.New("pin does not match")
	ErrMalformedHash        = errors.New("malformed password hash")
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
)

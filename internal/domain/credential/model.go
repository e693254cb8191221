package credential

import (
	"time"
)

// CachedCredential is a remotely issued staff credential held for offline
// PIN checks. It is created or refreshed only from a successful online sync
// or login, never minted on the terminal.
type CachedCredential struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	RefreshedAt  time.Time `json:"refreshed_at"`
}

// User is the result of a successful offline verification.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

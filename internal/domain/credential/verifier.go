package credential

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/exp/slog"
)

// Hash output length used by the identity server. Fixed so the recomputed
// digest lines up with the cached one byte for byte.
const derivedKeyLen = 32

const algPBKDF2SHA256 = "pbkdf2_sha256"

// Store is the credential cache the verifier reads from.
type Store interface {
	Credential(ctx context.Context, username string) (*CachedCredential, error)
}

// Verifier checks a staff PIN against the cached identity-server hash
// without any network access. It fails closed: no cache entry means no
// login, never a default-allow.
type Verifier struct {
	store Store
	log   *slog.Logger
}

func NewVerifier(store Store, log *slog.Logger) *Verifier {
	return &Verifier{
		store: store,
		log:   log,
	}
}

// Verify recomputes PBKDF2-HMAC-SHA256 over the raw PIN with the stored salt
// and iteration count and compares in constant time. A PIN the identity
// server accepted online is accepted here without re-enrollment.
func (v *Verifier) Verify(ctx context.Context, username, rawPIN string) (User, error) {
	cred, err := v.store.Credential(ctx, username)
	if err != nil {
		v.log.Debug("offline login rejected", "username", username, "reason", "not cached")
		return User{}, ErrNotCached
	}

	parsed, err := ParseHash(cred.PasswordHash)
	if err != nil {
		v.log.Error("cached credential unusable", "username", username, "error", err)
		return User{}, err
	}

	derived := pbkdf2.Key([]byte(rawPIN), []byte(parsed.Salt), parsed.Iterations, derivedKeyLen, sha256.New)
	if subtle.ConstantTimeCompare(derived, parsed.Hash) != 1 {
		v.log.Debug("offline login rejected", "username", username, "reason", "bad pin")
		return User{}, ErrBadPIN
	}

	return User{Username: cred.Username, Role: cred.Role}, nil
}

// ParsedHash is the decoded algorithm$iterations$salt$hash form.
type ParsedHash struct {
	Algorithm  string
	Iterations int
	Salt       string
	Hash       []byte
}

// ParseHash splits an identity-server hash string. Unknown algorithms are
// rejected rather than guessed at.
func ParseHash(stored string) (*ParsedHash, error) {
	parts := strings.SplitN(stored, "$", 4)
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: want algorithm$iterations$salt$hash", ErrMalformedHash)
	}

	if parts[0] != algPBKDF2SHA256 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, parts[0])
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return nil, fmt.Errorf("%w: bad iteration count %q", ErrMalformedHash, parts[1])
	}

	if parts[2] == "" {
		return nil, fmt.Errorf("%w: empty salt", ErrMalformedHash)
	}

	hash, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: hash is not base64: %v", ErrMalformedHash, err)
	}

	return &ParsedHash{
		Algorithm:  parts[0],
		Iterations: iterations,
		Salt:       parts[2],
		Hash:       hash,
	}, nil
}

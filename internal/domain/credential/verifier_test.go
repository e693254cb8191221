package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// Vectors computed independently with Python's hashlib.pbkdf2_hmac
// ('sha256', pin, salt, iterations, dklen=32).
const (
	vectorHash600k = "pbkdf2_sha256$600000$testsalt$4w1UDuWvhcV63ZVs8D7OyfxVPoHsQKsDPSsLUyjsg1o="
	vectorHash1k   = "pbkdf2_sha256$1000$testsalt$06V5ZNNS52xEcBQNErG16iW8v4S5Rle9ZzfAtJ2Fako="
)

type fakeStore struct {
	creds map[string]*CachedCredential
}

func (f *fakeStore) Credential(_ context.Context, username string) (*CachedCredential, error) {
	cred, ok := f.creds[username]
	if !ok {
		return nil, ErrNotCached
	}
	return cred, nil
}

func newFakeStore(hash string) *fakeStore {
	return &fakeStore{creds: map[string]*CachedCredential{
		"alice": {
			Username:     "alice",
			PasswordHash: hash,
			Role:         "cashier",
			RefreshedAt:  time.Now(),
		},
	}}
}

func TestVerifier_Verify(t *testing.T) {
	log := slog.Default()
	ctx := context.Background()

	t.Run("known vector accepted", func(t *testing.T) {
		v := NewVerifier(newFakeStore(vectorHash600k), log)

		user, err := v.Verify(ctx, "alice", "1234")

		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "cashier", user.Role)
	})

	t.Run("single character mutation rejected", func(t *testing.T) {
		v := NewVerifier(newFakeStore(vectorHash1k), log)

		_, err := v.Verify(ctx, "alice", "1235")

		assert.ErrorIs(t, err, ErrBadPIN)
	})

	t.Run("uncached user fails closed", func(t *testing.T) {
		v := NewVerifier(newFakeStore(vectorHash1k), log)

		_, err := v.Verify(ctx, "mallory", "1234")

		assert.ErrorIs(t, err, ErrNotCached)
	})

	t.Run("unsupported algorithm rejected without panic", func(t *testing.T) {
		v := NewVerifier(newFakeStore("bcrypt$12$testsalt$AAAA"), log)

		_, err := v.Verify(ctx, "alice", "1234")

		assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})
}

func TestParseHash(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		wantErr error
	}{
		{name: "valid", stored: vectorHash1k, wantErr: nil},
		{name: "too few parts", stored: "pbkdf2_sha256$1000$testsalt", wantErr: ErrMalformedHash},
		{name: "unsupported algorithm", stored: "argon2id$3$salt$AAAA", wantErr: ErrUnsupportedAlgorithm},
		{name: "non numeric iterations", stored: "pbkdf2_sha256$lots$salt$AAAA", wantErr: ErrMalformedHash},
		{name: "zero iterations", stored: "pbkdf2_sha256$0$salt$AAAA", wantErr: ErrMalformedHash},
		{name: "empty salt", stored: "pbkdf2_sha256$1000$$AAAA", wantErr: ErrMalformedHash},
		{name: "hash not base64", stored: "pbkdf2_sha256$1000$salt$not-base64!!", wantErr: ErrMalformedHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseHash(tt.stored)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "pbkdf2_sha256", parsed.Algorithm)
			assert.Equal(t, 1000, parsed.Iterations)
			assert.Equal(t, "testsalt", parsed.Salt)
			assert.Len(t, parsed.Hash, 32)
		})
	}
}

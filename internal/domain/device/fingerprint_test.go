package device

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var uuidShape = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestFingerprint(t *testing.T) {
	t.Run("stable for identical hardware", func(t *testing.T) {
		first := Fingerprint("9f2c4e1a7b3d", "till-01")
		second := Fingerprint("9f2c4e1a7b3d", "till-01")

		assert.Equal(t, first, second)
		assert.Regexp(t, uuidShape, first)
	})

	t.Run("changes with hostname", func(t *testing.T) {
		assert.NotEqual(t,
			Fingerprint("9f2c4e1a7b3d", "till-01"),
			Fingerprint("9f2c4e1a7b3d", "till-02"),
		)
	})

	t.Run("changes with machine id", func(t *testing.T) {
		assert.NotEqual(t,
			Fingerprint("9f2c4e1a7b3d", "till-01"),
			Fingerprint("0000aaaabbbb", "till-01"),
		)
	})
}

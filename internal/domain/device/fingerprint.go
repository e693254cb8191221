package device

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Locations of the OS-level stable machine identifier, in lookup order.
var machineIDPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

// Fingerprint derives the terminal's stable hardware fingerprint from the
// machine identifier and hostname. Deterministic: identical inputs always
// produce the same UUID-shaped string, so the value survives application
// reinstalls and only changes on major hardware replacement.
func Fingerprint(machineID, hostname string) string {
	sum := sha256.Sum256([]byte(machineID + ":" + hostname))
	h := hex.EncodeToString(sum[:])[:32]
	return fmt.Sprintf("%s-%s-%s-%s-%s", h[0:8], h[8:12], h[12:16], h[16:20], h[20:32])
}

// HostFingerprint computes the fingerprint for the machine the process runs
// on. Callers cache the result; this is only invoked when the store has no
// identity yet.
func HostFingerprint() (string, error) {
	machineID, err := readMachineID()
	if err != nil {
		return "", err
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("read hostname: %w", err)
	}
	return Fingerprint(machineID, hostname), nil
}

func readMachineID() (string, error) {
	for _, path := range machineIDPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("no machine id found in %v", machineIDPaths)
}

package device

// Status is the pairing status of the terminal's identity.
type Status string

const (
	StatusUnpaired        Status = "UNPAIRED"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusPaired          Status = "PAIRED"
)

// Pairing flow states, visible to the operator while the flow runs.
type PairingState string

const (
	PairingInitializing    PairingState = "initializing"
	PairingWaitingApproval PairingState = "waiting_approval"
	PairingApproved        PairingState = "approved"
	PairingError           PairingState = "error"
)

// Poll statuses reported by the approval endpoint.
const (
	PollWaitingApproval = "waiting_approval"
	PollApproved        = "approved"
	PollExpired         = "expired"
)

// Identity binds the terminal to a backend-issued device id. Fingerprint is
// derived from hardware and survives reinstalls; DeviceID is assigned once
// at pairing approval and never changes without an explicit re-pair.
type Identity struct {
	Fingerprint string `json:"fingerprint"`
	DeviceID    string `json:"device_id,omitempty"`
	Status      Status `json:"status"`
}

// Paired reports whether the identity carries a backend-assigned device id.
func (i Identity) Paired() bool {
	return i.Status == StatusPaired && i.DeviceID != ""
}

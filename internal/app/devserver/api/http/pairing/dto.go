package pairing

import (
	"tillsync/internal/domain/device"
)

type requestCodeInput struct {
	Body RequestCodeRequest
}

type RequestCodeRequest struct {
	Fingerprint string `json:"fingerprint" doc:"Device fingerprint of the unpaired terminal"`
}

type requestCodeOutput struct {
	Body device.ActivationCode
}

type pollInput struct {
	Fingerprint string `path:"fingerprint"`
}

type pollOutput struct {
	Body device.ApprovalStatus
}

type approveInput struct {
	UserCode string `path:"user_code"`
}

type approveOutput struct {
	Body ApproveResponse
}

type ApproveResponse struct {
	DeviceID string `json:"device_id"`
}

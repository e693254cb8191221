package pairing

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"tillsync/internal/app/devserver/pairing"
	"tillsync/internal/domain/device"
)

// Servicer is the pairing flow: terminals request and poll, operators
// approve.
type Servicer interface {
	RequestCode(ctx context.Context, fingerprint string) (*device.ActivationCode, error)
	Poll(ctx context.Context, fingerprint string) (*device.ApprovalStatus, error)
	Approve(ctx context.Context, userCode string) (string, error)
}

type Handler struct {
	service    Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.requestCodeOp(), h.requestCode)
	huma.Register(api, h.pollOp(), h.poll)
	huma.Register(api, h.approveOp(), h.approve)
}

func (h *Handler) requestCode(ctx context.Context, input *requestCodeInput) (*requestCodeOutput, error) {
	if input.Body.Fingerprint == "" {
		return nil, huma.Error422UnprocessableEntity("fingerprint is required")
	}

	code, err := h.service.RequestCode(ctx, input.Body.Fingerprint)
	if err != nil {
		h.log.Error("activation code request failed", "error", err)
		return nil, huma.Error500InternalServerError("pairing unavailable")
	}

	return &requestCodeOutput{Body: *code}, nil
}

func (h *Handler) poll(ctx context.Context, input *pollInput) (*pollOutput, error) {
	status, err := h.service.Poll(ctx, input.Fingerprint)
	if err != nil {
		if errors.Is(err, pairing.ErrUnknownFingerprint) {
			return nil, huma.Error404NotFound("no pairing in progress")
		}
		h.log.Error("approval poll failed", "error", err)
		return nil, huma.Error500InternalServerError("pairing unavailable")
	}

	return &pollOutput{Body: *status}, nil
}

func (h *Handler) approve(ctx context.Context, input *approveInput) (*approveOutput, error) {
	deviceID, err := h.service.Approve(ctx, input.UserCode)
	if err != nil {
		switch {
		case errors.Is(err, pairing.ErrUnknownCode):
			return nil, huma.Error404NotFound("unknown user code")
		case errors.Is(err, pairing.ErrCodeExpired):
			return nil, huma.Error410Gone("user code expired")
		default:
			h.log.Error("pairing approval failed", "user_code", input.UserCode, "error", err)
			return nil, huma.Error500InternalServerError("pairing unavailable")
		}
	}

	return &approveOutput{
		Body: ApproveResponse{DeviceID: deviceID},
	}, nil
}

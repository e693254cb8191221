package ingest

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"tillsync/internal/domain/sync"
)

// Servicer applies the ingestion contract to one envelope.
type Servicer interface {
	Submit(ctx context.Context, env sync.Envelope) (*sync.SubmitResponse, error)
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
	huma.Register(api, h.submitOp(), h.submit)
}

// submit answers verdicts (SUCCESS, CONFLICT, ERROR) as 200 responses; a
// non-200 means the server failed and the terminal should retry the same
// envelope later.
func (h *Handler) submit(ctx context.Context, input *submitInput) (*submitOutput, error) {
	response, err := h.service.Submit(ctx, input.Body)
	if err != nil {
		h.log.Error("ingestion failed", "operation_id", input.Body.OperationID, "error", err)
		return nil, huma.Error500InternalServerError("ingestion failed")
	}

	return &submitOutput{Body: *response}, nil
}

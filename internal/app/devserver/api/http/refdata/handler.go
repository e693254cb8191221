package refdata

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"tillsync/internal/domain/sync"
)

type Servicer interface {
	ReferenceData(ctx context.Context) (*sync.ReferenceData, error)
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
	huma.Register(api, h.getOp(), h.get)
}

func (h *Handler) get(ctx context.Context, _ *getInput) (*getOutput, error) {
	ref, err := h.service.ReferenceData(ctx)
	if err != nil {
		h.log.Error("reference data load failed", "error", err)
		return nil, huma.Error500InternalServerError("reference data unavailable")
	}

	return &getOutput{Body: *ref}, nil
}

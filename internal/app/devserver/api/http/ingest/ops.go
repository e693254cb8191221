package ingest

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) submitOp() huma.Operation {
	return huma.Operation{
		OperationID: "ingest-offline-order",
		Method:      http.MethodPost,
		Path:        "/sync/offline-orders/",
		Summary:     "Submit an offline order envelope",
		Description: "Idempotent on operation_id: a duplicate with identical content replays the original verdict",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Health check endpoint",
		Description: "Used by terminals as the active connectivity probe",
		Tags:        []string{"health"},
		Middlewares: h.middleware,
	}
}

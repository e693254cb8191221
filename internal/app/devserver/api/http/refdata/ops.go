package refdata

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "reference-data-get",
		Method:      http.MethodGet,
		Path:        "/reference-data",
		Summary:     "Fetch reference data",
		Description: "Dataset versions and the credential dump terminals cache for offline login",
		Tags:        []string{"reference-data"},
		Middlewares: h.middleware,
	}
}

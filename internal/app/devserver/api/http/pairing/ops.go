package pairing

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) requestCodeOp() huma.Operation {
	return huma.Operation{
		OperationID: "pairing-request-code",
		Method:      http.MethodPost,
		Path:        "/pairing/activation-code",
		Summary:     "Request a pairing activation code",
		Description: "Starts the operator-approval flow for an unpaired terminal",
		Tags:        []string{"pairing"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) pollOp() huma.Operation {
	return huma.Operation{
		OperationID: "pairing-poll-approval",
		Method:      http.MethodGet,
		Path:        "/pairing/approval/{fingerprint}",
		Summary:     "Poll for pairing approval",
		Description: "Terminal-side poll until the code is approved or expires",
		Tags:        []string{"pairing"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) approveOp() huma.Operation {
	return huma.Operation{
		OperationID: "pairing-approve",
		Method:      http.MethodPost,
		Path:        "/pairing/approve/{user_code}",
		Summary:     "Approve a pairing request",
		Description: "Operator-side approval that assigns the device id",
		Tags:        []string{"pairing"},
		Middlewares: h.middleware,
	}
}

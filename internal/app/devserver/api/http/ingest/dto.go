package ingest

import (
	"tillsync/internal/domain/sync"
)

type submitInput struct {
	Body sync.Envelope
}

type submitOutput struct {
	Body sync.SubmitResponse
}

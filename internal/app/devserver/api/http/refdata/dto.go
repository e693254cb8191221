package refdata

import (
	"tillsync/internal/domain/sync"
)

type getInput struct{}

type getOutput struct {
	Body sync.ReferenceData
}

package refdata

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"

	"tillsync/internal/domain/sync"
)

// Repository serves the current reference datasets.
type Repository interface {
	DatasetVersions(ctx context.Context) (map[string]string, error)
	Credentials(ctx context.Context) ([]sync.CredentialDump, error)
}

// Service assembles the reference-data pull terminals use for full resync
// and seed provisioning.
type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "refdata_service"),
	}
}

func (s *Service) ReferenceData(ctx context.Context) (*sync.ReferenceData, error) {
	versions, err := s.repo.DatasetVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset versions: %w", err)
	}
	creds, err := s.repo.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	s.log.Debug("reference data served", "datasets", len(versions), "credentials", len(creds))
	return &sync.ReferenceData{
		DatasetVersions: versions,
		Credentials:     creds,
	}, nil
}

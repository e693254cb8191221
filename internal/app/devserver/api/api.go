// Reference backend for offline-first terminals:
// ingestion of queued offline orders, idempotent on operation_id;
// device pairing with operator approval;
// reference data pulls for credential caching and full resync.
//
// GET  /healthz                         # Connectivity probe (public)
// POST /sync/offline-orders/           # Submit one offline order envelope
// POST /pairing/activation-code        # Start pairing for a fingerprint
// GET  /pairing/approval/{fingerprint} # Terminal-side approval poll
// POST /pairing/approve/{user_code}    # Operator-side approval
// GET  /reference-data                 # Dataset versions + credential dump

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"tillsync/internal/app/devserver/config"
	ingestSvc "tillsync/internal/app/devserver/ingest"
	pairingSvc "tillsync/internal/app/devserver/pairing"
	refdataSvc "tillsync/internal/app/devserver/refdata"

	healthAPI "tillsync/internal/app/devserver/api/http/health"
	ingestAPI "tillsync/internal/app/devserver/api/http/ingest"
	"tillsync/internal/app/devserver/api/http/middleware"
	"tillsync/internal/app/devserver/api/http/middleware/logger"
	pairingAPI "tillsync/internal/app/devserver/api/http/pairing"
	refdataAPI "tillsync/internal/app/devserver/api/http/refdata"
)

// Storage is the union of persistence the handlers need. Both the postgres
// repositories and the in-memory implementation satisfy it.
type Storage interface {
	ingestSvc.Repository
	pairingSvc.DeviceRegistry
	refdataSvc.Repository
}

type Handlers struct {
	Health  *healthAPI.Handler
	Ingest  *ingestAPI.Handler
	Pairing *pairingAPI.Handler
	RefData *refdataAPI.Handler
}

// New builds a *chi.Mux with all operations registered through huma.
func New(storage Storage, cfg *config.Config, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	humaConfig := huma.DefaultConfig("Tillsync Dev Backend", "1.0.0")
	API := humachi.New(mux, humaConfig)

	h := handlers(storage, cfg, log)
	h.Health.SetupRoutes(API)
	h.Ingest.SetupRoutes(API)
	h.Pairing.SetupRoutes(API)
	h.RefData.SetupRoutes(API)

	return mux
}

func handlers(storage Storage, cfg *config.Config, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	ingestService := ingestSvc.NewService(storage, cfg.Ingest.FreshnessWindow, log)
	middlewares.Add(loggerMW.Middleware())
	ingestHandler := ingestAPI.NewHandler(ingestService, log, middlewares.GetAllAndClear())

	pairingService := pairingSvc.NewService(storage, cfg.Ingest.PairingTTL, log)
	middlewares.Add(loggerMW.Middleware())
	pairingHandler := pairingAPI.NewHandler(pairingService, log, middlewares.GetAllAndClear())

	refdataService := refdataSvc.NewService(storage, log)
	middlewares.Add(loggerMW.Middleware())
	refdataHandler := refdataAPI.NewHandler(refdataService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:  healthHandler,
		Ingest:  ingestHandler,
		Pairing: pairingHandler,
		RefData: refdataHandler,
	}
}

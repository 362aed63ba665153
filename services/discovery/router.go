package discovery

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// APIConfig controls HTTP boundary behaviour.
type APIConfig struct {
	AllowedOrigins  []string
	SubmitRateLimit int
}

// API wires the orchestrator and repository into HTTP handlers.
type API struct {
	orch   *Orchestrator
	repo   Repository
	pool   *pgxpool.Pool // optional; enables the stats endpoint
	config APIConfig
	log    zerolog.Logger
}

// NewAPI initialises the HTTP boundary with sane defaults applied to the
// provided configuration.
func NewAPI(orch *Orchestrator, repo Repository, pool *pgxpool.Pool, cfg APIConfig, logger zerolog.Logger) (*API, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if cfg.SubmitRateLimit <= 0 {
		cfg.SubmitRateLimit = 30
	}

	return &API{
		orch:   orch,
		repo:   repo,
		pool:   pool,
		config: cfg,
		log:    logger,
	}, nil
}

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if len(a.config.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.config.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/discoveries", func(r chi.Router) {
			r.With(httprate.LimitByIP(a.config.SubmitRateLimit, time.Minute)).
				Post("/", a.handleCreateDiscovery)
			r.Get("/", a.handleListDiscoveries)
			r.Delete("/", a.handleDeleteDiscoveries)
			r.Get("/stats", a.handleDiscoveryStats)
			r.Route("/{discoveryID}", func(r chi.Router) {
				r.Get("/", a.handleGetDiscovery)
				r.Patch("/", a.handlePatchDiscovery)
				r.Delete("/", a.handleDeleteDiscovery)
				r.Get("/configuration", a.handleGetConfiguration)
				r.Get("/{fileName}", a.handleGetDiscoveryFile)
			})
		})
	})

	return r
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"prodisco/pkg/bus"
	"prodisco/pkg/db"
	gos3 "prodisco/pkg/s3"
	"prodisco/pkg/telemetry"
	"prodisco/services/discovery"
	"prodisco/services/discovery/internal/config"
)

const serviceName = "discoveryd"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg(serviceName)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	logger := log.With().Str("service", serviceName).Logger()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shutdownTelemetry, middleware, err := telemetry.Init(ctx, serviceName, cfg.OTELEndpoint, logger)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("telemetry shutdown")
		}
	}()

	repo, pool, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	files, err := discovery.NewFileStore(cfg.FilesPath())
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	var archives *gos3.Client
	if cfg.S3.Bucket != "" {
		archives, err = gos3.NewClient(ctx, gos3.Config{
			Endpoint:       cfg.S3.Endpoint,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			DisableTLS:     cfg.S3.DisableTLS,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fmt.Errorf("init archive store: %w", err)
		}
		logger.Info().Str("bucket", cfg.S3.Bucket).Msg("archives offloaded to object storage")
	}

	var publisher discovery.Publisher
	var broker *bus.Bus
	if cfg.BrokerURL != "" {
		broker, err = bus.Connect(cfg.BrokerURL)
		if err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
		defer broker.Close()

		publisher, err = discovery.NewBusPublisher(broker)
		if err != nil {
			return err
		}
	} else {
		logger.Warn().Msg("no broker configured; dispatch is stubbed")
		publisher = discovery.NewStubPublisher(logger)
	}

	notifier := discovery.NewWebhookNotifier(logger)

	orch, err := discovery.NewOrchestrator(repo, files, publisher, notifier, discovery.OrchestratorConfig{
		BaseURL:       cfg.BaseURL,
		Archives:      archives,
		ArchiveURLTTL: cfg.ArchiveURLTTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	if broker != nil {
		consumer, err := discovery.NewConsumer(broker, orch, logger)
		if err != nil {
			return err
		}
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("start report consumer: %w", err)
		}
		defer consumer.Close()
	}

	sweeper, err := discovery.NewSweeper(repo, cfg.RetentionWindow, cfg.SweepInterval, logger)
	if err != nil {
		return fmt.Errorf("init sweeper: %w", err)
	}
	go sweeper.Run(ctx)

	api, err := discovery.NewAPI(orch, repo, pool, discovery.APIConfig{
		AllowedOrigins:  cfg.AllowedOrigins,
		SubmitRateLimit: cfg.SubmitRateLimit,
	}, logger)
	if err != nil {
		return fmt.Errorf("init api: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := db.Ping(r.Context(), pool); err != nil {
				http.Error(w, "database not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api.Routes())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
	}()

	logger.Info().Str("addr", cfg.Addr).Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http: %w", err)
	}

	return nil
}

// openStorage connects the repository backing the lifecycle engine. Without
// a DSN it falls back to the in-memory repository; the pgx pool then stays
// nil and the stats endpoint is disabled.
func openStorage(ctx context.Context, cfg config.Config, logger zerolog.Logger) (discovery.Repository, *pgxpool.Pool, func(), error) {
	if cfg.DatabaseDSN == "" {
		logger.Warn().Msg("no database configured; using in-memory repository")
		repo, err := discovery.NewMemoryRepository(cfg.DiscoveriesPath())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init memory repository: %w", err)
		}
		return repo, nil, func() {}, nil
	}

	pool, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	orm, err := db.ConnectORM(cfg.DatabaseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("connect orm: %w", err)
	}

	repo, err := discovery.NewGormRepository(orm, cfg.DiscoveriesPath())
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("init repository: %w", err)
	}

	closer := func() {
		if err := db.CloseORM(orm); err != nil {
			logger.Error().Err(err).Msg("close orm")
		}
		pool.Close()
	}
	return repo, pool, closer, nil
}

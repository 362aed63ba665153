package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	gos3 "prodisco/pkg/s3"
)

// OrchestratorConfig controls archive URL construction.
type OrchestratorConfig struct {
	// BaseURL prefixes locally served archive URLs, e.g. "http://host:8080".
	BaseURL string
	// Archives, when set, offloads result bundles to S3 and presigns the
	// archive URL instead of serving it locally.
	Archives *gos3.Client
	// ArchiveURLTTL bounds the validity of presigned archive URLs.
	ArchiveURLTTL time.Duration
}

// Orchestrator drives a discovery through its lifecycle: it validates and
// persists submissions, hands them to the dispatch gateway, ingests worker
// reports, archives results, and triggers notification.
type Orchestrator struct {
	repo      Repository
	files     *FileStore
	publisher Publisher
	notifier  Notifier
	config    OrchestratorConfig
	log       zerolog.Logger
}

// NewOrchestrator wires the orchestrator's dependencies.
func NewOrchestrator(repo Repository, files *FileStore, publisher Publisher, notifier Notifier, cfg OrchestratorConfig, logger zerolog.Logger) (*Orchestrator, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if files == nil {
		return nil, errors.New("file store is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if cfg.BaseURL == "" && cfg.Archives == nil {
		return nil, errors.New("base URL is required when archives are served locally")
	}
	if cfg.ArchiveURLTTL <= 0 {
		cfg.ArchiveURLTTL = 7 * 24 * time.Hour
	}

	return &Orchestrator{
		repo:      repo,
		files:     files,
		publisher: publisher,
		notifier:  notifier,
		config:    cfg,
		log:       logger,
	}, nil
}

// Submission carries the raw upload payload of a new discovery request.
type Submission struct {
	Configuration       []byte
	EventLog            []byte
	EventLogContentType string
	CallbackURL         string
	Email               string
}

// Submit validates the submission, stores its inputs in the file pool,
// persists an accepted discovery, and dispatches it asynchronously. The
// returned discovery is in the accepted state; callers poll for later ones.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (Discovery, error) {
	if sub.Email != "" {
		return Discovery{}, fmt.Errorf("email notifications: %w", ErrNotSupported)
	}
	if len(sub.Configuration) == 0 {
		return Discovery{}, fmt.Errorf("%w: configuration is required", ErrInvalid)
	}
	if len(sub.EventLog) == 0 {
		return Discovery{}, fmt.Errorf("%w: event log is required", ErrInvalid)
	}

	ext, ok := eventLogExtension(sub.EventLogContentType)
	if !ok {
		return Discovery{}, fmt.Errorf("event log content type %q: %w", sub.EventLogContentType, ErrUnsupportedMediaType)
	}

	logRef, err := o.files.Put(sub.EventLog, ext)
	if err != nil {
		return Discovery{}, fmt.Errorf("store event log: %w", err)
	}

	rewritten, err := rewriteConfiguration(sub.Configuration, logRef.Path)
	if err != nil {
		return Discovery{}, err
	}

	cfgRef, err := o.files.Put(rewritten, ".yaml")
	if err != nil {
		return Discovery{}, fmt.Errorf("store configuration: %w", err)
	}

	var settings *NotificationSettings
	if sub.CallbackURL != "" {
		settings = &NotificationSettings{
			Method:      NotificationMethodHTTP,
			CallbackURL: sub.CallbackURL,
		}
	}

	created, err := o.repo.Create(ctx, Discovery{
		Status:               StatusAccepted,
		ConfigurationPath:    cfgRef.Path,
		EventLogPath:         logRef.Path,
		NotificationSettings: settings,
	})
	if err != nil {
		return Discovery{}, err
	}

	o.log.Info().
		Stringer("discovery_id", created.ID).
		Str("status", string(created.Status)).
		Msg("discovery accepted")
	submissionsTotal.Inc()

	// Dispatch must not block the submission path; its outcome is recorded
	// as a status transition.
	go o.dispatch(context.WithoutCancel(ctx), created)

	return created, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, d Discovery) {
	if err := o.publisher.PublishPending(ctx, d.ID, d.ConfigurationPath); err != nil {
		o.log.Error().Err(err).
			Stringer("discovery_id", d.ID).
			Msg("dispatch failed")
		dispatchFailuresTotal.Inc()
		o.saveStatusLogged(ctx, d.ID, StatusFailed, nil)
		return
	}

	o.saveStatusLogged(ctx, d.ID, StatusPending, nil)
}

// ReportStarted records that a worker has begun executing the discovery. A
// late or duplicate report against a record past pending is a no-op.
func (o *Orchestrator) ReportStarted(ctx context.Context, id uuid.UUID) error {
	err := o.repo.SaveStatus(ctx, id, StatusRunning, nil)
	if errors.Is(err, ErrStaleTransition) {
		return nil
	}
	return err
}

// ReportCompletion ingests a worker's completion report. It is idempotent:
// a report for a discovery already settled returns without side effects, so
// duplicate broker delivery never re-archives or re-notifies.
func (o *Orchestrator) ReportCompletion(ctx context.Context, id uuid.UUID, returnCode int, stdout, stderr string) error {
	d, err := o.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.Status.Settled() {
		o.log.Debug().
			Stringer("discovery_id", id).
			Str("status", string(d.Status)).
			Msg("completion report ignored: discovery already settled")
		return nil
	}

	if returnCode != 0 {
		o.log.Warn().
			Stringer("discovery_id", id).
			Int("return_code", returnCode).
			Str("stderr", truncate(stderr, 2048)).
			Msg("discovery failed")
		completionsTotal.WithLabelValues("failed").Inc()
		o.saveStatusLogged(ctx, id, StatusFailed, nil)
		return nil
	}
	_ = stdout

	archivePath, err := archiveResults(d.OutputDir)
	if err != nil {
		o.log.Error().Err(err).
			Stringer("discovery_id", id).
			Msg("archiving results failed")
		completionsTotal.WithLabelValues("failed").Inc()
		o.saveStatusLogged(ctx, id, StatusFailed, nil)
		return nil
	}

	archiveURL, err := o.archiveURL(ctx, d.ID, archivePath)
	if err != nil {
		o.log.Error().Err(err).
			Stringer("discovery_id", id).
			Msg("publishing archive failed")
		completionsTotal.WithLabelValues("failed").Inc()
		o.saveStatusLogged(ctx, id, StatusFailed, nil)
		return nil
	}

	if err := o.repo.SaveStatus(ctx, id, StatusSucceeded, &archiveURL); err != nil {
		if errors.Is(err, ErrStaleTransition) {
			// lost the race to a concurrent report
			return nil
		}
		return err
	}

	o.log.Info().
		Stringer("discovery_id", id).
		Str("archive_url", archiveURL).
		Msg("discovery succeeded")
	completionsTotal.WithLabelValues("succeeded").Inc()

	o.notify(ctx, id, d.NotificationSettings, archiveURL)
	return nil
}

// archiveURL decides where the result bundle is reachable: a presigned S3
// URL when offload is configured, the local file-serving endpoint otherwise.
func (o *Orchestrator) archiveURL(ctx context.Context, id uuid.UUID, archivePath string) (string, error) {
	if o.config.Archives == nil {
		return fmt.Sprintf("%s/v1/discoveries/%s/%s",
			strings.TrimRight(o.config.BaseURL, "/"), id, filepath.Base(archivePath)), nil
	}

	content, err := os.ReadFile(archivePath)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("discoveries/%s/%s", id, filepath.Base(archivePath))
	if err := o.config.Archives.PutObject(ctx, key, content); err != nil {
		return "", fmt.Errorf("upload archive: %w", err)
	}

	return o.config.Archives.PresignGet(ctx, key, o.config.ArchiveURLTTL)
}

func (o *Orchestrator) notify(ctx context.Context, id uuid.UUID, settings *NotificationSettings, archiveURL string) {
	if settings == nil {
		return
	}

	if err := o.notifier.Notify(ctx, settings, archiveURL); err != nil {
		o.log.Warn().Err(err).
			Stringer("discovery_id", id).
			Msg("notification delivery failed")
		notificationsTotal.WithLabelValues("failed").Inc()
		return
	}
	notificationsTotal.WithLabelValues("delivered").Inc()

	d, err := o.repo.Get(ctx, id)
	if err != nil {
		o.log.Warn().Err(err).
			Stringer("discovery_id", id).
			Msg("loading discovery to mark notified failed")
		return
	}
	d.Notified = true
	if err := o.repo.Save(ctx, d); err != nil {
		o.log.Warn().Err(err).
			Stringer("discovery_id", id).
			Msg("marking discovery notified failed")
	}
}

// Remove reclaims the discovery's filesystem artifacts and transitions it
// to deleted regardless of prior state. Removing an already deleted
// discovery is a no-op.
func (o *Orchestrator) Remove(ctx context.Context, id uuid.UUID) (Discovery, error) {
	d, err := o.repo.Get(ctx, id)
	if err != nil {
		return Discovery{}, err
	}

	if d.OutputDir != "" {
		if err := os.RemoveAll(d.OutputDir); err != nil {
			return Discovery{}, fmt.Errorf("remove output dir: %w", err)
		}
	}

	if err := o.repo.SaveStatus(ctx, id, StatusDeleted, nil); err != nil && !errors.Is(err, ErrStaleTransition) {
		return Discovery{}, err
	}

	return o.repo.Get(ctx, id)
}

// RemoveAll reclaims every discovery's artifacts and deletes all records,
// returning the number removed. Per-record filesystem failures are logged
// and do not abort the pass.
func (o *Orchestrator) RemoveAll(ctx context.Context) (int64, error) {
	discoveries, err := o.repo.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	for _, d := range discoveries {
		if d.OutputDir == "" {
			continue
		}
		if err := os.RemoveAll(d.OutputDir); err != nil {
			o.log.Warn().Err(err).
				Stringer("discovery_id", d.ID).
				Msg("removing output dir failed")
		}
	}

	return o.repo.DeleteAll(ctx)
}

func (o *Orchestrator) saveStatusLogged(ctx context.Context, id uuid.UUID, status Status, archiveURL *string) {
	err := o.repo.SaveStatus(ctx, id, status, archiveURL)
	if err != nil && !errors.Is(err, ErrStaleTransition) {
		o.log.Error().Err(err).
			Stringer("discovery_id", id).
			Str("status", string(status)).
			Msg("status transition failed")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

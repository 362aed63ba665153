package discovery

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper enforces the retention policy: finished discoveries past the
// retention window are marked expired, and expired ones have their
// filesystem artifacts reclaimed and are marked deleted.
type Sweeper struct {
	repo      Repository
	retention time.Duration
	interval  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewSweeper creates a sweeper scanning every interval and expiring
// discoveries finished longer than retention ago.
func NewSweeper(repo Repository, retention, interval time.Duration, logger zerolog.Logger) (*Sweeper, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if retention <= 0 {
		return nil, errors.New("retention window must be positive")
	}
	if interval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}
	return &Sweeper{
		repo:      repo,
		retention: retention,
		interval:  interval,
		log:       logger,
		now:       time.Now,
	}, nil
}

// Run loops until ctx is cancelled. A tick runs to completion before the
// next is taken, so sweeps never overlap.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.log.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}

// Sweep performs one scan-and-mutate pass. Each discovery is processed
// independently; per-record failures are logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) error {
	discoveries, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}

	now := s.now().UTC()

	for _, d := range discoveries {
		switch {
		case s.pastRetention(d, now):
			if err := s.repo.SaveStatus(ctx, d.ID, StatusExpired, nil); err != nil {
				if !errors.Is(err, ErrStaleTransition) {
					s.log.Warn().Err(err).
						Stringer("discovery_id", d.ID).
						Msg("marking discovery expired failed")
				}
				continue
			}
			sweepExpiredTotal.Inc()

		case d.Status == StatusExpired:
			if d.OutputDir != "" {
				if err := os.RemoveAll(d.OutputDir); err != nil {
					s.log.Warn().Err(err).
						Stringer("discovery_id", d.ID).
						Msg("reclaiming output dir failed")
					continue
				}
			}
			if err := s.repo.SaveStatus(ctx, d.ID, StatusDeleted, nil); err != nil {
				if !errors.Is(err, ErrStaleTransition) {
					s.log.Warn().Err(err).
						Stringer("discovery_id", d.ID).
						Msg("marking discovery deleted failed")
				}
				continue
			}
			sweepReclaimedTotal.Inc()
		}
	}

	return nil
}

func (s *Sweeper) pastRetention(d Discovery, now time.Time) bool {
	if d.Status != StatusSucceeded && d.Status != StatusFailed {
		return false
	}
	if d.FinishedTimestamp == nil {
		return false
	}
	return now.Sub(*d.FinishedTimestamp) > s.retention
}

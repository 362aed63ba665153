package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists Discovery records. Implementations must make
// SaveStatus a per-record atomic conditional update: two concurrent status
// updates for the same id must serialize, and one that finds the record in
// a disallowed source state must fail with ErrStaleTransition.
type Repository interface {
	// Create assigns the id and created timestamp, provisions the
	// discovery's output directory, and persists the record.
	Create(ctx context.Context, d Discovery) (Discovery, error)
	Get(ctx context.Context, id uuid.UUID) (Discovery, error)
	// Save upserts all mutable fields, keyed by id.
	Save(ctx context.Context, d Discovery) error
	// SaveStatus updates only the status, the timestamp belonging to the
	// transition, and the archive URL when transitioning to succeeded.
	SaveStatus(ctx context.Context, id uuid.UUID, status Status, archiveURL *string) error
	GetAll(ctx context.Context) ([]Discovery, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// statusUpdates builds the column set a transition writes. The in-memory
// repository mirrors these semantics field by field.
func statusUpdates(status Status, archiveURL *string, now time.Time) map[string]any {
	updates := map[string]any{"status": string(status)}

	switch status {
	case StatusRunning:
		updates["started_timestamp"] = now
	case StatusSucceeded, StatusFailed, StatusDeleted:
		updates["finished_timestamp"] = now
	}

	if status == StatusSucceeded && archiveURL != nil {
		updates["archive_url"] = *archiveURL
	}
	if status == StatusExpired || status == StatusDeleted {
		// results become unreachable once expired or reclaimed
		updates["archive_url"] = nil
	}

	return updates
}

// GormRepository stores discoveries in PostgreSQL.
type GormRepository struct {
	orm             *gorm.DB
	discoveriesRoot string
}

// NewGormRepository creates a repository writing records to orm and
// provisioning output directories under discoveriesRoot.
func NewGormRepository(orm *gorm.DB, discoveriesRoot string) (*GormRepository, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	if discoveriesRoot == "" {
		return nil, errors.New("discoveries root is required")
	}
	if err := os.MkdirAll(discoveriesRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create discoveries root: %w", err)
	}
	return &GormRepository{orm: orm, discoveriesRoot: discoveriesRoot}, nil
}

func (r *GormRepository) Create(ctx context.Context, d Discovery) (Discovery, error) {
	d.ID = uuid.New()
	d.CreatedTimestamp = time.Now().UTC()
	d.OutputDir = filepath.Join(r.discoveriesRoot, d.ID.String())

	if err := os.MkdirAll(d.OutputDir, 0o755); err != nil {
		return Discovery{}, fmt.Errorf("provision output dir: %w", err)
	}

	model, err := modelFromDiscovery(d)
	if err != nil {
		return Discovery{}, err
	}
	if err := r.orm.WithContext(ctx).Create(&model).Error; err != nil {
		return Discovery{}, err
	}

	return model.toAPI(), nil
}

func (r *GormRepository) Get(ctx context.Context, id uuid.UUID) (Discovery, error) {
	var model discoveryModel
	err := r.orm.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Discovery{}, fmt.Errorf("discovery %s: %w", id, ErrNotFound)
		}
		return Discovery{}, err
	}
	return model.toAPI(), nil
}

func (r *GormRepository) Save(ctx context.Context, d Discovery) error {
	model, err := modelFromDiscovery(d)
	if err != nil {
		return err
	}

	res := r.orm.WithContext(ctx).Save(&model)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *GormRepository) SaveStatus(ctx context.Context, id uuid.UUID, status Status, archiveURL *string) error {
	sources := AllowedSources(status)
	if len(sources) == 0 {
		return fmt.Errorf("%w: no transition reaches %s", ErrInvalid, status)
	}

	res := r.orm.WithContext(ctx).
		Model(&discoveryModel{}).
		Where("id = ? AND status IN ?", id, statusStrings(sources)).
		Updates(statusUpdates(status, archiveURL, time.Now().UTC()))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Zero rows means either a missing record or a transition the current
	// state disallows; distinguish the two for the caller.
	var count int64
	if err := r.orm.WithContext(ctx).
		Model(&discoveryModel{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("discovery %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("discovery %s to %s: %w", id, status, ErrStaleTransition)
}

func (r *GormRepository) GetAll(ctx context.Context) ([]Discovery, error) {
	var models []discoveryModel
	err := r.orm.WithContext(ctx).
		Order("created_timestamp ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	discoveries := make([]Discovery, 0, len(models))
	for _, m := range models {
		discoveries = append(discoveries, m.toAPI())
	}
	return discoveries, nil
}

func (r *GormRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.orm.WithContext(ctx).
		Where("1 = 1").
		Delete(&discoveryModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps discoveries in process memory. It backs tests and
// broker-less local runs; semantics match GormRepository, including the
// conditional SaveStatus contract.
type MemoryRepository struct {
	discoveriesRoot string

	mu      sync.Mutex
	records map[uuid.UUID]Discovery
	now     func() time.Time
}

// NewMemoryRepository creates an in-memory repository provisioning output
// directories under discoveriesRoot.
func NewMemoryRepository(discoveriesRoot string) (*MemoryRepository, error) {
	if discoveriesRoot == "" {
		return nil, fmt.Errorf("discoveries root is required")
	}
	if err := os.MkdirAll(discoveriesRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create discoveries root: %w", err)
	}
	return &MemoryRepository{
		discoveriesRoot: discoveriesRoot,
		records:         make(map[uuid.UUID]Discovery),
		now:             time.Now,
	}, nil
}

func (r *MemoryRepository) Create(_ context.Context, d Discovery) (Discovery, error) {
	d.ID = uuid.New()
	d.CreatedTimestamp = r.now().UTC()
	d.OutputDir = filepath.Join(r.discoveriesRoot, d.ID.String())

	if err := os.MkdirAll(d.OutputDir, 0o755); err != nil {
		return Discovery{}, fmt.Errorf("provision output dir: %w", err)
	}

	r.mu.Lock()
	r.records[d.ID] = d
	r.mu.Unlock()

	return d, nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (Discovery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.records[id]
	if !ok {
		return Discovery{}, fmt.Errorf("discovery %s: %w", id, ErrNotFound)
	}
	return d, nil
}

func (r *MemoryRepository) Save(_ context.Context, d Discovery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[d.ID] = d
	return nil
}

func (r *MemoryRepository) SaveStatus(_ context.Context, id uuid.UUID, status Status, archiveURL *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.records[id]
	if !ok {
		return fmt.Errorf("discovery %s: %w", id, ErrNotFound)
	}
	if !CanTransition(d.Status, status) {
		return fmt.Errorf("discovery %s to %s: %w", id, status, ErrStaleTransition)
	}

	now := r.now().UTC()
	d.Status = status

	switch status {
	case StatusRunning:
		d.StartedTimestamp = &now
	case StatusSucceeded, StatusFailed, StatusDeleted:
		d.FinishedTimestamp = &now
	}

	if status == StatusSucceeded && archiveURL != nil {
		url := *archiveURL
		d.ArchiveURL = &url
	}
	if status == StatusExpired || status == StatusDeleted {
		d.ArchiveURL = nil
	}

	r.records[id] = d
	return nil
}

func (r *MemoryRepository) GetAll(_ context.Context) ([]Discovery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	discoveries := make([]Discovery, 0, len(r.records))
	for _, d := range r.records {
		discoveries = append(discoveries, d)
	}
	return discoveries, nil
}

func (r *MemoryRepository) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := int64(len(r.records))
	r.records = make(map[uuid.UUID]Discovery)
	return count, nil
}

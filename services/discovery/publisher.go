package discovery

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"prodisco/pkg/bus"
)

// Publisher announces accepted discoveries to the worker pool.
type Publisher interface {
	PublishPending(ctx context.Context, id uuid.UUID, configurationPath string) error
}

// BusPublisher publishes pending announcements on the broker with durable
// delivery.
type BusPublisher struct {
	bus *bus.Bus
}

// NewBusPublisher wraps an established broker connection.
func NewBusPublisher(b *bus.Bus) (*BusPublisher, error) {
	if b == nil {
		return nil, errors.New("bus is required")
	}
	return &BusPublisher{bus: b}, nil
}

func (p *BusPublisher) PublishPending(ctx context.Context, id uuid.UUID, configurationPath string) error {
	return p.bus.Publish(ctx, SubjectPending, pendingEvent{
		DiscoveryID:       id,
		ConfigurationPath: configurationPath,
	})
}

// StubPublisher logs announcements instead of publishing them. Used for
// broker-less local runs and tests.
type StubPublisher struct {
	log zerolog.Logger
}

// NewStubPublisher returns a publisher that only logs.
func NewStubPublisher(logger zerolog.Logger) *StubPublisher {
	return &StubPublisher{log: logger}
}

func (p *StubPublisher) PublishPending(_ context.Context, id uuid.UUID, configurationPath string) error {
	p.log.Info().
		Stringer("discovery_id", id).
		Str("configuration_path", configurationPath).
		Msg("stub publisher: discovery announced")
	return nil
}

package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"prodisco/pkg/bus"
)

// Consumer feeds worker lifecycle reports from the broker into the
// orchestrator. Delivery is at-least-once: handlers ack malformed payloads
// to drop them, nack transient failures for redelivery, and rely on the
// orchestrator's idempotency for duplicates.
type Consumer struct {
	bus  *bus.Bus
	orch *Orchestrator
	log  zerolog.Logger

	subsMu sync.Mutex
	subs   []io.Closer
}

// NewConsumer creates a consumer bound to the provided dependencies.
func NewConsumer(b *bus.Bus, orch *Orchestrator, logger zerolog.Logger) (*Consumer, error) {
	if b == nil {
		return nil, errors.New("bus is required")
	}
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	return &Consumer{bus: b, orch: orch, log: logger}, nil
}

// Start registers the durable subscriptions and begins processing reports.
func (c *Consumer) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	specs := []struct {
		subject string
		durable string
		handler func(context.Context, []byte) error
	}{
		{SubjectStarted, "discovery-reports-started", c.handleStarted},
		{SubjectCompleted, "discovery-reports-completed", c.handleCompleted},
	}

	for _, spec := range specs {
		closer, err := c.bus.Subscribe(ctx, spec.subject, spec.durable, spec.handler)
		if err != nil {
			c.Close()
			return err
		}
		c.subsMu.Lock()
		c.subs = append(c.subs, closer)
		c.subsMu.Unlock()
	}

	return nil
}

// Close tears down active subscriptions.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	var firstErr error
	for _, sub := range c.subs {
		if sub == nil {
			continue
		}
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.subs = nil
	return firstErr
}

func (c *Consumer) handleStarted(ctx context.Context, data []byte) error {
	var evt startedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		c.log.Warn().Err(err).Msg("dropping malformed started report")
		return nil
	}
	if evt.DiscoveryID == uuid.Nil {
		c.log.Warn().Msg("dropping started report without discovery_id")
		return nil
	}

	err := c.orch.ReportStarted(ctx, evt.DiscoveryID)
	if errors.Is(err, ErrNotFound) {
		c.log.Warn().
			Stringer("discovery_id", evt.DiscoveryID).
			Msg("dropping started report for unknown discovery")
		return nil
	}
	return err
}

func (c *Consumer) handleCompleted(ctx context.Context, data []byte) error {
	var evt completedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		c.log.Warn().Err(err).Msg("dropping malformed completion report")
		return nil
	}
	if evt.DiscoveryID == uuid.Nil {
		c.log.Warn().Msg("dropping completion report without discovery_id")
		return nil
	}

	err := c.orch.ReportCompletion(ctx, evt.DiscoveryID, evt.ReturnCode, evt.Stdout, evt.Stderr)
	if errors.Is(err, ErrNotFound) {
		c.log.Warn().
			Stringer("discovery_id", evt.DiscoveryID).
			Msg("dropping completion report for unknown discovery")
		return nil
	}
	return err
}

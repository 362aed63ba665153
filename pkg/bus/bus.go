package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// Bus wraps a NATS JetStream connection for publishing discovery job
// announcements and consuming worker lifecycle reports.
type Bus struct {
	url  string
	opts []nats.Option

	mu   sync.Mutex
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Connect dials the broker. The initial connect is retried up to five times
// with a one second pause between attempts; exhausting the budget is fatal
// for the call.
func Connect(url string, opts ...nats.Option) (*Bus, error) {
	b := &Bus{url: url, opts: opts}

	var lastErr error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(connectBackoff)
		}
		if err := b.dial(); err != nil {
			lastErr = err
			continue
		}
		return b, nil
	}

	return nil, fmt.Errorf("bus: connect to %s after %d attempts: %w", url, connectAttempts, lastErr)
}

func (b *Bus) dial() error {
	nc, err := nats.Connect(b.url, b.opts...)
	if err != nil {
		return err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return err
	}

	b.mu.Lock()
	b.conn, b.js = nc, js
	b.mu.Unlock()
	return nil
}

// Close shuts down the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	conn := b.conn
	b.conn, b.js = nil, nil
	b.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
	}
}

// Publish encodes v as JSON and publishes it to the given subject with
// persistent (JetStream) delivery. A transport-level failure triggers one
// reconnect and one retry; a second failure is surfaced to the caller, never
// retried again at this layer.
func (b *Bus) Publish(ctx context.Context, subj string, v any) error {
	if b == nil {
		return errors.New("nil bus")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	err = b.publish(ctx, subj, data)
	if err == nil || !isTransportError(err) {
		return err
	}

	if rerr := b.reconnect(); rerr != nil {
		return errors.Join(err, rerr)
	}
	return b.publish(ctx, subj, data)
}

func (b *Bus) publish(ctx context.Context, subj string, data []byte) error {
	b.mu.Lock()
	js := b.js
	b.mu.Unlock()

	if js == nil {
		return nats.ErrConnectionClosed
	}
	_, err := js.Publish(subj, data, nats.Context(ctx))
	return err
}

func (b *Bus) reconnect() error {
	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn, b.js = nil, nil
	b.mu.Unlock()

	return b.dial()
}

func isTransportError(err error) bool {
	return errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionDraining) ||
		errors.Is(err, nats.ErrConnectionReconnecting) ||
		errors.Is(err, nats.ErrInvalidConnection) ||
		errors.Is(err, nats.ErrTimeout)
}

type subscription struct {
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sub.Drain()
}

// Subscribe creates a durable consumer on the given subject and invokes fn
// for each message. A handler error nacks the message for redelivery, which
// gives report ingestion its at-least-once semantics.
func (b *Bus) Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error) {
	if b == nil {
		return nil, errors.New("nil bus")
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}

	handler := func(msg *nats.Msg) {
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		if err := fn(handlerCtx, msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}

	b.mu.Lock()
	js := b.js
	b.mu.Unlock()
	if js == nil {
		return nil, nats.ErrConnectionClosed
	}

	sub, err := js.Subscribe(subj, handler, nats.Durable(durable), nats.ManualAck(), nats.AckExplicit())
	if err != nil {
		return nil, err
	}

	s := &subscription{sub: sub}

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return s, nil
}

package discovery

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestConsumer(t *testing.T) (*Consumer, *fixture) {
	t.Helper()
	f := newFixture(t)
	return &Consumer{orch: f.orch, log: zerolog.Nop()}, f
}

func TestConsumerHandleStarted(t *testing.T) {
	c, f := newTestConsumer(t)

	d, err := f.orch.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	f.waitForStatus(t, d.ID, StatusPending)

	payload, err := json.Marshal(startedEvent{DiscoveryID: d.ID})
	require.NoError(t, err)
	require.NoError(t, c.handleStarted(context.Background(), payload))

	got, err := f.repo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRunning, got.Status)
}

func TestConsumerHandleCompleted(t *testing.T) {
	c, f := newTestConsumer(t)

	d, err := f.orch.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	f.waitForStatus(t, d.ID, StatusPending)

	plantResults(t, d.OutputDir)
	payload, err := json.Marshal(completedEvent{DiscoveryID: d.ID, ReturnCode: 0})
	require.NoError(t, err)
	require.NoError(t, c.handleCompleted(context.Background(), payload))

	got, err := f.repo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, got.Status)

	// redelivery is acked without side effects
	require.NoError(t, c.handleCompleted(context.Background(), payload))
	require.Equal(t, 1, f.notifier.count())
}

func TestConsumerDropsBadPayloads(t *testing.T) {
	c, _ := newTestConsumer(t)

	// malformed and unknown reports must be acked (nil error), not
	// redelivered forever
	require.NoError(t, c.handleStarted(context.Background(), []byte("{")))
	require.NoError(t, c.handleCompleted(context.Background(), []byte("not json")))
	require.NoError(t, c.handleStarted(context.Background(), []byte(`{"discovery_id": "00000000-0000-0000-0000-000000000000"}`)))

	unknown, err := json.Marshal(completedEvent{DiscoveryID: uuid.New(), ReturnCode: 0})
	require.NoError(t, err)
	require.NoError(t, c.handleCompleted(context.Background(), unknown))
}

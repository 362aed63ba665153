package discovery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{name: "accepted to pending", from: StatusAccepted, to: StatusPending, want: true},
		{name: "pending to running", from: StatusPending, to: StatusRunning, want: true},
		{name: "accepted skips to running", from: StatusAccepted, to: StatusRunning, want: true},
		{name: "running to succeeded", from: StatusRunning, to: StatusSucceeded, want: true},
		{name: "running to failed", from: StatusRunning, to: StatusFailed, want: true},
		{name: "pending skips to succeeded", from: StatusPending, to: StatusSucceeded, want: true},
		{name: "succeeded to expired", from: StatusSucceeded, to: StatusExpired, want: true},
		{name: "failed to expired", from: StatusFailed, to: StatusExpired, want: true},
		{name: "running cannot expire", from: StatusRunning, to: StatusExpired, want: false},
		{name: "no going back to pending", from: StatusRunning, to: StatusPending, want: false},
		{name: "settled stays settled", from: StatusSucceeded, to: StatusFailed, want: false},
		{name: "failed cannot succeed", from: StatusFailed, to: StatusSucceeded, want: false},
		{name: "delete from accepted", from: StatusAccepted, to: StatusDeleted, want: true},
		{name: "delete from running", from: StatusRunning, to: StatusDeleted, want: true},
		{name: "delete from expired", from: StatusExpired, to: StatusDeleted, want: true},
		{name: "delete is terminal", from: StatusDeleted, to: StatusDeleted, want: false},
		{name: "deleted cannot revive", from: StatusDeleted, to: StatusRunning, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("running")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, got)

	_, err = ParseStatus("sleeping")
	require.ErrorIs(t, err, ErrInvalid)

	// "unknown" is internal only, never accepted over the wire
	_, err = ParseStatus("unknown")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestSettled(t *testing.T) {
	settled := []Status{StatusSucceeded, StatusFailed, StatusExpired, StatusDeleted}
	for _, s := range settled {
		require.True(t, s.Settled(), "status %s", s)
	}
	live := []Status{StatusUnknown, StatusAccepted, StatusPending, StatusRunning}
	for _, s := range live {
		require.False(t, s.Settled(), "status %s", s)
	}
}

package discovery

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status enumerates the lifecycle states of a discovery. This is the single
// canonical vocabulary; every component shares it.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusAccepted  Status = "accepted"
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
	StatusDeleted   Status = "deleted"
)

// ParseStatus validates a status received over the wire.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusAccepted, StatusPending, StatusRunning, StatusSucceeded,
		StatusFailed, StatusExpired, StatusDeleted:
		return Status(s), nil
	}
	return StatusUnknown, fmt.Errorf("%w: unknown status %q", ErrInvalid, s)
}

// Settled reports whether the discovery accepts no further worker-driven
// transitions. A completion report against a settled discovery is a no-op.
func (s Status) Settled() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusExpired, StatusDeleted:
		return true
	}
	return false
}

// transitionSources maps each target status to the statuses it may be
// reached from. StatusDeleted is handled separately: an explicit delete is
// allowed from any state except deleted itself.
var transitionSources = map[Status][]Status{
	StatusPending:   {StatusAccepted},
	StatusRunning:   {StatusAccepted, StatusPending},
	StatusSucceeded: {StatusAccepted, StatusPending, StatusRunning},
	StatusFailed:    {StatusAccepted, StatusPending, StatusRunning},
	StatusExpired:   {StatusSucceeded, StatusFailed},
}

// AllowedSources returns the set of statuses from which target may be
// reached. The result backs the repository's conditional status update.
func AllowedSources(target Status) []Status {
	if target == StatusDeleted {
		return []Status{
			StatusUnknown, StatusAccepted, StatusPending, StatusRunning,
			StatusSucceeded, StatusFailed, StatusExpired,
		}
	}
	return transitionSources[target]
}

// CanTransition reports whether moving from one status to another follows
// the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, s := range AllowedSources(to) {
		if s == from {
			return true
		}
	}
	return false
}

// NotificationMethod selects how completion is reported to the caller.
type NotificationMethod string

const (
	NotificationMethodHTTP  NotificationMethod = "callback"
	NotificationMethodEmail NotificationMethod = "email"
)

// NotificationSettings carries the caller-supplied completion callback.
// Email is declared for wire compatibility but not implemented; submissions
// carrying it are rejected before persistence.
type NotificationSettings struct {
	Method      NotificationMethod `json:"method"`
	CallbackURL string             `json:"callback_url,omitempty"`
	Email       string             `json:"email,omitempty"`
}

// Discovery is one submitted simulation-model discovery job and its tracked
// lifecycle state.
type Discovery struct {
	ID                   uuid.UUID             `json:"id"`
	Status               Status                `json:"status"`
	ConfigurationPath    string                `json:"configuration_path"`
	EventLogPath         string                `json:"event_log_path,omitempty"`
	OutputDir            string                `json:"output_dir,omitempty"`
	ArchiveURL           *string               `json:"archive_url,omitempty"`
	NotificationSettings *NotificationSettings `json:"notification_settings,omitempty"`
	Notified             bool                  `json:"notified"`
	CreatedTimestamp     time.Time             `json:"created_timestamp"`
	StartedTimestamp     *time.Time            `json:"started_timestamp,omitempty"`
	FinishedTimestamp    *time.Time            `json:"finished_timestamp,omitempty"`
}

package discovery

import "github.com/google/uuid"

// Broker subjects. Pending announcements address the worker pool; started
// and completed reports flow back from it.
const (
	SubjectPending   = "prodisco.discoveries.pending"
	SubjectStarted   = "prodisco.discoveries.started"
	SubjectCompleted = "prodisco.discoveries.completed"
)

type pendingEvent struct {
	DiscoveryID       uuid.UUID `json:"discovery_id"`
	ConfigurationPath string    `json:"configuration_path"`
}

type startedEvent struct {
	DiscoveryID uuid.UUID `json:"discovery_id"`
}

type completedEvent struct {
	DiscoveryID uuid.UUID `json:"discovery_id"`
	ReturnCode  int       `json:"return_code"`
	Stdout      string    `json:"stdout,omitempty"`
	Stderr      string    `json:"stderr,omitempty"`
}

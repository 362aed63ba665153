package discovery

import "errors"

var (
	// ErrNotFound marks a missing discovery or served file.
	ErrNotFound = errors.New("not found")

	// ErrNotSupported marks a declared-but-unimplemented feature, such as
	// email notifications.
	ErrNotSupported = errors.New("not supported")

	// ErrUnsupportedMediaType marks an event log upload whose content type
	// cannot be mapped to a known log format.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrInvalid marks a malformed submission or request payload.
	ErrInvalid = errors.New("invalid request")

	// ErrStaleTransition is returned by a repository when a conditional
	// status update finds the record in a state the transition graph does
	// not allow as a source. Duplicate completion reports surface as this
	// and are treated as no-ops.
	ErrStaleTransition = errors.New("stale status transition")
)

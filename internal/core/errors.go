package core

import "errors"

// Error taxonomy shared by the receiver, the review pipeline and the HTTP layer.
// Callers wrap these with context and classify with errors.Is.
var (
	// ErrConfigurationMissing means a required credential or setting is absent.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrValidationFailed means the request body is malformed or incomplete.
	ErrValidationFailed = errors.New("validation failed")
	// ErrUpstreamNotFound means the pull request has no matching schema file.
	ErrUpstreamNotFound = errors.New("no schema changes found")
	// ErrUpstreamCallFailed means a call to GitHub or the model service failed.
	ErrUpstreamCallFailed = errors.New("upstream call failed")
	// ErrNoAction means the event was understood but requires no work.
	ErrNoAction = errors.New("no action required")
	// ErrNotFound is returned by storage lookups that match nothing.
	ErrNotFound = errors.New("not found")
)

package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the approval engine. Callers match with errors.Is.
var (
	// ErrStaleState means a concurrent writer won the race on a request.
	// The caller must re-read the request and retry the action.
	ErrStaleState = errors.New("request was modified concurrently, retry with fresh state")

	// ErrInvalidTransition means an action was submitted against a terminal
	// request or a step that is no longer the current one.
	ErrInvalidTransition = errors.New("request state does not allow this action")

	// ErrNotEligible means the actor is not in the eligible approver set of
	// the current step.
	ErrNotEligible = errors.New("actor is not an eligible approver for this step")

	// ErrNoEligibleApprovers means approver resolution produced an empty set.
	// The request is held blocked until an administrator intervenes.
	ErrNoEligibleApprovers = errors.New("approver resolution produced an empty eligible set")

	// ErrDefinitionInUse means a workflow definition version is referenced by
	// at least one request; edits must create a new version instead.
	ErrDefinitionInUse = errors.New("workflow definition version is referenced by requests and cannot be modified")

	// ErrNotFound is returned by repositories for missing documents.
	ErrNotFound = errors.New("not found")
)

// ConfigurationError marks a workflow misconfiguration (malformed condition,
// empty approver resolution, missing active definition). It blocks activation
// and evaluation and is surfaced to administrators, never silently swallowed.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "workflow configuration error: " + e.Reason
}

// Configuration builds a ConfigurationError with a formatted reason.
func Configuration(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRunFailed is returned when a run terminates with a non-success result
	ErrRunFailed = errors.New("run failed")

	// ErrRunTimeout is returned when a run does not terminate before the wait deadline
	ErrRunTimeout = errors.New("run timed out")

	// ErrJobNotFound is returned when no job has the requested name or ID
	ErrJobNotFound = errors.New("job not found")

	// ErrClusterNotFound is returned when a cluster cannot be found
	ErrClusterNotFound = errors.New("cluster not found")
)

// ConfigurationError marks missing or invalid input. It is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// RunFailedError carries the terminal status of a failed run
type RunFailedError struct {
	Handle RunHandle
	Status RunStatus
}

func (e *RunFailedError) Error() string {
	msg := fmt.Sprintf("run %d of job %d failed: %s/%s", e.Handle.RunID, e.Handle.JobID, e.Status.LifeCycle, e.Status.Result)
	if e.Status.Message != "" {
		msg += ": " + e.Status.Message
	}
	return msg
}

func (e *RunFailedError) Unwrap() error {
	return ErrRunFailed
}

// RunTimeoutError carries the last status seen before the deadline passed
type RunTimeoutError struct {
	Handle  RunHandle
	Last    RunStatus
	Timeout time.Duration
}

func (e *RunTimeoutError) Error() string {
	return fmt.Sprintf("run %d of job %d did not finish within %s (last state %s)", e.Handle.RunID, e.Handle.JobID, e.Timeout, e.Last.LifeCycle)
}

func (e *RunTimeoutError) Unwrap() error {
	return ErrRunTimeout
}

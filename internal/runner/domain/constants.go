package domain

import "time"

// LifeCycleState is the lifecycle half of a run status
type LifeCycleState string

// Run lifecycle states
const (
	LifeCycleQueued          LifeCycleState = "QUEUED"
	LifeCyclePending         LifeCycleState = "PENDING"
	LifeCycleRunning         LifeCycleState = "RUNNING"
	LifeCycleTerminating     LifeCycleState = "TERMINATING"
	LifeCycleBlocked         LifeCycleState = "BLOCKED"
	LifeCycleWaitingForRetry LifeCycleState = "WAITING_FOR_RETRY"
	LifeCycleTerminated      LifeCycleState = "TERMINATED"
	LifeCycleSkipped         LifeCycleState = "SKIPPED"
	LifeCycleInternalError   LifeCycleState = "INTERNAL_ERROR"
)

// Terminal reports whether no further transition can happen from s
func (s LifeCycleState) Terminal() bool {
	switch s {
	case LifeCycleTerminated, LifeCycleSkipped, LifeCycleInternalError:
		return true
	default:
		return false
	}
}

// ResultState is the outcome half of a run status. It is empty until the
// lifecycle reaches a terminal state.
type ResultState string

// Run result states
const (
	ResultSuccess             ResultState = "SUCCESS"
	ResultFailed              ResultState = "FAILED"
	ResultTimedOut            ResultState = "TIMEDOUT"
	ResultCanceled            ResultState = "CANCELED"
	ResultSuccessWithFailures ResultState = "SUCCESS_WITH_FAILURES"
	ResultExcluded            ResultState = "EXCLUDED"
)

const (
	// DefaultJobName is the job managed when no name is configured
	DefaultJobName = "Hello World (Python)"

	// DefaultTaskKey names the single task of the managed job
	DefaultTaskKey = "hello_world"

	// DefaultPollInterval is the fixed delay between run status checks
	DefaultPollInterval = 5 * time.Second
)

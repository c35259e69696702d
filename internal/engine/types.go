package engine

import "imaged/internal/policy"

// State is the lifecycle state of the resolved session.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

// Attempt records the outcome of one candidate load attempt. The loader keeps
// the full list for diagnostics instead of surfacing intermediate failures.
type Attempt struct {
	Candidate policy.Candidate
	Err       error
}

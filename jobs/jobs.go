// Package jobs wraps an externally supplied job handler with the
// submit/poll/retrieve contract the ensemble execution core drives against.
package jobs

import (
	"fmt"
	"time"
)

// PollInterval is the busy-wait granularity used between readiness checks,
// both while waiting for a free worker slot and while awaiting job
// completion. Bounded above by 10ms per the concurrency model.
const PollInterval = 1 * time.Millisecond

// WorkUnit is a single unit of work submitted to a JobHandler. Work is
// opaque to the handler: it is only ever invoked, never inspected.
type WorkUnit struct {
	Identifier    string
	UniqueHandler string
	Metadata      map[string]any
	Work          func() (any, error)
}

// FinishedJob is the result of a completed WorkUnit.
type FinishedJob interface {
	// Identifier returns the compound <modelName>|<samplePrefix> identity
	// this job was submitted under.
	Identifier() string
	// ReturnCode returns -1 on failure, 0 on success.
	ReturnCode() int
	// Result returns the value produced by the work function, or nil on
	// failure.
	Result() any
}

// JobHandler is the minimal external collaborator JobCoordinator drives.
// Concrete implementations: Pool (in-process) and rpc.Handler (gRPC-backed).
type JobHandler interface {
	Submit(work WorkUnit) error
	HowManyFreeSpots() int
	IsJobFinished(identifier string) bool
	GetFinished(identifier, uniqueHandler string) (FinishedJob, error)
}

// ErrJobNotFound is returned by GetFinished when no job with the given
// identifier has been submitted or it was already drained.
var ErrJobNotFound = fmt.Errorf("jobs: job not found")

// SubmitBlocking blocks until handler reports a free worker slot, then
// submits work. Shared by Coordinator.SubmitOne and every ModelInterface
// adapter's Run method, since both submit directly against the same raw
// JobHandler contract (the original lets sub-models call
// jobHandler.submitDict directly, without going through a coordinator).
func SubmitBlocking(handler JobHandler, work WorkUnit) error {
	for handler.HowManyFreeSpots() <= 0 {
		time.Sleep(PollInterval)
	}
	return handler.Submit(work)
}

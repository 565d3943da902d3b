package scheduler

import (
	"context"
	"fmt"
	"time"
)

// JobResult tells the host what to do after a job returns.
type JobResult int

const (
	JobSuccess JobResult = iota
	// JobRetry asks the host to run the job again after a backoff.
	JobRetry
	// JobFailure gives up until the next scheduled run.
	JobFailure
)

func (r JobResult) String() string {
	switch r {
	case JobSuccess:
		return "success"
	case JobRetry:
		return "retry"
	case JobFailure:
		return "failure"
	default:
		return fmt.Sprintf("job_result(%d)", int(r))
	}
}

type Job func(ctx context.Context) JobResult

type Constraints struct {
	// RequireNetwork holds the job until the network is reachable and
	// cancels a running attempt when it is lost.
	RequireNetwork bool
}

type Host interface {
	// EnsurePeriodic registers a periodic job unless one with the same name
	// already exists, in which case the existing job is kept and false is
	// returned.
	EnsurePeriodic(name string, interval time.Duration, c Constraints, job Job) (bool, error)
	// Enqueue runs job once, as soon as its constraints are met.
	Enqueue(name string, c Constraints, job Job) error
	// Cancel stops every job registered under name.
	Cancel(name string)
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/syncer"
	"github.com/dmitrijs2005/finnysync/internal/logging"
	"golang.org/x/sync/singleflight"
)

const (
	// MinInterval is the shortest period a recurring sync may use.
	MinInterval = 15 * time.Minute

	PeriodicJobName = "offline-data-sync"
	OnceJobName     = "offline-data-sync-once"
)

// Syncer runs one sync pass.
type Syncer interface {
	Sync(ctx context.Context) (*syncer.Report, error)
}

// SyncScheduler registers sync passes with a Host.
type SyncScheduler struct {
	host   Host
	syncer Syncer
	log    logging.Logger
	group  singleflight.Group

	// queued is the fresh pass callers may still join; it is cleared right
	// before that pass starts.
	mu     sync.Mutex
	queued *freshPass
	runMu  sync.Mutex
}

type freshPass struct {
	done chan struct{}
	rep  *syncer.Report
	err  error
}

func NewSyncScheduler(host Host, s Syncer, log logging.Logger) *SyncScheduler {
	if log == nil {
		log = logging.NewNop()
	}
	return &SyncScheduler{host: host, syncer: s, log: log.With("component", "sync-scheduler")}
}

// ScheduleRecurring keeps one periodic pass registered. Intervals below
// MinInterval are raised to it. It reports whether a new job was created.
func (s *SyncScheduler) ScheduleRecurring(intervalMinutes int, requireNetwork bool) (bool, error) {
	interval := max(time.Duration(intervalMinutes)*time.Minute, MinInterval)
	return s.host.EnsurePeriodic(PeriodicJobName, interval, Constraints{RequireNetwork: requireNetwork}, s.recurringJob)
}

// ScheduleOnce queues a single pass, e.g. after a local edit. The pass
// starts after the call, so it sees every change committed before it.
func (s *SyncScheduler) ScheduleOnce(requireNetwork bool) error {
	return s.host.Enqueue(OnceJobName, Constraints{RequireNetwork: requireNetwork}, s.onceJob)
}

func (s *SyncScheduler) CancelRecurring() {
	s.host.Cancel(PeriodicJobName)
}

// RunNow runs a pass in the caller's goroutine, joining one that is already
// in flight.
func (s *SyncScheduler) RunNow(ctx context.Context) (*syncer.Report, error) {
	v, err, shared := s.group.Do("sync", func() (any, error) {
		return s.syncer.Sync(ctx)
	})
	if shared {
		s.log.Debug(ctx, "joined running sync pass")
	}
	rep, _ := v.(*syncer.Report)
	return rep, err
}

// RunFresh runs a pass that starts after the call. Callers arriving while a
// pass is already running share the next one instead of joining it.
func (s *SyncScheduler) RunFresh(ctx context.Context) (*syncer.Report, error) {
	s.mu.Lock()
	p := s.queued
	if p != nil {
		s.mu.Unlock()
		s.log.Debug(ctx, "joined queued sync pass")
		select {
		case <-p.done:
			return p.rep, p.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p = &freshPass{done: make(chan struct{})}
	s.queued = p
	s.mu.Unlock()

	s.runMu.Lock()
	s.mu.Lock()
	s.queued = nil
	s.mu.Unlock()
	p.rep, p.err = s.syncer.Sync(ctx)
	s.runMu.Unlock()

	close(p.done)
	return p.rep, p.err
}

func (s *SyncScheduler) recurringJob(ctx context.Context) JobResult {
	_, err := s.RunNow(ctx)
	return Classify(err)
}

func (s *SyncScheduler) onceJob(ctx context.Context) JobResult {
	_, err := s.RunFresh(ctx)
	return Classify(err)
}

// Classify maps the outcome of a pass to a job result. Local store failures
// are not retried; everything else is.
func Classify(err error) JobResult {
	switch {
	case err == nil:
		return JobSuccess
	case errors.Is(err, syncer.ErrLocalStore):
		return JobFailure
	default:
		return JobRetry
	}
}

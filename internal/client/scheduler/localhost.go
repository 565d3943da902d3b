package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/logging"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultRetryBase = 30 * time.Second
	DefaultRetryMax  = 30 * time.Minute
)

var (
	ErrHostStopped = errors.New("scheduler host stopped")

	errJobRetry  = errors.New("job asked for retry")
	errJobFailed = errors.New("job failed")
)

type LocalHostOptions struct {
	RetryBase time.Duration
	RetryMax  time.Duration
	// MaxRetries bounds retries of one run; zero retries until the job
	// succeeds, fails or is cancelled.
	MaxRetries uint64
}

type jobEntry struct {
	id       int
	periodic bool
	cancel   context.CancelFunc
}

// LocalHost runs jobs in goroutines of the current process.
type LocalHost struct {
	ctx    context.Context
	stop   context.CancelFunc
	net    Network
	log    logging.Logger
	opts   LocalHostOptions
	wg     sync.WaitGroup
	mu     sync.Mutex
	jobs   map[string][]*jobEntry
	nextID int
}

var _ Host = (*LocalHost)(nil)

// NewLocalHost builds a host bound to ctx. A nil network is always
// reachable.
func NewLocalHost(ctx context.Context, network Network, log logging.Logger, opts LocalHostOptions) *LocalHost {
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultRetryBase
	}
	if opts.RetryMax < opts.RetryBase {
		opts.RetryMax = max(DefaultRetryMax, opts.RetryBase)
	}
	if log == nil {
		log = logging.NewNop()
	}
	ctx, stop := context.WithCancel(ctx)
	return &LocalHost{
		ctx:  ctx,
		stop: stop,
		net:  network,
		log:  log.With("component", "scheduler"),
		opts: opts,
		jobs: map[string][]*jobEntry{},
	}
}

func (h *LocalHost) EnsurePeriodic(name string, interval time.Duration, c Constraints, job Job) (bool, error) {
	if interval <= 0 {
		return false, fmt.Errorf("periodic job %s: interval must be positive", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return false, ErrHostStopped
	}
	for _, e := range h.jobs[name] {
		if e.periodic {
			return false, nil
		}
	}

	ctx, e := h.register(name, true)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.unregister(name, e)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			h.execute(ctx, name, c, job)
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	h.log.Info(h.ctx, "periodic job registered", "job", name, "interval", interval.String(),
		"require_network", c.RequireNetwork)
	return true, nil
}

func (h *LocalHost) Enqueue(name string, c Constraints, job Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return ErrHostStopped
	}

	ctx, e := h.register(name, false)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.unregister(name, e)
		h.execute(ctx, name, c, job)
	}()
	return nil
}

func (h *LocalHost) Cancel(name string) {
	h.mu.Lock()
	entries := h.jobs[name]
	delete(h.jobs, name)
	h.mu.Unlock()

	for _, e := range entries {
		e.cancel()
	}
}

// Pending reports how many jobs are registered under name.
func (h *LocalHost) Pending(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.jobs[name])
}

// Drain waits until no one-shot job is left or ctx is done. Periodic jobs
// are not waited for.
func (h *LocalHost) Drain(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		if h.oneShots() == 0 {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *LocalHost) oneShots() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, entries := range h.jobs {
		for _, e := range entries {
			if !e.periodic {
				n++
			}
		}
	}
	return n
}

// Stop cancels every job and waits for them to return.
func (h *LocalHost) Stop() {
	h.stop()
	h.wg.Wait()
}

// register must be called with h.mu held.
func (h *LocalHost) register(name string, periodic bool) (context.Context, *jobEntry) {
	ctx, cancel := context.WithCancel(h.ctx)
	h.nextID++
	e := &jobEntry{id: h.nextID, periodic: periodic, cancel: cancel}
	h.jobs[name] = append(h.jobs[name], e)
	return ctx, e
}

func (h *LocalHost) unregister(name string, e *jobEntry) {
	e.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.jobs[name]
	for i, x := range entries {
		if x.id == e.id {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(h.jobs, name)
	} else {
		h.jobs[name] = entries
	}
}

func (h *LocalHost) backoff() retry.Backoff {
	b := retry.NewExponential(h.opts.RetryBase)
	b = retry.WithCappedDuration(h.opts.RetryMax, b)
	if h.opts.MaxRetries > 0 {
		b = retry.WithMaxRetries(h.opts.MaxRetries, b)
	}
	return b
}

// execute runs one scheduled run of job, including its retries.
func (h *LocalHost) execute(ctx context.Context, name string, c Constraints, job Job) {
	attempt := 0
	err := retry.Do(ctx, h.backoff(), func(ctx context.Context) error {
		if c.RequireNetwork {
			if err := h.waitForNetwork(ctx); err != nil {
				return err
			}
		}
		attempt++
		switch res := h.attempt(ctx, c, job); res {
		case JobSuccess:
			return nil
		case JobRetry:
			h.log.Debug(ctx, "job will be retried", "job", name, "attempt", attempt)
			return retry.RetryableError(errJobRetry)
		default:
			return errJobFailed
		}
	})

	switch {
	case err == nil:
		h.log.Debug(ctx, "job finished", "job", name, "attempts", attempt)
	case ctx.Err() != nil:
		h.log.Debug(ctx, "job cancelled", "job", name, "attempts", attempt)
	default:
		h.log.Warn(ctx, "job gave up", "job", name, "attempts", attempt, "error", err)
	}
}

// attempt runs job once. With RequireNetwork the attempt is cancelled as
// soon as the network is reported lost and counts as a retry.
func (h *LocalHost) attempt(ctx context.Context, c Constraints, job Job) JobResult {
	if !c.RequireNetwork || h.net == nil {
		return job(ctx)
	}

	updates, unsubscribe := h.net.Subscribe()
	defer unsubscribe()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lost := make(chan struct{})
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case online := <-updates:
				if !online {
					close(lost)
					cancel()
					return
				}
			case <-done:
				return
			}
		}
	}()

	res := job(runCtx)
	select {
	case <-lost:
		return JobRetry
	default:
		return res
	}
}

func (h *LocalHost) waitForNetwork(ctx context.Context) error {
	if h.net == nil || h.net.Reachable() {
		return nil
	}
	updates, unsubscribe := h.net.Subscribe()
	defer unsubscribe()

	// the state may have flipped between the check and the subscription
	if h.net.Reachable() {
		return nil
	}
	for {
		select {
		case online := <-updates:
			if online {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

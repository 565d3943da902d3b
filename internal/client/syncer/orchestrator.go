package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/attachments"
	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/budgets"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/transactions"
	"github.com/dmitrijs2005/finnysync/internal/logging"
	"go.uber.org/multierr"
)

// Repos are the local tables a pass reads and writes.
type Repos struct {
	Budgets      budgets.Repository
	Transactions transactions.Repository
	Metadata     metadata.Repository
}

// Orchestrator runs sync passes between the local store and the remote.
// Passes never overlap.
type Orchestrator struct {
	repos    Repos
	remote   remote.Client
	uploader attachments.Uploader
	log      logging.Logger
	opts     Options

	mu sync.Mutex
}

// New builds an orchestrator. uploader may be nil when no attachments are
// ever recorded; a pending attachment then fails its row.
func New(repos Repos, client remote.Client, uploader attachments.Uploader, log logging.Logger, opts Options) *Orchestrator {
	if log == nil {
		log = logging.NewNop()
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	return &Orchestrator{
		repos:    repos,
		remote:   client,
		uploader: uploader,
		log:      log.With("component", "syncer"),
		opts:     opts,
	}
}

// Sync runs one pull phase followed by one push phase. A failed pull ends
// the pass before anything is pushed unless Options.PushAfterPullFailure is
// set.
//
// The returned error is nil only when every page was pulled and every
// pending row was pushed. It matches ErrLocalStore when the local database
// failed, remote.ErrTransport or remote.ErrBusiness for remote failures, and
// the context's error after cancellation.
func (o *Orchestrator) Sync(ctx context.Context) (*Report, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	rep := &Report{StartedAt: o.opts.now()}
	o.log.Info(ctx, "sync pass started", "pull_policy", o.opts.PullPolicy.String())

	err := o.run(ctx, rep)

	rep.FinishedAt = o.opts.now()
	rep.Err = err
	o.record(ctx, rep)

	if err != nil {
		o.log.Warn(ctx, "sync pass failed", append(rep.logArgs(), "error", err)...)
	} else {
		o.log.Info(ctx, "sync pass finished", rep.logArgs()...)
	}
	return rep, err
}

func (o *Orchestrator) run(ctx context.Context, rep *Report) error {
	var errs error

	rowErrs, err := o.pull(ctx, rep)
	errs = multierr.Append(errs, rowErrs)
	if err != nil {
		if errors.Is(err, ErrLocalStore) || ctx.Err() != nil {
			return multierr.Append(errs, err)
		}
		rep.PullFailed = true
		errs = multierr.Append(errs, err)
		if !o.opts.PushAfterPullFailure {
			rep.PushSkipped = true
			return errs
		}
	}

	rowErrs, err = o.push(ctx, rep)
	errs = multierr.Append(errs, rowErrs)
	return multierr.Append(errs, err)
}

func localErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLocalStore, op, err)
}

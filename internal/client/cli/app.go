package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/attachments"
	"github.com/dmitrijs2005/finnysync/internal/client/config"
	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/client/scheduler"
	"github.com/dmitrijs2005/finnysync/internal/client/services"
	"github.com/dmitrijs2005/finnysync/internal/client/store"
	"github.com/dmitrijs2005/finnysync/internal/client/syncer"
	"github.com/dmitrijs2005/finnysync/internal/dbx"
	"github.com/dmitrijs2005/finnysync/internal/filex"
	"github.com/dmitrijs2005/finnysync/internal/logging"
	"go.uber.org/multierr"
)

// DefaultDrainGrace is how long a short-lived command waits for its queued
// sync pass before exiting.
const DefaultDrainGrace = 5 * time.Second

// App holds everything a command needs.
type App struct {
	Config *config.Config
	Log    logging.Logger

	Store  *store.Store
	Tokens *remote.TokenStore
	Remote remote.Client

	Network   *scheduler.NetworkMonitor
	Host      *scheduler.LocalHost
	Scheduler *scheduler.SyncScheduler
	Syncer    *syncer.Orchestrator

	Budgets      services.BudgetService
	Transactions services.TransactionService
	Auth         services.AuthService

	DrainGrace time.Duration

	cancel    context.CancelFunc
	logCloser io.Closer
}

// NewApp opens the store, builds the remote client and starts the network
// monitor. The caller must Close the app.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log, logCloser, err := logging.New(cfg.LogOptions())
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &App{Config: cfg, Log: log, DrainGrace: DefaultDrainGrace, logCloser: logCloser}
	if err := a.init(ctx); err != nil {
		_ = a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	dialect, err := cfg.Dialect()
	if err != nil {
		return err
	}
	if dialect == dbx.SQLite && isFileDSN(cfg.DSN) {
		if err := filex.EnsureParentDir(cfg.DSN); err != nil {
			return fmt.Errorf("prepare database dir: %w", err)
		}
	}

	a.Store, err = store.Open(ctx, dialect, cfg.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.Tokens = remote.NewTokenStore(a.Store.Metadata)

	a.Remote, err = newRemote(cfg, a.Tokens, a.Log)
	if err != nil {
		return fmt.Errorf("remote client: %w", err)
	}

	uploader, err := attachments.New(ctx, cfg.AttachmentConfig(), a.Remote)
	if err != nil {
		return fmt.Errorf("attachments: %w", err)
	}

	a.Syncer = syncer.New(syncer.Repos{
		Budgets:      a.Store.Budgets,
		Transactions: a.Store.Transactions,
		Metadata:     a.Store.Metadata,
	}, a.Remote, uploader, a.Log, cfg.SyncOptions())

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel

	a.Network = scheduler.NewNetworkMonitor(scheduler.PingProbe(a.Remote), cfg.OnlineCheckInterval, a.Log)
	go a.Network.Run(runCtx)

	a.Host = scheduler.NewLocalHost(runCtx, a.Network, a.Log, scheduler.LocalHostOptions{
		RetryBase: cfg.RetryBaseDelay,
		RetryMax:  cfg.RetryMaxDelay,
	})
	a.Scheduler = scheduler.NewSyncScheduler(a.Host, a.Syncer, a.Log)

	trigger := onceTrigger{s: a.Scheduler, requireNetwork: cfg.RequireNetwork}
	a.Budgets = services.NewBudgetService(a.Store.Budgets, a.Store.Transactions, trigger, a.Log)
	a.Transactions = services.NewTransactionService(a.Store.Transactions, a.Store.Budgets, trigger, a.Log)
	a.Auth = services.NewAuthService(a.Tokens, a.Remote)
	return nil
}

// Close waits up to DrainGrace for queued passes, then stops the scheduler
// and releases the store, the client and the log file.
func (a *App) Close() error {
	if a.Host != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.DrainGrace)
		if err := a.Host.Drain(ctx); err != nil {
			a.Log.Warn(ctx, "queued sync did not finish before exit; it will run next time")
		}
		cancel()
		a.Host.Stop()
	}
	return a.closeResources()
}

func (a *App) closeResources() error {
	if a.cancel != nil {
		a.cancel()
	}
	var err error
	if a.Remote != nil {
		err = multierr.Append(err, a.Remote.Close())
	}
	if a.Store != nil {
		err = multierr.Append(err, a.Store.Close())
	}
	if a.logCloser != nil {
		err = multierr.Append(err, a.logCloser.Close())
	}
	return err
}

func newRemote(cfg *config.Config, tokens *remote.TokenStore, log logging.Logger) (remote.Client, error) {
	opts := remote.Options{Timeout: cfg.RequestTimeout, Tokens: tokens, Logger: log}
	switch cfg.Transport {
	case config.TransportGRPC:
		return remote.NewGRPCClient(cfg.GRPCAddr, opts)
	default:
		return remote.NewHTTPClient(cfg.ServerURL, nil, opts)
	}
}

func isFileDSN(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}

// onceTrigger adapts the scheduler to services.Trigger with the configured
// network constraint.
type onceTrigger struct {
	s              *scheduler.SyncScheduler
	requireNetwork bool
}

func (t onceTrigger) ScheduleOnce(bool) error {
	return t.s.ScheduleOnce(t.requireNetwork)
}

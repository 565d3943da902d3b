package remotesim

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/logging"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// App runs the HTTP and gRPC front-ends over one Backend.
type App struct {
	config  *Config
	logger  logging.Logger
	backend *Backend
	issuer  *Issuer
}

func NewApp(c *Config, logger logging.Logger) *App {
	var issuer *Issuer
	if !c.AuthDisabled {
		issuer = NewIssuer(c.SecretKey, c.AccessTokenTTL, c.RefreshTokenTTL)
	}
	return &App{
		config:  c,
		logger:  logger,
		backend: NewBackend(c.PerPage, c.FileURL(), nil),
		issuer:  issuer,
	}
}

func (app *App) Backend() *Backend { return app.backend }
func (app *App) Issuer() *Issuer   { return app.issuer }

// Run serves until ctx is done or a front-end fails.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "starting remotesim", "auth", app.issuer != nil)

	g, ctx := errgroup.WithContext(ctx)

	if app.config.HTTPAddr != "" {
		srv := &http.Server{
			Addr:              app.config.HTTPAddr,
			Handler:           NewHTTPHandler(app.config.Prefix, app.backend, app.issuer, app.logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			app.logger.Info(ctx, "starting HTTP server", "address", srv.Addr, "prefix", app.config.Prefix)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			app.logger.Info(ctx, "stopping HTTP server")
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if app.config.GRPCAddr != "" {
		g.Go(func() error {
			return NewGRPCServer(app.backend, app.issuer, app.logger).Run(ctx, app.config.GRPCAddr)
		})
	}

	return g.Wait()
}

package cli

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/finnysync/internal/client/config"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// Version is set at build time with -ldflags.
var Version = "dev"

type runner struct {
	loader *config.Loader
	app    *App

	// newApp is replaced in tests.
	newApp func(ctx context.Context, cfg *config.Config) (*App, error)
}

// Execute runs the command line in args and closes whatever it opened.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	r := &runner{newApp: NewApp}
	return r.execute(ctx, args, in, out, errOut)
}

func (r *runner) execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	root := r.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if r.app != nil {
		err = multierr.Append(err, r.app.Close())
	}
	return err
}

func (r *runner) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "finny",
		Short:         "Offline-first budgets and transactions",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	r.loader = config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		r.budgetCmd(),
		r.txCmd(),
		r.syncCmd(),
		r.statusCmd(),
		r.loginCmd(),
		r.logoutCmd(),
		r.daemonCmd(),
	)
	return root
}

// open builds the App on first use. Commands call it from RunE so that
// --help and --version never touch the store.
func (r *runner) open(cmd *cobra.Command) (*App, error) {
	if r.app != nil {
		return r.app, nil
	}
	if r.loader == nil {
		return nil, errors.New("flags not bound")
	}
	cfg, err := r.loader.Load()
	if err != nil {
		return nil, err
	}
	app, err := r.newApp(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	r.app = app
	return app, nil
}

// withApp adapts a handler that needs the App to cobra's RunE.
func (r *runner) withApp(fn func(cmd *cobra.Command, args []string, app *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := r.open(cmd)
		if err != nil {
			return err
		}
		return fn(cmd, args, app)
	}
}

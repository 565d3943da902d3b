package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func (r *runner) daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Keep syncing in the background until interrupted",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			minutes := int(app.Config.SyncInterval.Minutes())
			created, err := app.Scheduler.ScheduleRecurring(minutes, app.Config.RequireNetwork)
			if err != nil {
				return err
			}
			app.Log.Info(ctx, "daemon started", "interval_minutes", minutes, "new_job", created)

			<-ctx.Done()
			app.Scheduler.CancelRecurring()
			app.Log.Info(context.WithoutCancel(ctx), "daemon stopping")
			return nil
		}),
	}
}

package cli

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/syncer"
	"github.com/spf13/cobra"
)

func (r *runner) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass now",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			rep, err := app.Scheduler.RunFresh(cmd.Context())
			if rep != nil {
				if perr := printReport(cmd.OutOrStdout(), rep); perr != nil {
					return perr
				}
			}
			return err
		}),
	}
}

func (r *runner) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last sync, pending changes and login state",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			last, err := syncer.LastStatus(ctx, app.Store.Metadata)
			if err != nil {
				return err
			}
			pb, err := app.Store.Budgets.QueryPending(ctx)
			if err != nil {
				return err
			}
			pt, err := app.Store.Transactions.QueryPending(ctx)
			if err != nil {
				return err
			}
			auth, err := app.Auth.Status(ctx)
			if err != nil {
				return err
			}

			tw := newTable(out)
			switch {
			case last.At.IsZero():
				fmt.Fprintln(tw, "last sync:\tnever")
			case last.Error != "":
				fmt.Fprintf(tw, "last sync:\t%s (failed: %s)\n", last.At.Local().Format(time.DateTime), last.Error)
			default:
				fmt.Fprintf(tw, "last sync:\t%s\n", last.At.Local().Format(time.DateTime))
			}
			fmt.Fprintf(tw, "pending budgets:\t%d\n", len(pb))
			fmt.Fprintf(tw, "pending transactions:\t%d\n", len(pt))
			fmt.Fprintf(tw, "remote:\t%s\n", onlineLabel(app.Network.Check(ctx)))
			fmt.Fprintf(tw, "login:\t%s\n", authLabel(auth, time.Now()))
			return tw.Flush()
		}),
	}
}

func onlineLabel(ok bool) string {
	if ok {
		return "online"
	}
	return "offline"
}

package cli

import (
	"fmt"

	"github.com/dmitrijs2005/finnysync/internal/client/mapper"
	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/budgets"
	"github.com/spf13/cobra"
)

type budgetFlags struct {
	name   string
	limit  string
	period string
	start  string
}

func (f *budgetFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "budget name")
	cmd.Flags().StringVar(&f.limit, "limit", "", "spending limit, e.g. 400.00")
	cmd.Flags().StringVar(&f.period, "period", string(models.PeriodMonth), "single, 1_week, 1_month or 1_year")
	cmd.Flags().StringVar(&f.start, "start", "", "start date (default today)")
}

// apply copies the flags the user set onto b.
func (f *budgetFlags) apply(cmd *cobra.Command, b *models.Budget) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		b.Name = f.name
	}
	if flags.Changed("limit") {
		v, err := mapper.ParseAmount(f.limit)
		if err != nil {
			return err
		}
		b.Limit = v
	}
	if flags.Changed("period") || b.Period == "" {
		p, err := parsePeriod(f.period)
		if err != nil {
			return err
		}
		b.Period = p
	}
	if flags.Changed("start") {
		t, err := mapper.ParseTime(f.start)
		if err != nil {
			return err
		}
		b.StartDate = t
	}
	return nil
}

func (r *runner) budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budget",
		Aliases: []string{"budgets", "b"},
		Short:   "Manage budgets",
	}
	cmd.AddCommand(
		r.budgetAddCmd(),
		r.budgetListCmd(),
		r.budgetUpdateCmd(),
		r.budgetRmCmd(),
		r.budgetDetailsCmd(),
		r.budgetWatchCmd(),
	)
	return cmd
}

func (r *runner) budgetAddCmd() *cobra.Command {
	var f budgetFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a budget",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			var b models.Budget
			if err := f.apply(cmd, &b); err != nil {
				return err
			}
			created, err := app.Budgets.Add(cmd.Context(), b)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			return err
		}),
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("limit")
	return cmd
}

func (r *runner) budgetListCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List budgets",
		Args:    cobra.NoArgs,
		RunE: r.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			list, err := app.Budgets.List(cmd.Context(), budgets.Filter{Name: name})
			if err != nil {
				return err
			}
			return printBudgets(cmd.OutOrStdout(), list)
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "only budgets whose name contains this text")
	return cmd
}

func (r *runner) budgetUpdateCmd() *cobra.Command {
	var f budgetFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a budget",
		Args:  cobra.ExactArgs(1),
		RunE: r.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			b, err := app.Budgets.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := f.apply(cmd, &b); err != nil {
				return err
			}
			_, err = app.Budgets.Update(cmd.Context(), b)
			return err
		}),
	}
	f.bind(cmd)
	return cmd
}

func (r *runner) budgetRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a budget and its transactions",
		Args:    cobra.ExactArgs(1),
		RunE: r.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			return app.Budgets.Delete(cmd.Context(), args[0])
		}),
	}
}

func (r *runner) budgetDetailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details [id]",
		Short: "Show spending against budget limits",
		Args:  cobra.MaximumNArgs(1),
		RunE: r.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			if len(args) == 1 {
				d, err := app.Budgets.Details(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printDetails(cmd.OutOrStdout(), []models.BudgetDetails{d})
			}
			list, err := app.Budgets.DetailsList(cmd.Context())
			if err != nil {
				return err
			}
			return printDetails(cmd.OutOrStdout(), list)
		}),
	}
}

func (r *runner) budgetWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the budget list whenever it changes",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			ch, err := app.Budgets.Watch(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for list := range ch {
				if err := printBudgets(out, list); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		}),
	}
}

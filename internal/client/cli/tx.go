package cli

import (
	"fmt"

	"github.com/dmitrijs2005/finnysync/internal/client/mapper"
	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/transactions"
	"github.com/spf13/cobra"
)

type txFlags struct {
	budget      string
	name        string
	description string
	amount      string
	txType      string
	category    string
	at          string
	image       string
	location    string
	lat         float64
	lng         float64
}

func (f *txFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.budget, "budget", "", "budget id")
	fs.StringVar(&f.name, "name", "", "transaction name")
	fs.StringVar(&f.description, "description", "", "free-form note")
	fs.StringVar(&f.amount, "amount", "", "amount, e.g. 12.50")
	fs.StringVar(&f.txType, "type", string(models.TransactionOutcome), "INCOME or OUTCOME")
	fs.StringVar(&f.category, "category", string(models.CategoryOther), "FOOD, COFFEE, SALARY, ...")
	fs.StringVar(&f.at, "at", "", "date and time (default now)")
	fs.StringVar(&f.image, "image", "", "receipt image to upload with the next sync")
	fs.StringVar(&f.location, "location", "", "place name")
	fs.Float64Var(&f.lat, "lat", 0, "latitude")
	fs.Float64Var(&f.lng, "lng", 0, "longitude")
}

func (f *txFlags) apply(cmd *cobra.Command, t *models.Transaction) error {
	fs := cmd.Flags()
	if fs.Changed("budget") {
		t.BudgetID = f.budget
	}
	if fs.Changed("name") {
		t.Name = f.name
	}
	if fs.Changed("description") {
		t.Description = f.description
	}
	if fs.Changed("amount") {
		v, err := mapper.ParseAmount(f.amount)
		if err != nil {
			return err
		}
		t.Amount = v
	}
	if fs.Changed("type") || t.Type == "" {
		v, err := parseType(f.txType)
		if err != nil {
			return err
		}
		t.Type = v
	}
	if fs.Changed("category") || t.Category == "" {
		v, err := parseCategory(f.category)
		if err != nil {
			return err
		}
		t.Category = v
	}
	if fs.Changed("at") {
		v, err := mapper.ParseTime(f.at)
		if err != nil {
			return err
		}
		t.DateTime = v
	}
	if fs.Changed("image") {
		t.LocalImagePath = f.image
	}
	if fs.Changed("location") || fs.Changed("lat") || fs.Changed("lng") {
		loc := models.Location{}
		if t.Location != nil {
			loc = *t.Location
		}
		if fs.Changed("location") {
			loc.Name = f.location
		}
		if fs.Changed("lat") {
			loc.Lat = f.lat
		}
		if fs.Changed("lng") {
			loc.Lng = f.lng
		}
		t.Location = &loc
	}
	return nil
}

func (r *runner) txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction", "transactions", "t"},
		Short:   "Manage transactions",
	}
	cmd.AddCommand(
		r.txAddCmd(),
		r.txListCmd(),
		r.txUpdateCmd(),
		r.txRmCmd(),
		r.txAttachCmd(),
		r.txWatchCmd(),
	)
	return cmd
}

func (r *runner) txAddCmd() *cobra.Command {
	var f txFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			var t models.Transaction
			if err := f.apply(cmd, &t); err != nil {
				return err
			}
			created, err := app.Transactions.Add(cmd.Context(), t)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			return err
		}),
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("budget")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

type txFilterFlags struct {
	budget   string
	txType   string
	category string
	from     string
	to       string
}

func (f *txFilterFlags) filter() (transactions.Filter, error) {
	out := transactions.Filter{BudgetID: f.budget}
	var err error
	if f.txType != "" {
		if out.Type, err = parseType(f.txType); err != nil {
			return out, err
		}
	}
	if f.category != "" {
		if out.Category, err = parseCategory(f.category); err != nil {
			return out, err
		}
	}
	if f.from != "" {
		if out.From, err = mapper.ParseTime(f.from); err != nil {
			return out, err
		}
	}
	if f.to != "" {
		if out.To, err = mapper.ParseTime(f.to); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (f *txFilterFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.budget, "budget", "", "only this budget")
	fs.StringVar(&f.txType, "type", "", "only INCOME or OUTCOME")
	fs.StringVar(&f.category, "category", "", "only this category")
	fs.StringVar(&f.from, "from", "", "earliest date, inclusive")
	fs.StringVar(&f.to, "to", "", "latest date, inclusive")
}

func (r *runner) txListCmd() *cobra.Command {
	var f txFilterFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transactions",
		Args:    cobra.NoArgs,
		RunE: r.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			filter, err := f.filter()
			if err != nil {
				return err
			}
			list, err := app.Transactions.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), list)
		}),
	}
	f.bind(cmd)
	return cmd
}

func (r *runner) txUpdateCmd() *cobra.Command {
	var f txFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: r.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			t, err := app.Transactions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := f.apply(cmd, &t); err != nil {
				return err
			}
			_, err = app.Transactions.Update(cmd.Context(), t)
			return err
		}),
	}
	f.bind(cmd)
	return cmd
}

func (r *runner) txRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a transaction",
		Args:    cobra.ExactArgs(1),
		RunE: r.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			return app.Transactions.Delete(cmd.Context(), args[0])
		}),
	}
}

func (r *runner) txAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <id> <file>",
		Short: "Attach a receipt image",
		Args:  cobra.ExactArgs(2),
		RunE: r.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			return app.Transactions.AttachImage(cmd.Context(), args[0], args[1])
		}),
	}
}

func (r *runner) txWatchCmd() *cobra.Command {
	var f txFilterFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print matching transactions whenever they change",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			filter, err := f.filter()
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			ch, err := app.Transactions.Watch(ctx, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for list := range ch {
				if err := printTransactions(out, list); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		}),
	}
	f.bind(cmd)
	return cmd
}

package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/mapper"
	"github.com/dmitrijs2005/finnysync/internal/client/models"
	"github.com/dmitrijs2005/finnysync/internal/client/syncer"
	"github.com/dmitrijs2005/finnysync/internal/common"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printBudgets(w io.Writer, list []models.Budget) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no budgets")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tLIMIT\tPERIOD\tSTART")
	for _, b := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Name, b.Limit.StringFixed(2), b.Period, mapper.FormatDate(b.StartDate))
	}
	return tw.Flush()
}

func printDetails(w io.Writer, list []models.BudgetDetails) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no budgets")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tLIMIT\tINCOME\tSPENT\tREMAINING\tPROGRESS\tTXS")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s%%\t%d\n",
			d.ID, d.Name,
			d.Limit.StringFixed(2),
			d.TotalIncome.StringFixed(2),
			d.TotalOutcome.StringFixed(2),
			d.Remaining.StringFixed(2),
			d.Progress.Shift(2).StringFixed(1),
			d.TransactionCount)
	}
	return tw.Flush()
}

func printTransactions(w io.Writer, list []models.Transaction) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no transactions")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tNAME\tTYPE\tCATEGORY\tAMOUNT\tBUDGET\tIMAGE")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.DateTime.Format(time.DateTime), t.Name, t.Type, t.Category,
			t.Amount.StringFixed(2), t.BudgetID, imageState(t))
	}
	return tw.Flush()
}

func imageState(t models.Transaction) string {
	switch {
	case t.LocalImagePath != "":
		return "pending"
	case t.ImageURL != "":
		return "uploaded"
	default:
		return "-"
	}
}

func printReport(w io.Writer, r *syncer.Report) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "\tPULLED\tKEPT\tCREATED\tUPDATED\tDELETED\tFAILED")
	for _, row := range []struct {
		name string
		c    syncer.Counts
	}{{"budgets", r.Budgets}, {"transactions", r.Transactions}} {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n", row.name,
			row.c.Pulled, row.c.Kept, row.c.Created, row.c.Updated, row.c.Deleted, row.c.Failed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if r.PullFailed {
		fmt.Fprintln(w, "pull failed")
	}
	if r.PushSkipped {
		fmt.Fprintln(w, "push skipped")
	}
	_, err := fmt.Fprintf(w, "finished in %s\n", r.Duration().Round(time.Millisecond))
	return err
}

func parseType(s string) (models.TransactionType, error) {
	t := models.TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case models.TransactionIncome, models.TransactionOutcome:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown transaction type %q", common.ErrValidation, s)
}

func parseCategory(s string) (models.Category, error) {
	c := models.Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range models.Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", common.ErrValidation, s)
}

func parsePeriod(s string) (models.BudgetPeriod, error) {
	p := models.BudgetPeriod(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range models.Periods {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown period %q", common.ErrValidation, s)
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/evcraddock/pool-route/internal/client"
	"github.com/evcraddock/pool-route/internal/product"
	"github.com/evcraddock/pool-route/internal/schedule"
	"github.com/evcraddock/pool-route/internal/visit"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes rows through a tabwriter with a header and separator.
func table(w io.Writer, header, sep string, rows [][]any, format string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, header); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, sep); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, format, row...); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}
	return nil
}

// printDueTable prints today's route.
func printDueTable(w io.Writer, now time.Time, due []schedule.Due) error {
	fmt.Fprintf(w, "%s %s\n\n", client.Weekday(schedule.WeekdayCode(now)), now.Format("2006-01-02"))
	if len(due) == 0 {
		fmt.Fprintln(w, "No clients scheduled today.")
		return nil
	}

	rows := make([][]any, 0, len(due))
	for _, d := range due {
		visitID := "-"
		if d.VisitID != nil {
			visitID = strconv.FormatInt(*d.VisitID, 10)
		}
		rows = append(rows, []any{d.Client.ID, truncate(d.Client.FullName, 30), truncate(d.Client.Address, 40), d.Status.Label(), visitID})
	}
	if err := table(w, "ID\tCLIENT\tADDRESS\tSTATUS\tVISIT", "--\t------\t-------\t------\t-----", rows, "%d\t%s\t%s\t%s\t%s\n"); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d clients\n", len(due))
	return nil
}

// printClientTable prints a list of clients.
func printClientTable(w io.Writer, clients []*client.Client) error {
	if len(clients) == 0 {
		fmt.Fprintln(w, "No clients found.")
		return nil
	}

	rows := make([][]any, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, []any{c.ID, truncate(c.FullName, 30), truncate(c.Address, 40), c.Phone, c.VisitWeekday})
	}
	if err := table(w, "ID\tNAME\tADDRESS\tPHONE\tDAY", "--\t----\t-------\t-----\t---", rows, "%d\t%s\t%s\t%s\t%s\n"); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d clients\n", len(clients))
	return nil
}

// printClient prints a single client.
func printClient(w io.Writer, c *client.Client) {
	fmt.Fprintf(w, "Client #%d\n", c.ID)
	fmt.Fprintf(w, "  Name:     %s\n", c.FullName)
	fmt.Fprintf(w, "  Address:  %s\n", c.Address)
	fmt.Fprintf(w, "  Phone:    %s\n", c.Phone)
	fmt.Fprintf(w, "  Day:      %s (%d)\n", c.VisitWeekday, int(c.VisitWeekday))
	if c.Notes != "" {
		fmt.Fprintf(w, "  Notes:    %s\n", c.Notes)
	}
}

// printProductTable prints the product catalog.
func printProductTable(w io.Writer, products []*product.Product) error {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products found.")
		return nil
	}

	rows := make([][]any, 0, len(products))
	for _, p := range products {
		def := ""
		if p.IsDefault {
			def = "yes"
		}
		rows = append(rows, []any{p.ID, truncate(p.Name, 40), p.Unit, def})
	}
	return table(w, "ID\tNAME\tUNIT\tDEFAULT", "--\t----\t----\t-------", rows, "%d\t%s\t%s\t%s\n")
}

// printVisit prints a visit with its readings.
func printVisit(w io.Writer, v *visit.Visit) {
	fmt.Fprintf(w, "Visit #%d  %s  %s\n", v.ID, v.VisitDate, v.Status.Label())
	fmt.Fprintf(w, "  Started:  %s\n", formatClock(v.StartTime))
	if v.EndTime != nil {
		fmt.Fprintf(w, "  Finished: %s\n", formatClock(v.EndTime))
	}
	printReadings(w, v.Readings)
}

var readingLabels = map[string]string{
	"ph":               "pH",
	"chlorine":         "Chlorine",
	"alkalinity":       "Alkalinity",
	"calcium_hardness": "Calcium hardness",
	"cyanuric_acid":    "Cyanuric acid",
}

// printReadings prints the measured readings, or a note if none.
func printReadings(w io.Writer, r visit.Readings) {
	if r.Empty() {
		fmt.Fprintln(w, "  No readings recorded.")
		return
	}
	for _, f := range visit.ReadingFields {
		if v := r.Get(f); v != nil {
			fmt.Fprintf(w, "  %-18s%s\n", readingLabels[f]+":", formatReading(*v))
		}
	}
}

// printAppliedProducts prints the products applied during a visit.
func printAppliedProducts(w io.Writer, items []*visit.AppliedProduct) {
	fmt.Fprintln(w, "Applied products:")
	if len(items) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "  %s\n", lineItem(it.Product, it.ProductID, it.Quantity))
	}
}

// printSuggestedNeeds prints the needs suggested during a visit.
func printSuggestedNeeds(w io.Writer, items []*visit.SuggestedNeed) {
	fmt.Fprintln(w, "Client needs:")
	if len(items) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "  %s  [%s]\n", lineItem(it.Product, it.ProductID, it.Quantity), it.ApprovalStatus.Label())
	}
}

// printDetail prints a client's visit for the day.
func printDetail(w io.Writer, d *visit.Detail) {
	printClient(w, d.Client)
	fmt.Fprintln(w)
	if d.Visit == nil {
		fmt.Fprintf(w, "No visit on %s (%s).\n", d.Date, visit.Pending.Label())
		return
	}
	printVisit(w, d.Visit)
	fmt.Fprintln(w)
	printAppliedProducts(w, d.Applied)
	printSuggestedNeeds(w, d.Needs)
}

// printHistory prints a client's visits, one line each.
func printHistory(w io.Writer, visits []*visit.Visit) error {
	if len(visits) == 0 {
		fmt.Fprintln(w, "No visits recorded.")
		return nil
	}

	rows := make([][]any, 0, len(visits))
	for _, v := range visits {
		ph := "-"
		if v.PH != nil {
			ph = formatReading(*v.PH)
		}
		cl := "-"
		if v.Chlorine != nil {
			cl = formatReading(*v.Chlorine)
		}
		rows = append(rows, []any{v.ID, v.VisitDate, v.Status.Label(), formatClock(v.StartTime), formatClock(v.EndTime), ph, cl})
	}
	return table(w, "ID\tDATE\tSTATUS\tSTART\tEND\tPH\tCL",
		"--\t----\t------\t-----\t---\t--\t--", rows, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n")
}

func lineItem(p *product.Product, productID int64, qty float64) string {
	if p == nil {
		return fmt.Sprintf("product #%d  %s", productID, formatReading(qty))
	}
	return fmt.Sprintf("%s  %s %s", p.Name, formatReading(qty), p.Unit)
}

// formatReading prints a number without trailing zeros.
func formatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// displayLocation is the zone times are printed in.
var displayLocation = time.Local

// formatClock prints the wall-clock time, or "-" for nil.
func formatClock(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(displayLocation).Format("15:04")
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

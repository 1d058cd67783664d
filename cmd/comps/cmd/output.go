package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/donaldgifford/fliplens-comps/internal/pricing"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printResult(w io.Writer, r *domain.Result) error {
	tw := newTabWriter(w)
	tw.writef("Query:\t%s\n", r.Query)
	tw.writef("Source:\t%s\n", r.Source)
	tw.writef("Listings:\t%d\n", r.Count)
	tw.writef("Median:\t%s\n", gbp(r.MedianGBP))
	tw.writef("P25:\t%s\n", gbp(r.P25GBP))
	tw.writef("P75:\t%s\n", gbp(r.P75GBP))
	tw.writef("Clamp:\t£%.2f - £%.2f\n", r.Clamp.Min, r.Clamp.Max)
	tw.writef("Outlier filter:\t%v\n", r.OutlierFilter)
	tw.writef("Cached:\t%v\n", r.Cache)
	if err := tw.finish(); err != nil {
		return err
	}
	return printExamples(w, r.Examples)
}

func printEstimate(w io.Writer, e *pricing.Estimate) error {
	tw := newTabWriter(w)
	tw.writef("Low (p25):\t%s\n", pence(e.LowPence))
	tw.writef("Suggested:\t%s\n", pence(e.MidPence))
	tw.writef("High (p75):\t%s\n", pence(e.HighPence))
	if err := tw.finish(); err != nil {
		return err
	}
	return printExamples(w, e.Examples)
}

func printExamples(w io.Writer, examples []domain.Example) error {
	if len(examples) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	tw := newTabWriter(w)
	tw.writef("TITLE\tPRICE\tURL\n")
	for i := range examples {
		tw.writef("%s\t£%.2f\t%s\n",
			truncate(examples[i].Title, 40),
			examples[i].PriceGBP,
			examples[i].URL,
		)
	}
	return tw.finish()
}

func printSnapshotsTable(w io.Writer, snaps []domain.Snapshot) error {
	tw := newTabWriter(w)
	tw.writef("CREATED\tQUERY\tSOURCE\tCOUNT\tUSED\tMEDIAN\n")
	for i := range snaps {
		s := &snaps[i]
		tw.writef("%s\t%s\t%s\t%d\t%d\t%s\n",
			s.CreatedAt.Format("2006-01-02 15:04:05"),
			truncate(s.Query, 40),
			s.Source,
			s.Count,
			s.UsedCount,
			gbp(s.MedianGBP),
		)
	}
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func gbp(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("£%.2f", *v)
}

func pence(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("£%d.%02d", *v/100, *v%100)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

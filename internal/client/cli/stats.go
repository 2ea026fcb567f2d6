package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/recipebook/internal/metrics"
)

// Stats prints the request and session counters collected in this run.
func (a *App) Stats(_ context.Context, _ []string) error {
	samples, err := metrics.Samples()
	if err != nil {
		a.printf("Error: %v\n", err)
		return err
	}
	if len(samples) == 0 {
		a.println("No requests yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIES\tLABELS\tVALUE\t")
	for _, s := range samples {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", s.Name, s.Labels, strconv.FormatFloat(s.Value, 'g', 6, 64))
	}
	return tw.Flush()
}

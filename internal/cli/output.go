package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gkobilansky/ab-advisor/internal/decision"
	"github.com/gkobilansky/ab-advisor/internal/format"
)

// printResult writes the decision as a table followed by the summary.
func printResult(w io.Writer, res *decision.Result) {
	fmt.Fprintf(w, "TEST: %s\n", res.TestName)
	fmt.Fprintf(w, "WHY: %s\n", res.TestWhy)

	sig := "not significant"
	if res.Significant {
		sig = "significant"
	}
	fmt.Fprintf(w, "P-VALUE: %s (%s at α = %.2f)\n", format.P(res.PValue), sig, decision.Alpha)

	if res.Statistic != nil {
		switch res.Test {
		case decision.TestChiSquare:
			fmt.Fprintf(w, "STATISTIC: chi2 = %.4f, df = %d\n", *res.Statistic, res.DF)
		default:
			fmt.Fprintf(w, "STATISTIC: z = %.4f\n", *res.Statistic)
		}
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tTRAFFIC\tSUCCESSES\tRATE\t95% CI\tLIFT\t")
	for i, v := range res.Variants {
		ci := fmt.Sprintf("[%s, %s]", format.Pct(v.CILow), format.Pct(v.CIHigh))
		if v.Traffic == 0 {
			ci = "N/A"
		}

		lift := format.LiftSigned(v.LiftRel)
		if i == 0 {
			lift = "(control)"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.Name,
			formatNumber(v.Traffic),
			formatNumber(v.Successes),
			format.Pct(v.Rate),
			ci,
			lift,
			marker(res, v.Name),
		)
	}
	tw.Flush()
	fmt.Fprintln(w)

	if res.TwoVariant != nil && len(res.Variants) == 2 {
		d := res.TwoVariant.Diff
		fmt.Fprintf(w, "DIFFERENCE (%s - %s): 95%% CI [%s, %s]\n",
			res.Variants[1].Name, res.Variants[0].Name, format.PP(d.CILow), format.PP(d.CIHigh))
	}
	if res.Note != "" {
		fmt.Fprintf(w, "NOTE: %s\n", res.Note)
	}
	fmt.Fprintf(w, "SUMMARY: %s\n", res.Summary.Text)
}

func marker(res *decision.Result, name string) string {
	switch {
	case res.Winner != nil && *res.Winner == name:
		return "← WINNER"
	case res.Winner == nil && res.Leader != nil && *res.Leader == name:
		return "← LEADING"
	}
	return ""
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

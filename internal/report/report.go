// Package report renders a decision as a human-readable text document.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gkobilansky/ab-advisor/internal/decision"
	"github.com/gkobilansky/ab-advisor/internal/format"
)

const (
	title  = "A/B Test Results Summary"
	footer = "Generated by A/B Test Advisor"
	indent = "  "
)

var (
	colorPrimary = lipgloss.Color("#4F46E5")
	colorText    = lipgloss.Color("#374151")
	colorMuted   = lipgloss.Color("#6B7280")
	colorSuccess = lipgloss.Color("#059669")
	colorWarning = lipgloss.Color("#D97706")
)

type styles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain}
	}
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		heading: lipgloss.NewStyle().Bold(true).Foreground(colorText),
		muted:   lipgloss.NewStyle().Foreground(colorMuted),
		success: lipgloss.NewStyle().Bold(true).Foreground(colorSuccess),
		warning: lipgloss.NewStyle().Bold(true).Foreground(colorWarning),
	}
}

// Options control rendering.
type Options struct {
	// Date printed under the title. Zero means today.
	Date time.Time
	// Color enables terminal styling. Leave it off for files.
	Color bool
}

// DefaultFileName is the conventional file name for a report written on date.
func DefaultFileName(date time.Time) string {
	return fmt.Sprintf("AB_Test_Results_%s.txt", date.Format("2006-01-02"))
}

// Headline is the one-line verdict at the top of the report.
func Headline(res *decision.Result) string {
	top := res.Top()
	switch {
	case top == "":
		return "Equal Performance Detected"
	case res.Significant:
		return fmt.Sprintf("Variant %s is the Winner", top)
	default:
		return fmt.Sprintf("Variant %s is Leading", top)
	}
}

// Subheadline compares the top variant against the control, or states the shared rate on a tie.
func Subheadline(res *decision.Result, metric decision.Metric) string {
	rows := byName(res.Variants)
	if len(rows) == 0 {
		return ""
	}

	top := res.Top()
	if top == "" {
		return fmt.Sprintf("Variants performing equally at %s %s", format.PctSmart(rows[0].Rate), metric.Noun())
	}

	v, ok := res.Variant(top)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s %s, vs %s for Control", format.PctSmart(v.Rate), metric.Noun(), format.PctSmart(res.Variants[0].Rate))
}

// Recommendation is the closing advice.
func Recommendation(res *decision.Result) string {
	top := res.Top()
	switch {
	case top == "":
		return "Variants are performing equally. Consider running the test longer or try different variants."
	case res.Significant:
		return fmt.Sprintf("Implement Variant %s. The results are statistically significant with p = %s.", top, format.P(res.PValue))
	default:
		return fmt.Sprintf("Continue testing. While Variant %s is leading, more data is needed for statistical significance (p = %s).", top, format.P(res.PValue))
	}
}

// Render returns the full report.
func Render(res *decision.Result, metric decision.Metric, opts Options) string {
	st := newStyles(opts.Color)
	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}

	verdict := st.warning
	if res.Significant {
		verdict = st.success
	}
	top := res.Top()

	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(st.title.Render(title))
	line(st.muted.Render(date.Format("January 2, 2006")))
	line("")

	line(verdict.Render(Headline(res)))
	if sub := Subheadline(res, metric); sub != "" {
		line(sub)
	}
	line("")

	line(st.heading.Render("Test Details"))
	details := [][2]string{
		{"Statistical Test:", res.TestName},
		{"P-Value:", format.P(res.PValue)},
		{"Significance Level:", fmt.Sprintf("α = %.2f", decision.Alpha)},
		{"Result:", significance(res.Significant)},
	}
	if res.Note != "" {
		details = append(details, [2]string{"Note:", res.Note})
	}
	for _, d := range details {
		line(indent + padRight(d[0], 20) + d[1])
	}
	line("")

	line(st.heading.Render("Variant Performance"))
	header := []string{"Variant", "Performance", "Count", "Confidence Interval"}
	rows := [][]string{header}
	for _, v := range byName(res.Variants) {
		rows = append(rows, []string{
			v.Name,
			format.PctSmart(v.Rate),
			format.Counts(v.Successes, v.Traffic),
			format.PctSmart(v.CILow) + " - " + format.PctSmart(v.CIHigh),
		})
	}
	widths := columnWidths(rows)
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = padRight(cell, widths[j])
		}
		text := strings.TrimRight(strings.Join(cells, "  "), " ")
		switch {
		case i == 0:
			text = st.heading.Render(text)
		case top != "" && row[0] == top:
			text = verdict.Render(text)
		}
		line(indent + text)
	}
	line("")

	line(st.heading.Render("Recommendations"))
	line(indent + Recommendation(res))
	line("")

	line(st.muted.Render(footer))
	return b.String()
}

// Write renders the report to w.
func Write(w io.Writer, res *decision.Result, metric decision.Metric, opts Options) error {
	if _, err := io.WriteString(w, Render(res, metric, opts)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func significance(sig bool) string {
	if sig {
		return "Statistically Significant"
	}
	return "Not Statistically Significant"
}

// byName returns a copy of the variants sorted by name.
func byName(vs []decision.VariantResult) []decision.VariantResult {
	out := append([]decision.VariantResult(nil), vs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func columnWidths(rows [][]string) []int {
	var widths []int
	for _, row := range rows {
		for j, cell := range row {
			if j >= len(widths) {
				widths = append(widths, 0)
			}
			if w := lipgloss.Width(cell); w > widths[j] {
				widths[j] = w
			}
		}
	}
	return widths
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

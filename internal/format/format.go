// Package format renders rates, lifts and p-values for summaries and reports.
package format

import (
	"fmt"
	"math"
)

// Missing stands in for values that are undefined, such as relative lift against a zero baseline.
const Missing = "—"

// P formats a p-value with four decimals, or "< 0.0001" below that.
func P(p float64) string {
	if !finite(p) {
		return Missing
	}
	if p < 0.0001 {
		return "< 0.0001"
	}
	return fmt.Sprintf("%.4f", p)
}

// Percent returns x as a percentage with two decimals and no sign.
func Percent(x float64) string {
	return fmt.Sprintf("%.2f", x*100)
}

// Pct returns x as a percentage with two decimals.
func Pct(x float64) string {
	if !finite(x) {
		return Missing
	}
	return Percent(x) + "%"
}

// PctSmart uses two decimals below 10% and one decimal above.
func PctSmart(x float64) string {
	if !finite(x) {
		return Missing
	}
	pct := x * 100
	return fmt.Sprintf("%.*f%%", decimals(pct), pct)
}

// Lift renders a relative lift with two decimals, or Missing when undefined.
func Lift(rel *float64) string {
	if rel == nil || !finite(*rel) {
		return Missing
	}
	return Pct(*rel)
}

// LiftSigned renders a relative lift with an explicit "+" for gains.
func LiftSigned(rel *float64) string {
	if rel == nil || !finite(*rel) {
		return Missing
	}
	return signed(*rel*100) + "%"
}

// PP renders an absolute difference in percentage points.
func PP(delta float64) string {
	if !finite(delta) {
		return Missing
	}
	return signed(delta*100) + " pp"
}

// Counts renders "successes/traffic".
func Counts(successes, traffic int) string {
	return fmt.Sprintf("%d/%d", successes, traffic)
}

func signed(v float64) string {
	sign := ""
	if v > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.*f", sign, decimals(v), v)
}

func decimals(pct float64) int {
	if math.Abs(pct) < 10 {
		return 2
	}
	return 1
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

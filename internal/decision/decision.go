// Package decision picks a hypothesis test for a set of experiment variants,
// applies the significance threshold and resolves the winner or leader.
package decision

import "errors"

// Alpha is the fixed significance threshold.
const Alpha = 0.05

// TieTolerance is the largest gap between the two best rates still treated as a tie.
const TieTolerance = 1e-4

// ErrTooFewVariants is returned when fewer than two variants are supplied.
var ErrTooFewVariants = errors.New("at least 2 variants are required")

// Metric labels what a success means. It does not affect the computation.
type Metric string

const (
	MetricCTR        Metric = "ctr"
	MetricConversion Metric = "conversion"
)

// Noun is the human name of the metric.
func (m Metric) Noun() string {
	if m == MetricCTR {
		return "CTR"
	}
	return "conversion rate"
}

// Variant is a single arm of an experiment. The first variant of an Input is the control.
type Variant struct {
	Name      string `json:"name" yaml:"name"`
	Traffic   int    `json:"traffic" yaml:"traffic"`
	Successes int    `json:"successes" yaml:"successes"`
}

// Input is what the engine decides on.
type Input struct {
	Metric   Metric    `json:"metric" yaml:"metric"`
	Variants []Variant `json:"variants" yaml:"variants"`
}

// TestKind identifies the hypothesis test that produced a Result.
type TestKind string

const (
	TestFisher    TestKind = "fisher"
	TestZ         TestKind = "z-test"
	TestChiSquare TestKind = "chi-square"
)

const (
	fisherName    = "Fisher's exact test"
	fisherWhy     = "Fisher's exact test - safer with small sample sizes."
	zTestName     = "Two-proportion z-test"
	zTestWhy      = "Two-proportion z-test - we're comparing success rates between two independent variants."
	chiSquareName = "Chi-square test"
	chiSquareWhy  = "Chi-square test - we're checking if success rates differ across multiple variants."
	noPostHocNote = "Global difference detected; no pairwise post-hoc comparisons were run."
)

// Result is the full outcome of a decision. It is safe to serialize and holds
// no non-finite numbers for valid input.
type Result struct {
	Test        TestKind        `json:"test"`
	TestName    string          `json:"testName"`
	TestWhy     string          `json:"testWhy"`
	PValue      float64         `json:"pValue"`
	Statistic   *float64        `json:"statistic,omitempty"`
	DF          int             `json:"df,omitempty"`
	Significant bool            `json:"significant"`
	Winner      *string         `json:"winner"`
	Leader      *string         `json:"leader"`
	Note        string          `json:"note,omitempty"`
	Variants    []VariantResult `json:"variants"`
	TwoVariant  *TwoVariant     `json:"twoVariant,omitempty"`
	Summary     Summary         `json:"summary"`
}

// VariantResult holds per-variant rate, interval and lift against the control.
type VariantResult struct {
	Name      string   `json:"name"`
	Rate      float64  `json:"rate"`
	Traffic   int      `json:"traffic"`
	Successes int      `json:"successes"`
	CILow     float64  `json:"ciLow"`
	CIHigh    float64  `json:"ciHigh"`
	LiftAbs   float64  `json:"liftAbs"`
	LiftRel   *float64 `json:"liftRel"`
}

// TwoVariant carries the comparison only defined for exactly two variants.
type TwoVariant struct {
	// Diff is the normal-approximation interval for rate[1] - rate[0].
	Diff Diff `json:"diff"`
}

// Diff is an interval on a difference of rates. Unlike rate intervals it may be negative.
type Diff struct {
	CILow  float64 `json:"ciLow"`
	CIHigh float64 `json:"ciHigh"`
}

// WinnerName returns the winner or "".
func (r *Result) WinnerName() string { return deref(r.Winner) }

// LeaderName returns the leader or "".
func (r *Result) LeaderName() string { return deref(r.Leader) }

// Top is the winner when there is one, otherwise the leader.
func (r *Result) Top() string {
	if r.Winner != nil {
		return *r.Winner
	}
	return deref(r.Leader)
}

// Variant looks up a variant result by name.
func (r *Result) Variant(name string) (VariantResult, bool) {
	for _, v := range r.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return VariantResult{}, false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

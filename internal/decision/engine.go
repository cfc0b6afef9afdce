package decision

import (
	"math"
	"sort"
	"strings"

	"github.com/gkobilansky/ab-advisor/internal/stats"
)

// Engine runs decisions. It owns the log-factorial table used by the exact
// test; the zero value shares the stats package table. An Engine is safe for
// concurrent use.
type Engine struct {
	factorials *stats.LogFactorials
}

// NewEngine returns an engine with its own log-factorial table.
func NewEngine() *Engine {
	return &Engine{factorials: stats.NewLogFactorials()}
}

var defaultEngine = &Engine{}

// Decide runs the default engine.
func Decide(in Input) (*Result, error) {
	return defaultEngine.Decide(in)
}

// arm is a normalized variant.
type arm struct {
	name string
	n, x int
	p    float64
}

// verdict is the resolved outcome: pick indexes the winner or leader, -1 when tied.
type verdict struct {
	pick   int
	winner bool
}

// Decide selects a test from the number of variants and their sample sizes,
// applies the significance threshold and resolves the winner or leader.
// The first variant is the control.
func (e *Engine) Decide(in Input) (*Result, error) {
	if len(in.Variants) < 2 {
		return nil, ErrTooFewVariants
	}

	arms := normalize(in.Variants)
	ranked := rank(arms)
	hasTie := math.Abs(arms[ranked[0]].p-arms[ranked[1]].p) < TieTolerance

	var (
		res *Result
		v   verdict
	)
	if len(arms) == 2 {
		res, v = e.decidePair(arms[0], arms[1], hasTie)
	} else {
		res, v = decideMany(arms, ranked[0], hasTie)
	}

	if v.pick >= 0 {
		name := arms[v.pick].name
		res.Leader = &name
		if v.winner {
			res.Winner = &name
		}
	}

	res.Variants = enrich(arms)
	res.Summary = summarize(classify(res, len(arms) > 2, v.pick))
	return res, nil
}

func (e *Engine) decidePair(a, b arm, hasTie bool) (*Result, verdict) {
	res := &Result{}

	if stats.SmallCounts(a.x, a.n, b.x, b.n) {
		res.Test, res.TestName, res.TestWhy = TestFisher, fisherName, fisherWhy
		res.PValue = stats.FishersExactTwoSided(e.factorials, a.x, a.n, b.x, b.n)
	} else {
		z := stats.TwoPropZTest(a.x, a.n, b.x, b.n)
		res.Test, res.TestName, res.TestWhy = TestZ, zTestName, zTestWhy
		res.PValue = z.P
		res.Statistic = &z.Z
	}
	res.Significant = res.PValue < Alpha

	v := verdict{pick: -1}
	switch {
	case res.Significant && b.p > a.p:
		v = verdict{pick: 1, winner: true}
	case res.Significant && a.p > b.p:
		v = verdict{pick: 0, winner: true}
	case res.Significant:
		// Significant with identical rates; nothing to crown.
	case hasTie:
	case b.p > a.p:
		v.pick = 1
	default:
		v.pick = 0
	}

	diff := Diff{}
	if a.n > 0 && b.n > 0 {
		ci := stats.DiffCINormal(a.p, a.n, b.p, b.n, stats.DefaultZ)
		diff = Diff{CILow: ci.Low, CIHigh: ci.High}
	}
	res.TwoVariant = &TwoVariant{Diff: diff}

	return res, v
}

func decideMany(arms []arm, top int, hasTie bool) (*Result, verdict) {
	xs := make([]int, len(arms))
	ns := make([]int, len(arms))
	for i, a := range arms {
		xs[i], ns[i] = a.x, a.n
	}
	chi := stats.ChiSquare2xK(xs, ns)

	res := &Result{
		Test:        TestChiSquare,
		TestName:    chiSquareName,
		TestWhy:     chiSquareWhy,
		PValue:      chi.P,
		Statistic:   &chi.Chi2,
		DF:          chi.DF,
		Significant: chi.P < Alpha,
	}
	if res.Significant {
		res.Note = noPostHocNote
	}

	if hasTie {
		return res, verdict{pick: -1}
	}
	return res, verdict{pick: top, winner: res.Significant}
}

func normalize(variants []Variant) []arm {
	arms := make([]arm, len(variants))
	for i, v := range variants {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			name = "?"
		}
		p := 0.0
		if v.Traffic > 0 {
			p = float64(v.Successes) / float64(v.Traffic)
		}
		arms[i] = arm{name: name, n: v.Traffic, x: v.Successes, p: p}
	}
	return arms
}

// rank returns arm indexes ordered by descending rate, keeping input order on equal rates.
func rank(arms []arm) []int {
	idx := make([]int, len(arms))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return arms[idx[i]].p > arms[idx[j]].p
	})
	return idx
}

func enrich(arms []arm) []VariantResult {
	control := arms[0]
	out := make([]VariantResult, len(arms))
	for i, a := range arms {
		ci := stats.WilsonScore(a.x, a.n, stats.DefaultZ)
		out[i] = VariantResult{
			Name:      a.name,
			Rate:      a.p,
			Traffic:   a.n,
			Successes: a.x,
			CILow:     ci.Low,
			CIHigh:    ci.High,
			LiftAbs:   a.p - control.p,
		}
		if control.p > 0 {
			rel := a.p/control.p - 1
			out[i].LiftRel = &rel
		}
	}
	return out
}

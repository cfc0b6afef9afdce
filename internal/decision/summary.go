package decision

import (
	"fmt"

	"github.com/gkobilansky/ab-advisor/internal/format"
)

// OutcomeKind names which summary sentence describes a Result.
type OutcomeKind string

const (
	OutcomeWinner            OutcomeKind = "winner"
	OutcomeLeader            OutcomeKind = "leader"
	OutcomeTieSignificant    OutcomeKind = "tie-significant"
	OutcomeTieNotSignificant OutcomeKind = "tie-not-significant"
	OutcomeMultiWinner       OutcomeKind = "multi-winner"
	OutcomeMultiLeader       OutcomeKind = "multi-leader"
)

// Summary is the one-sentence reading of a Result.
type Summary struct {
	Kind OutcomeKind `json:"kind"`
	Text string      `json:"text"`
}

// outcome is one of a closed set of summary variants, each holding what its sentence needs.
type outcome interface {
	kind() OutcomeKind
	sentence() string
}

type winnerOutcome struct {
	name string
	rate float64
	lift *float64
	p    float64
}

type leaderOutcome struct {
	name string
	rate float64
	lift *float64
	p    float64
}

type tieOutcome struct {
	significant bool
	multi       bool
	p           float64
}

type multiWinnerOutcome struct {
	name string
	rate float64
	p    float64
}

type multiLeaderOutcome struct {
	name string
	rate float64
	p    float64
}

func (winnerOutcome) kind() OutcomeKind      { return OutcomeWinner }
func (leaderOutcome) kind() OutcomeKind      { return OutcomeLeader }
func (multiWinnerOutcome) kind() OutcomeKind { return OutcomeMultiWinner }
func (multiLeaderOutcome) kind() OutcomeKind { return OutcomeMultiLeader }

func (o tieOutcome) kind() OutcomeKind {
	if o.significant {
		return OutcomeTieSignificant
	}
	return OutcomeTieNotSignificant
}

func (o winnerOutcome) sentence() string {
	return fmt.Sprintf("Variant %s wins with a %s%% rate, %s vs control (p = %s).",
		o.name, format.Percent(o.rate), format.Lift(o.lift), format.P(o.p))
}

func (o leaderOutcome) sentence() string {
	return fmt.Sprintf("Variant %s is leading at %s%% (%s vs control), but results aren't yet statistically reliable (p = %s).",
		o.name, format.Percent(o.rate), format.Lift(o.lift), format.P(o.p))
}

func (o tieOutcome) sentence() string {
	switch {
	case o.significant && o.multi:
		return fmt.Sprintf("Results show a tie with equal performance across variants (chi-square, p = %s). All top variants perform identically.", format.P(o.p))
	case o.significant:
		return fmt.Sprintf("Results show a tie with equal performance (p = %s). Both variants perform identically.", format.P(o.p))
	case o.multi:
		return fmt.Sprintf("No clear leader - variants are performing equally (chi-square p = %s). Continue collecting data.", format.P(o.p))
	}
	return fmt.Sprintf("No clear leader - variants are performing equally (p = %s). Continue collecting data.", format.P(o.p))
}

func (o multiWinnerOutcome) sentence() string {
	return fmt.Sprintf("We found a real difference across variants (chi-square, p = %s). %s has the highest rate at %s%%. No pairwise follow-up tests were run.",
		format.P(o.p), o.name, format.Percent(o.rate))
}

func (o multiLeaderOutcome) sentence() string {
	return fmt.Sprintf("No clear winner yet (chi-square p = %s). %s is currently leading at %s%%.",
		format.P(o.p), o.name, format.Percent(o.rate))
}

// classify picks the outcome variant for a resolved Result. pick indexes
// res.Variants, or is -1 when no variant leads.
func classify(res *Result, multi bool, pick int) outcome {
	p := res.PValue
	if pick < 0 {
		return tieOutcome{significant: res.Significant, multi: multi, p: p}
	}

	v := res.Variants[pick]
	winner := res.Winner != nil
	switch {
	case multi && winner:
		return multiWinnerOutcome{name: v.Name, rate: v.Rate, p: p}
	case multi:
		return multiLeaderOutcome{name: v.Name, rate: v.Rate, p: p}
	case winner:
		return winnerOutcome{name: v.Name, rate: v.Rate, lift: v.LiftRel, p: p}
	default:
		return leaderOutcome{name: v.Name, rate: v.Rate, lift: v.LiftRel, p: p}
	}
}

func summarize(o outcome) Summary {
	return Summary{Kind: o.kind(), Text: o.sentence()}
}

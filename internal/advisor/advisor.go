// Package advisor runs the decision engine over experiments kept in the store.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gkobilansky/ab-advisor/internal/decision"
	"github.com/gkobilansky/ab-advisor/internal/input"
	"github.com/gkobilansky/ab-advisor/internal/logging"
	"github.com/gkobilansky/ab-advisor/internal/store"
)

var (
	ErrNoWinner       = errors.New("no statistically significant winner")
	ErrUnknownVariant = errors.New("unknown variant")
	ErrConcluded      = errors.New("experiment already concluded")
)

// Service ties the store to the decision engine.
type Service struct {
	store  store.Store
	engine *decision.Engine
	logger *slog.Logger
}

// New returns a Service. A nil logger discards output.
func New(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		store:  s,
		engine: decision.NewEngine(),
		logger: logger,
	}
}

// Evaluation is the decision for one experiment at its current counts.
type Evaluation struct {
	Experiment *store.Experiment `json:"-"`
	Input      decision.Input    `json:"input"`
	Result     *decision.Result  `json:"result"`
}

// Create validates and stores a new experiment with zero counts.
func (s *Service) Create(ctx context.Context, name, metric string, variants []string) (*store.Experiment, error) {
	if name == "" {
		return nil, &input.ValidationError{Issues: []input.Issue{{Field: "name", Message: "Name is required."}}}
	}

	req := input.Request{Metric: metric}
	for _, v := range variants {
		req.Variants = append(req.Variants, input.VariantRequest{Name: v})
	}
	if err := input.Validate(req); err != nil {
		return nil, err
	}

	exp, err := s.store.CreateExperiment(ctx, name, metric, variants)
	if err != nil {
		return nil, err
	}

	s.logger.Info("experiment created", "experiment", name, "metric", metric, "variants", len(variants))
	return exp, nil
}

// Record updates the counts of one variant. With set the totals are replaced,
// otherwise they are added. The resulting totals must still be valid input.
func (s *Service) Record(ctx context.Context, name, variant string, traffic, successes int, set bool) error {
	exp, err := s.store.GetExperiment(ctx, name)
	if err != nil {
		return err
	}
	if exp.State == store.StateCompleted {
		return fmt.Errorf("%w: %s", ErrConcluded, name)
	}

	idx, err := variantIndex(exp, variant)
	if err != nil {
		return err
	}

	if issues := negativeCounts(traffic, successes); len(issues) > 0 {
		return &input.ValidationError{Issues: issues}
	}

	in, err := s.load(ctx, exp)
	if err != nil {
		return err
	}
	row := &in.Variants[idx]
	if set {
		row.Traffic, row.Successes = traffic, successes
	} else {
		row.Traffic += traffic
		row.Successes += successes
	}
	if err := input.Validate(input.FromInput(in)); err != nil {
		return err
	}

	if set {
		err = s.store.SetCounts(ctx, name, idx, traffic, successes)
	} else {
		err = s.store.AddCounts(ctx, name, idx, traffic, successes)
	}
	if err != nil {
		return err
	}

	s.logger.Info("counts recorded",
		"experiment", name,
		"variant", exp.Variants[idx],
		"traffic", row.Traffic,
		"successes", row.Successes,
		"set", set,
	)
	return nil
}

// Evaluate decides on the experiment's current counts.
func (s *Service) Evaluate(ctx context.Context, name string) (*Evaluation, error) {
	exp, err := s.store.GetExperiment(ctx, name)
	if err != nil {
		return nil, err
	}

	in, err := s.load(ctx, exp)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(input.FromInput(in)); err != nil {
		return nil, err
	}

	res, err := s.engine.Decide(in)
	if err != nil {
		return nil, fmt.Errorf("failed to decide %s: %w", name, err)
	}

	s.logger.Debug("decision computed",
		"experiment", name,
		"test", res.Test,
		"p_value", res.PValue,
		"significant", res.Significant,
		"winner", res.WinnerName(),
		"leader", res.LeaderName(),
	)
	return &Evaluation{Experiment: exp, Input: in, Result: res}, nil
}

// EvaluateAndSave evaluates the experiment and stores the decision in its history.
func (s *Service) EvaluateAndSave(ctx context.Context, name string) (*Evaluation, *store.DecisionRecord, error) {
	ev, err := s.Evaluate(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	data, err := json.Marshal(ev.Result)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode decision: %w", err)
	}

	rec := &store.DecisionRecord{
		Experiment:  name,
		TestName:    ev.Result.TestName,
		PValue:      ev.Result.PValue,
		Significant: ev.Result.Significant,
		Winner:      ev.Result.WinnerName(),
		Leader:      ev.Result.LeaderName(),
		Result:      data,
	}
	if err := s.store.SaveDecision(ctx, rec); err != nil {
		return nil, nil, err
	}

	s.logger.Info("decision saved", "experiment", name, "id", rec.ID, "significant", rec.Significant)
	return ev, rec, nil
}

// Conclude marks the experiment completed. An empty variant means the current
// significant winner, and fails with ErrNoWinner when there is none.
func (s *Service) Conclude(ctx context.Context, name, variant string) (string, error) {
	exp, err := s.store.GetExperiment(ctx, name)
	if err != nil {
		return "", err
	}
	if exp.State == store.StateCompleted {
		return "", fmt.Errorf("%w: %s (winner %s)", ErrConcluded, name, exp.Winner)
	}

	winner := variant
	if winner == "" {
		ev, err := s.Evaluate(ctx, name)
		if err != nil {
			return "", err
		}
		winner = ev.Result.WinnerName()
		if winner == "" {
			return "", ErrNoWinner
		}
	} else {
		idx, err := variantIndex(exp, variant)
		if err != nil {
			return "", err
		}
		winner = exp.Variants[idx]
	}

	if err := s.store.Conclude(ctx, name, winner); err != nil {
		return "", err
	}

	s.logger.Info("experiment concluded", "experiment", name, "winner", winner)
	return winner, nil
}

// Counts returns the experiment and its current totals as engine input.
func (s *Service) Counts(ctx context.Context, name string) (*store.Experiment, decision.Input, error) {
	exp, err := s.store.GetExperiment(ctx, name)
	if err != nil {
		return nil, decision.Input{}, err
	}
	in, err := s.load(ctx, exp)
	if err != nil {
		return nil, decision.Input{}, err
	}
	return exp, in, nil
}

// History returns saved decisions, newest first.
func (s *Service) History(ctx context.Context, name string) ([]*store.DecisionRecord, error) {
	if _, err := s.store.GetExperiment(ctx, name); err != nil {
		return nil, err
	}
	return s.store.ListDecisions(ctx, name)
}

// load builds engine input from the stored counts. Variants without counts are zero.
func (s *Service) load(ctx context.Context, exp *store.Experiment) (decision.Input, error) {
	counts, err := s.store.GetVariantCounts(ctx, exp.Name)
	if err != nil {
		return decision.Input{}, err
	}

	byIndex := make(map[int]store.VariantCounts, len(counts))
	for _, c := range counts {
		byIndex[c.Variant] = c
	}

	in := decision.Input{Metric: decision.Metric(exp.Metric)}
	for i, name := range exp.Variants {
		c := byIndex[i]
		in.Variants = append(in.Variants, decision.Variant{
			Name:      name,
			Traffic:   c.Traffic,
			Successes: c.Successes,
		})
	}
	return in, nil
}

// variantIndex resolves a variant by name, falling back to a numeric index.
func variantIndex(exp *store.Experiment, variant string) (int, error) {
	for i, name := range exp.Variants {
		if name == variant {
			return i, nil
		}
	}
	if i, err := strconv.Atoi(variant); err == nil && i >= 0 && i < len(exp.Variants) {
		return i, nil
	}
	return 0, fmt.Errorf("%w %q in %s", ErrUnknownVariant, variant, exp.Name)
}

func negativeCounts(traffic, successes int) []input.Issue {
	var issues []input.Issue
	if traffic < 0 {
		issues = append(issues, input.Issue{Field: "traffic", Message: "Must be 0 or more."})
	}
	if successes < 0 {
		issues = append(issues, input.Issue{Field: "successes", Message: "Must be 0 or more."})
	}
	return issues
}

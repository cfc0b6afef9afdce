package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gkobilansky/ab-advisor/internal/store"
	"github.com/gkobilansky/ab-advisor/internal/testutil"
)

func TestOpen(t *testing.T) {
	s := testutil.SetupTestStore(t)

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestCreateExperiment(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	exp, err := s.CreateExperiment(ctx, "hero", "ctr", []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	if exp.Name != "hero" {
		t.Errorf("got Name %s, want hero", exp.Name)
	}
	if exp.Metric != "ctr" {
		t.Errorf("got Metric %s, want ctr", exp.Metric)
	}
	if len(exp.Variants) != 3 {
		t.Errorf("got %d variants, want 3", len(exp.Variants))
	}
	if exp.State != store.StateRunning {
		t.Errorf("got State %s, want running", exp.State)
	}
	if exp.ID == 0 {
		t.Error("expected non-zero ID")
	}
}

func TestCreateExperiment_Duplicate(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "hero", "ctr", []string{"A", "B"}); err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	_, err := s.CreateExperiment(ctx, "hero", "conversion", []string{"X", "Y"})
	if !errors.Is(err, store.ErrExists) {
		t.Fatalf("got error %v, want ErrExists", err)
	}
}

func TestGetExperiment(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "pricing", "conversion", []string{"Control", "Cheaper"}); err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	exp, err := s.GetExperiment(ctx, "pricing")
	if err != nil {
		t.Fatalf("failed to get experiment: %v", err)
	}

	if exp.Metric != "conversion" {
		t.Errorf("got Metric %s, want conversion", exp.Metric)
	}
	if len(exp.Variants) != 2 || exp.Variants[0] != "Control" || exp.Variants[1] != "Cheaper" {
		t.Errorf("got Variants %v, want [Control Cheaper]", exp.Variants)
	}
	if exp.Winner != "" {
		t.Errorf("got Winner %q, want empty", exp.Winner)
	}
	if time.Since(exp.CreatedAt) > time.Minute {
		t.Errorf("CreatedAt %v is not recent", exp.CreatedAt)
	}
}

func TestGetExperiment_NotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	_, err := s.GetExperiment(context.Background(), "nonexistent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

func TestListExperiments(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		if _, err := s.CreateExperiment(ctx, name, "ctr", []string{"A", "B"}); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	experiments, err := s.ListExperiments(ctx)
	if err != nil {
		t.Fatalf("failed to list experiments: %v", err)
	}

	if len(experiments) != 3 {
		t.Fatalf("got %d experiments, want 3", len(experiments))
	}
	// Newest first
	if experiments[0].Name != "three" {
		t.Errorf("got first experiment %s, want three", experiments[0].Name)
	}
}

func TestListExperiments_Empty(t *testing.T) {
	s := testutil.SetupTestStore(t)

	experiments, err := s.ListExperiments(context.Background())
	if err != nil {
		t.Fatalf("failed to list experiments: %v", err)
	}
	if len(experiments) != 0 {
		t.Errorf("got %d experiments, want 0", len(experiments))
	}
}

func TestConclude(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "hero", "ctr", []string{"A", "B"}); err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	if err := s.Conclude(ctx, "hero", "B"); err != nil {
		t.Fatalf("failed to conclude: %v", err)
	}

	exp, err := s.GetExperiment(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to get experiment: %v", err)
	}
	if exp.State != store.StateCompleted {
		t.Errorf("got State %s, want completed", exp.State)
	}
	if exp.Winner != "B" {
		t.Errorf("got Winner %q, want B", exp.Winner)
	}
}

func TestConclude_NotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	err := s.Conclude(context.Background(), "missing", "A")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

func TestSetCounts_Overwrites(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "hero", "ctr", []string{"A", "B"}); err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	if err := s.SetCounts(ctx, "hero", 1, 100, 10); err != nil {
		t.Fatalf("failed to set counts: %v", err)
	}
	if err := s.SetCounts(ctx, "hero", 1, 250, 30); err != nil {
		t.Fatalf("failed to set counts: %v", err)
	}

	counts, err := s.GetVariantCounts(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to get counts: %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("got %d rows, want 1", len(counts))
	}
	want := store.VariantCounts{Variant: 1, Traffic: 250, Successes: 30}
	if counts[0] != want {
		t.Errorf("got %+v, want %+v", counts[0], want)
	}
}

func TestAddCounts_Increments(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "hero", "ctr", []string{"A", "B"}); err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.AddCounts(ctx, "hero", 0, 100, 7); err != nil {
			t.Fatalf("failed to add counts: %v", err)
		}
	}
	if err := s.AddCounts(ctx, "hero", 1, 50, 5); err != nil {
		t.Fatalf("failed to add counts: %v", err)
	}

	counts, err := s.GetVariantCounts(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to get counts: %v", err)
	}

	want := []store.VariantCounts{
		{Variant: 0, Traffic: 300, Successes: 21},
		{Variant: 1, Traffic: 50, Successes: 5},
	}
	if len(counts) != len(want) {
		t.Fatalf("got %d rows, want %d", len(counts), len(want))
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("row %d: got %+v, want %+v", i, counts[i], want[i])
		}
	}
}

func TestAddCounts_InvalidVariant(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "hero", "ctr", []string{"A", "B"}); err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	for _, idx := range []int{-1, 2, 10} {
		err := s.AddCounts(ctx, "hero", idx, 1, 0)
		if !errors.Is(err, store.ErrInvalidVariant) {
			t.Errorf("variant %d: got error %v, want ErrInvalidVariant", idx, err)
		}
	}
}

func TestAddCounts_UnknownExperiment(t *testing.T) {
	s := testutil.SetupTestStore(t)

	err := s.AddCounts(context.Background(), "missing", 0, 1, 0)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

func TestSaveDecision_AssignsID(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "hero", "ctr", []string{"A", "B"}); err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	rec := &store.DecisionRecord{
		Experiment:  "hero",
		TestName:    "Two-proportion z-test",
		PValue:      0.0001,
		Significant: true,
		Winner:      "B",
		Leader:      "B",
		Result:      []byte(`{"pValue":0.0001}`),
	}
	if err := s.SaveDecision(ctx, rec); err != nil {
		t.Fatalf("failed to save decision: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	records, err := s.ListDecisions(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to list decisions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	got := records[0]
	if got.ID != rec.ID {
		t.Errorf("got ID %s, want %s", got.ID, rec.ID)
	}
	if !got.Significant || got.Winner != "B" || got.Leader != "B" {
		t.Errorf("got %+v, want significant winner B", got)
	}
	if string(got.Result) != `{"pValue":0.0001}` {
		t.Errorf("got Result %s", got.Result)
	}
}

func TestListDecisions_NewestFirst(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateExperiment(ctx, "hero", "ctr", []string{"A", "B"}); err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i, leader := range []string{"A", "B", ""} {
		rec := &store.DecisionRecord{
			Experiment: "hero",
			TestName:   "Fisher's exact test",
			PValue:     0.5,
			Leader:     leader,
			Result:     []byte(`{}`),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveDecision(ctx, rec); err != nil {
			t.Fatalf("failed to save decision: %v", err)
		}
	}

	records, err := s.ListDecisions(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to list decisions: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Leader != "" || records[2].Leader != "A" {
		t.Errorf("unexpected order: %q, %q, %q", records[0].Leader, records[1].Leader, records[2].Leader)
	}
}

func TestDeleteExperiment(t *testing.T) {
	s := testutil.SetupTestStore(t)
	exp := testutil.SeedExperiment(t, s, "hero", "ctr",
		testutil.Counts{Variant: "A", Traffic: 100, Successes: 5},
		testutil.Counts{Variant: "B", Traffic: 100, Successes: 9},
	)
	ctx := context.Background()

	if err := s.SaveDecision(ctx, &store.DecisionRecord{Experiment: exp.Name, TestName: "z", Result: []byte(`{}`)}); err != nil {
		t.Fatalf("failed to save decision: %v", err)
	}

	if err := s.DeleteExperiment(ctx, "hero"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	if _, err := s.GetExperiment(ctx, "hero"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got error %v after delete, want ErrNotFound", err)
	}
	counts, err := s.GetVariantCounts(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to get counts: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("got %d count rows after delete, want 0", len(counts))
	}
	records, err := s.ListDecisions(ctx, "hero")
	if err != nil {
		t.Fatalf("failed to list decisions: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d decisions after delete, want 0", len(records))
	}

	// The name can be reused
	if _, err := s.CreateExperiment(ctx, "hero", "ctr", []string{"A", "B"}); err != nil {
		t.Errorf("failed to recreate experiment: %v", err)
	}
}

func TestDeleteExperiment_NotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	err := s.DeleteExperiment(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got error %v, want ErrNotFound", err)
	}
}

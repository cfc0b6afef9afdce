// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gkobilansky/ab-advisor/internal/store"
)

// SetupTestStore opens a store in t.TempDir() and closes it when the test ends.
func SetupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// Counts is one variant's totals for SeedExperiment.
type Counts struct {
	Variant   string
	Traffic   int
	Successes int
}

// SeedExperiment creates an experiment with the given variants and sets their counts.
func SeedExperiment(t *testing.T, s store.Store, name, metric string, counts ...Counts) *store.Experiment {
	t.Helper()
	ctx := context.Background()

	names := make([]string, len(counts))
	for i, c := range counts {
		names[i] = c.Variant
	}

	exp, err := s.CreateExperiment(ctx, name, metric, names)
	if err != nil {
		t.Fatalf("failed to create experiment: %v", err)
	}

	for i, c := range counts {
		if c.Traffic == 0 && c.Successes == 0 {
			continue
		}
		if err := s.SetCounts(ctx, name, i, c.Traffic, c.Successes); err != nil {
			t.Fatalf("failed to set counts for %s: %v", c.Variant, err)
		}
	}

	return exp
}

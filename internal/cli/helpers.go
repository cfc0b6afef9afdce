package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gkobilansky/ab-advisor/internal/advisor"
	"github.com/gkobilansky/ab-advisor/internal/store"
)

// withStore opens the database, executes the function, and handles cleanup.
func (a *app) withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// withAdvisor is withStore for commands that go through the advisor service.
func (a *app) withAdvisor(fn func(*advisor.Service) error) error {
	return a.withStore(func(s *store.SQLiteStore) error {
		return fn(advisor.New(s, a.logger))
	})
}

// tokenFilePath keeps the server token alongside the database.
func (a *app) tokenFilePath() string {
	return filepath.Join(filepath.Dir(a.cfg.DBPath), ".ab-advisor-token")
}

// friendly rewrites store errors that are common on the command line.
func friendly(name string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("experiment '%s' not found", name)
	case errors.Is(err, store.ErrExists):
		return fmt.Errorf("experiment '%s' already exists", name)
	}
	return err
}

func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	if n < 1000000000 {
		return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d,%03d", n/1000000000, (n/1000000)%1000, (n/1000)%1000, n%1000)
}

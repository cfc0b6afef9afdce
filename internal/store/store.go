package store

import "context"

// Store defines the interface for experiment storage operations
type Store interface {
	// Experiment operations
	CreateExperiment(ctx context.Context, name, metric string, variants []string) (*Experiment, error)
	GetExperiment(ctx context.Context, name string) (*Experiment, error)
	ListExperiments(ctx context.Context) ([]*Experiment, error)
	Conclude(ctx context.Context, name, winner string) error
	DeleteExperiment(ctx context.Context, name string) error

	// Count operations
	SetCounts(ctx context.Context, name string, variant, traffic, successes int) error
	AddCounts(ctx context.Context, name string, variant, traffic, successes int) error
	GetVariantCounts(ctx context.Context, name string) ([]VariantCounts, error)

	// Decision history
	SaveDecision(ctx context.Context, rec *DecisionRecord) error
	ListDecisions(ctx context.Context, name string) ([]*DecisionRecord, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

package store

import "time"

type ExperimentState string

const (
	StateRunning   ExperimentState = "running"
	StateCompleted ExperimentState = "completed"
)

type Experiment struct {
	ID        int64
	Name      string
	Metric    string
	Variants  []string // Decoded from JSON, first is the control
	State     ExperimentState
	Winner    string // Set when concluded
	CreatedAt time.Time
	UpdatedAt time.Time
}

type VariantCounts struct {
	Variant   int
	Traffic   int
	Successes int
}

// DecisionRecord is a saved decision. Result holds the full JSON-encoded result.
type DecisionRecord struct {
	ID          string
	Experiment  string
	TestName    string
	PValue      float64
	Significant bool
	Winner      string
	Leader      string
	Result      []byte
	CreatedAt   time.Time
}

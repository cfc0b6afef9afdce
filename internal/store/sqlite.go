package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrExists         = errors.New("already exists")
	ErrInvalidVariant = errors.New("invalid variant index")
)

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    metric TEXT NOT NULL,
    variants TEXT NOT NULL,
    state TEXT NOT NULL DEFAULT 'running',
    winner TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_experiments_state ON experiments(state);

CREATE TABLE IF NOT EXISTS variant_counts (
    experiment_name TEXT NOT NULL,
    variant INTEGER NOT NULL,
    traffic INTEGER NOT NULL DEFAULT 0,
    successes INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (experiment_name, variant),
    FOREIGN KEY (experiment_name) REFERENCES experiments(name)
);

CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    experiment_name TEXT NOT NULL,
    test_name TEXT NOT NULL,
    p_value REAL NOT NULL,
    significant INTEGER NOT NULL,
    winner TEXT,
    leader TEXT,
    result TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (experiment_name) REFERENCES experiments(name)
);

CREATE INDEX IF NOT EXISTS idx_decisions_experiment ON decisions(experiment_name, created_at);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection for health checks.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) CreateExperiment(ctx context.Context, name, metric string, variants []string) (*Experiment, error) {
	variantsJSON, err := json.Marshal(variants)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variants: %w", err)
	}

	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO experiments (name, metric, variants, state, created_at, updated_at)
		 VALUES (?, ?, ?, 'running', ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name, metric, string(variantsJSON), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert experiment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrExists
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &Experiment{
		ID:        id,
		Name:      name,
		Metric:    metric,
		Variants:  variants,
		State:     StateRunning,
		CreatedAt: time.Unix(now, 0),
		UpdatedAt: time.Unix(now, 0),
	}, nil
}

const experimentColumns = `id, name, metric, variants, state, winner, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperiment(row rowScanner) (*Experiment, error) {
	var exp Experiment
	var variantsJSON string
	var winner sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(&exp.ID, &exp.Name, &exp.Metric, &variantsJSON, &exp.State, &winner, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(variantsJSON), &exp.Variants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}

	exp.Winner = winner.String
	exp.CreatedAt = time.Unix(createdAt, 0)
	exp.UpdatedAt = time.Unix(updatedAt, 0)
	return &exp, nil
}

func (s *SQLiteStore) GetExperiment(ctx context.Context, name string) (*Experiment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE name = ?`, name)

	exp, err := scanExperiment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}
	return exp, nil
}

func (s *SQLiteStore) ListExperiments(ctx context.Context) ([]*Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+experimentColumns+` FROM experiments ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var experiments []*Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		experiments = append(experiments, exp)
	}

	return experiments, rows.Err()
}

// Conclude marks an experiment completed with the given winner.
func (s *SQLiteStore) Conclude(ctx context.Context, name, winner string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE experiments SET state = ?, winner = ?, updated_at = ? WHERE name = ?`,
		string(StateCompleted), winner, time.Now().Unix(), name,
	)
	if err != nil {
		return fmt.Errorf("failed to conclude experiment: %w", err)
	}
	return requireRow(result)
}

func (s *SQLiteStore) DeleteExperiment(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// First delete dependent rows
	for _, table := range []string{"variant_counts", "decisions"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE experiment_name = ?`, name); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM experiments WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	return tx.Commit()
}

// SetCounts overwrites the totals for one variant.
func (s *SQLiteStore) SetCounts(ctx context.Context, name string, variant, traffic, successes int) error {
	return s.upsertCounts(ctx, name, variant, traffic, successes,
		`ON CONFLICT(experiment_name, variant) DO UPDATE SET traffic = excluded.traffic, successes = excluded.successes`)
}

// AddCounts increments the totals for one variant.
func (s *SQLiteStore) AddCounts(ctx context.Context, name string, variant, traffic, successes int) error {
	return s.upsertCounts(ctx, name, variant, traffic, successes,
		`ON CONFLICT(experiment_name, variant) DO UPDATE SET traffic = traffic + excluded.traffic, successes = successes + excluded.successes`)
}

func (s *SQLiteStore) upsertCounts(ctx context.Context, name string, variant, traffic, successes int, onConflict string) error {
	exp, err := s.GetExperiment(ctx, name)
	if err != nil {
		return err
	}
	if variant < 0 || variant >= len(exp.Variants) {
		return fmt.Errorf("%w: %d (experiment has %d variants)", ErrInvalidVariant, variant, len(exp.Variants))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO variant_counts (experiment_name, variant, traffic, successes)
		 VALUES (?, ?, ?, ?) `+onConflict,
		name, variant, traffic, successes,
	)
	if err != nil {
		return fmt.Errorf("failed to record counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE experiments SET updated_at = ? WHERE name = ?`, time.Now().Unix(), name)
	if err != nil {
		return fmt.Errorf("failed to touch experiment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetVariantCounts(ctx context.Context, name string) ([]VariantCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT variant, traffic, successes FROM variant_counts
		 WHERE experiment_name = ? ORDER BY variant`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant counts: %w", err)
	}
	defer rows.Close()

	var counts []VariantCounts
	for rows.Next() {
		var c VariantCounts
		if err := rows.Scan(&c.Variant, &c.Traffic, &c.Successes); err != nil {
			return nil, fmt.Errorf("failed to scan counts: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// SaveDecision stores a decision, assigning an id and timestamp when missing.
func (s *SQLiteStore) SaveDecision(ctx context.Context, rec *DecisionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, experiment_name, test_name, p_value, significant, winner, leader, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Experiment, rec.TestName, rec.PValue, rec.Significant,
		nullableString(rec.Winner), nullableString(rec.Leader), string(rec.Result), rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, name string) ([]*DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, experiment_name, test_name, p_value, significant, winner, leader, result, created_at
		 FROM decisions WHERE experiment_name = ? ORDER BY created_at DESC, rowid DESC`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var records []*DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var winner, leader sql.NullString
		var result string
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Experiment, &rec.TestName, &rec.PValue, &rec.Significant,
			&winner, &leader, &result, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		rec.Winner = winner.String
		rec.Leader = leader.String
		rec.Result = []byte(result)
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, &rec)
	}

	return records, rows.Err()
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

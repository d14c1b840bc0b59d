// Package history persists training runs, per-epoch summaries and
// evaluation results in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"idc-qnn/internal/trainer"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	status TEXT NOT NULL,
	dim INTEGER NOT NULL,
	seed INTEGER NOT NULL,
	batch_size INTEGER NOT NULL,
	epochs INTEGER NOT NULL,
	learning_rate REAL NOT NULL,
	train_examples INTEGER NOT NULL,
	test_examples INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS epochs (
	run_id TEXT NOT NULL REFERENCES runs(id),
	epoch INTEGER NOT NULL,
	loss REAL NOT NULL,
	accuracy REAL NOT NULL,
	val_loss REAL NOT NULL,
	val_accuracy REAL NOT NULL,
	duration_ms INTEGER NOT NULL,
	circuits_per_sec REAL NOT NULL,
	PRIMARY KEY (run_id, epoch)
);

CREATE TABLE IF NOT EXISTS evaluations (
	run_id TEXT NOT NULL REFERENCES runs(id),
	recorded_at TEXT NOT NULL,
	split TEXT NOT NULL,
	loss REAL NOT NULL,
	accuracy REAL NOT NULL,
	examples INTEGER NOT NULL
);
`

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// ErrRunNotFound is returned when a run ID has no row in the runs table.
var ErrRunNotFound = errors.New("history: run not found")

// Store wraps the history database connection.
type Store struct {
	conn *sql.DB
}

// RunMeta describes the configuration a run was started with.
type RunMeta struct {
	Dim           int
	Seed          int64
	BatchSize     int
	Epochs        int
	LearningRate  float64
	TrainExamples int
	TestExamples  int
}

// RunInfo is a row of the runs table.
type RunInfo struct {
	ID         string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Meta       RunMeta
}

// Evaluation is a row of the evaluations table.
type Evaluation struct {
	Split    string
	Loss     float64
	Accuracy float64
	Examples int
}

// Open creates the database file and its directory if needed and applies the
// schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	// One writer at a time.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// StartRun inserts a new run row with a fresh UUID and returns a handle used
// to record its progress.
func (s *Store) StartRun(ctx context.Context, meta RunMeta) (*Run, error) {
	id := uuid.New().String()
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status, dim, seed, batch_size, epochs, learning_rate, train_examples, test_examples)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), StatusRunning,
		meta.Dim, meta.Seed, meta.BatchSize, meta.Epochs, meta.LearningRate,
		meta.TrainExamples, meta.TestExamples,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return &Run{ID: id, store: s}, nil
}

// Run looks up a run by ID.
func (s *Store) Run(ctx context.Context, id string) (RunInfo, error) {
	var (
		info     RunInfo
		started  string
		finished sql.NullString
	)
	err := s.conn.QueryRowContext(ctx, `
		SELECT id, status, started_at, finished_at, dim, seed, batch_size, epochs, learning_rate, train_examples, test_examples
		FROM runs WHERE id = ?`, id,
	).Scan(&info.ID, &info.Status, &started, &finished,
		&info.Meta.Dim, &info.Meta.Seed, &info.Meta.BatchSize, &info.Meta.Epochs,
		&info.Meta.LearningRate, &info.Meta.TrainExamples, &info.Meta.TestExamples)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("failed to query run: %w", err)
	}
	if info.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return RunInfo{}, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if finished.Valid {
		if info.FinishedAt, err = time.Parse(time.RFC3339Nano, finished.String); err != nil {
			return RunInfo{}, fmt.Errorf("failed to parse finished_at: %w", err)
		}
	}
	return info, nil
}

// Epochs returns the epoch summaries recorded for a run, ordered by epoch.
func (s *Store) Epochs(ctx context.Context, runID string) ([]trainer.EpochSummary, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT epoch, loss, accuracy, val_loss, val_accuracy, duration_ms, circuits_per_sec
		FROM epochs WHERE run_id = ? ORDER BY epoch`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query epochs: %w", err)
	}
	defer rows.Close()

	var out []trainer.EpochSummary
	for rows.Next() {
		var (
			e  trainer.EpochSummary
			ms int64
		)
		if err := rows.Scan(&e.Epoch, &e.Loss, &e.Accuracy, &e.ValLoss, &e.ValAccuracy, &ms, &e.CircuitsPerSec); err != nil {
			return nil, fmt.Errorf("failed to scan epoch: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Evaluations returns the evaluation rows recorded for a run in insertion
// order.
func (s *Store) Evaluations(ctx context.Context, runID string) ([]Evaluation, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT split, loss, accuracy, examples
		FROM evaluations WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var e Evaluation
		if err := rows.Scan(&e.Split, &e.Loss, &e.Accuracy, &e.Examples); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Run records the progress of a single training run. It implements
// trainer.EpochObserver.
type Run struct {
	ID    string
	store *Store
}

// RecordEpoch stores one epoch summary.
func (r *Run) RecordEpoch(ctx context.Context, e trainer.EpochSummary) error {
	_, err := r.store.conn.ExecContext(ctx, `
		INSERT INTO epochs (run_id, epoch, loss, accuracy, val_loss, val_accuracy, duration_ms, circuits_per_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, e.Epoch, e.Loss, e.Accuracy, e.ValLoss, e.ValAccuracy, e.Duration.Milliseconds(), e.CircuitsPerSec,
	)
	if err != nil {
		return fmt.Errorf("failed to insert epoch %d: %w", e.Epoch, err)
	}
	return nil
}

// RecordEvaluation stores the result of evaluating the run's parameters on
// the named split.
func (r *Run) RecordEvaluation(ctx context.Context, split string, res trainer.Result) error {
	_, err := r.store.conn.ExecContext(ctx, `
		INSERT INTO evaluations (run_id, recorded_at, split, loss, accuracy, examples)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, time.Now().UTC().Format(time.RFC3339Nano), split, res.Loss, res.Accuracy, res.Examples,
	)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}
	return nil
}

// Finish marks the run complete, or failed when runErr is non-nil.
func (r *Run) Finish(ctx context.Context, runErr error) error {
	status := StatusComplete
	if runErr != nil {
		status = StatusFailed
	}
	res, err := r.store.conn.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, r.ID)
	}
	return nil
}

// Attach returns a handle for an existing run, used to add evaluations to a
// run trained earlier.
func (s *Store) Attach(ctx context.Context, id string) (*Run, error) {
	if _, err := s.Run(ctx, id); err != nil {
		return nil, err
	}
	return &Run{ID: id, store: s}, nil
}

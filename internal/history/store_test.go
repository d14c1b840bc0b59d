package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idc-qnn/internal/trainer"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var _ trainer.EpochObserver = (*Run)(nil)

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	meta := RunMeta{Dim: 4, Seed: 2, BatchSize: 32, Epochs: 3, LearningRate: 0.001, TrainExamples: 75, TestExamples: 26}
	run, err := s.StartRun(ctx, meta)
	require.NoError(t, err)
	_, err = uuid.Parse(run.ID)
	require.NoError(t, err)

	info, err := s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, info.Status)
	assert.Equal(t, meta, info.Meta)
	assert.True(t, info.FinishedAt.IsZero())

	require.NoError(t, run.Finish(ctx, nil))
	info, err = s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, info.Status)
	assert.False(t, info.FinishedAt.Before(info.StartedAt))
}

func TestFailedRun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	run, err := s.StartRun(ctx, RunMeta{Dim: 2})
	require.NoError(t, err)
	require.NoError(t, run.Finish(ctx, errors.New("interrupted")))

	info, err := s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, info.Status)
}

func TestEpochsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	run, err := s.StartRun(ctx, RunMeta{Dim: 2})
	require.NoError(t, err)
	other, err := s.StartRun(ctx, RunMeta{Dim: 2})
	require.NoError(t, err)

	want := []trainer.EpochSummary{
		{Epoch: 1, Loss: 0.98, Accuracy: 0.5, ValLoss: 0.97, ValAccuracy: 0.52, Duration: 1500 * time.Millisecond, CircuitsPerSec: 40},
		{Epoch: 2, Loss: 0.91, Accuracy: 0.6, ValLoss: 0.93, ValAccuracy: 0.55, Duration: 1400 * time.Millisecond, CircuitsPerSec: 42},
	}
	// Insert out of order; reads come back sorted by epoch.
	require.NoError(t, run.RecordEpoch(ctx, want[1]))
	require.NoError(t, run.RecordEpoch(ctx, want[0]))
	require.NoError(t, other.RecordEpoch(ctx, trainer.EpochSummary{Epoch: 1}))

	got, err := s.Epochs(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Duplicate epochs violate the primary key.
	assert.Error(t, run.RecordEpoch(ctx, want[0]))
}

func TestEvaluations(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	run, err := s.StartRun(ctx, RunMeta{Dim: 2})
	require.NoError(t, err)

	require.NoError(t, run.RecordEvaluation(ctx, "test", trainer.Result{Loss: 0.9, Accuracy: 0.6, Examples: 26}))
	attached, err := s.Attach(ctx, run.ID)
	require.NoError(t, err)
	require.NoError(t, attached.RecordEvaluation(ctx, "train", trainer.Result{Loss: 0.8, Accuracy: 0.7, Examples: 75}))

	got, err := s.Evaluations(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []Evaluation{
		{Split: "test", Loss: 0.9, Accuracy: 0.6, Examples: 26},
		{Split: "train", Loss: 0.8, Accuracy: 0.7, Examples: 75},
	}, got)
}

func TestUnknownRun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.Run(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = s.Attach(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	// Foreign keys are enforced.
	ghost := &Run{ID: "missing", store: s}
	assert.Error(t, ghost.RecordEpoch(ctx, trainer.EpochSummary{Epoch: 1}))
	assert.ErrorIs(t, ghost.Finish(ctx, nil), ErrRunNotFound)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	run, err := s.StartRun(ctx, RunMeta{Dim: 3})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	info, err := s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Meta.Dim)
}

package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idc-qnn/internal/config"
	"idc-qnn/internal/history"
	"idc-qnn/internal/model"
)

func writePNG(t *testing.T, path string, gray uint8) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewGray(image.Rect(0, 0, 6, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			img.SetGray(x, y, color.Gray{Y: gray})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// testConfig lays out a class tree of dark benign and bright malignant
// patches and returns a 2x2 configuration pointing at it.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < 8; i++ {
		writePNG(t, filepath.Join(dir, "train", "0", fmt.Sprintf("b%d.png", i)), 30)
		writePNG(t, filepath.Join(dir, "train", "1", fmt.Sprintf("m%d.png", i)), 220)
	}

	cfg := config.Default()
	cfg.Data.DirTrain = filepath.Join(dir, "train")
	cfg.Data.Dim = 2
	cfg.Train.BatchSize = 4
	cfg.Train.Epochs = 2
	cfg.Train.Verbose = 0
	cfg.Train.Workers = 2
	cfg.HistoryDB = filepath.Join(dir, "out", "history.db")
	cfg.ParamsPath = filepath.Join(dir, "out", "params.msgpack")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestTrainThenEvaluate(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	p, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	trained, err := p.Run(ctx, ModeTrain)
	require.NoError(t, err)
	require.Len(t, trained.History.Epochs, 2)
	assert.Equal(t, 2, trained.Workers)
	// 16 images, ceil(0.255 * 16) = 5 held out.
	assert.Equal(t, 5, trained.Test.Examples)

	snap, err := model.LoadParams(cfg.ParamsPath)
	require.NoError(t, err)
	assert.Equal(t, trained.RunID, snap.RunID)
	assert.Equal(t, 2, snap.Dim)
	// 11 training examples in batches of 4 is 3 updates per epoch.
	assert.Equal(t, 6, snap.Steps)
	assert.Len(t, snap.Values, 8)

	store, err := history.Open(cfg.HistoryDB)
	require.NoError(t, err)
	defer store.Close()
	info, err := store.Run(ctx, trained.RunID)
	require.NoError(t, err)
	assert.Equal(t, history.StatusComplete, info.Status)
	assert.Equal(t, 11, info.Meta.TrainExamples)
	epochs, err := store.Epochs(ctx, trained.RunID)
	require.NoError(t, err)
	assert.Len(t, epochs, 2)

	evaluated, err := p.Run(ctx, ModeEvaluate)
	require.NoError(t, err)
	assert.Equal(t, trained.RunID, evaluated.RunID)
	assert.Equal(t, trained.Test, evaluated.Test, "the seed reproduces the held-out split")

	evals, err := store.Evaluations(ctx, trained.RunID)
	require.NoError(t, err)
	assert.Len(t, evals, 2)
}

func TestTrainWithoutOutputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.HistoryDB = ""
	cfg.ParamsPath = ""
	cfg.Train.Epochs = 1
	cfg.Train.NumExamples = 4
	p, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	rep, err := p.Train(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, rep.RunID)
	assert.Len(t, rep.History.Epochs, 1)

	_, err = p.Evaluate(context.Background())
	assert.ErrorIs(t, err, ErrNoParams)
}

func TestEvaluateRejectsDimMismatch(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, model.SaveParams(cfg.ParamsPath, model.Snapshot{Dim: 3}))
	p, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = p.Evaluate(context.Background())
	assert.ErrorContains(t, err, "dim 3")
}

func TestRunRejectsUnknownMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Modes = []string{"train"}
	p, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = p.Run(context.Background(), ModeEvaluate)
	assert.Error(t, err)
	_, err = p.Run(context.Background(), "predict")
	assert.Error(t, err)
}

func TestTrainFailsOnEmptyDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.DirTrain = t.TempDir()
	p, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = p.Train(context.Background())
	assert.Error(t, err)
}

func TestTrainCancelledWritesNoParams(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Train(ctx)
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(cfg.ParamsPath)
	assert.True(t, os.IsNotExist(statErr), "params are only written after a completed run")
}

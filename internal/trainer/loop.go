package trainer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"idc-qnn/internal/circuit"
	"idc-qnn/internal/metrics"
	"idc-qnn/internal/model"
)

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	BatchSize int
	Epochs    int
	// Verbose is 0 for silent, 1 for per-batch and per-epoch lines, 2 for
	// per-epoch lines only.
	Verbose int
	// NumExamples trains on only the first N examples when > 0.
	NumExamples int
	Seed        int64
}

// EpochSummary is the per-epoch report on training and validation data.
type EpochSummary struct {
	Epoch          int
	Loss           float64
	Accuracy       float64
	ValLoss        float64
	ValAccuracy    float64
	Duration       time.Duration
	CircuitsPerSec float64
}

// History collects every epoch summary of a Fit call.
type History struct {
	Epochs []EpochSummary
}

// Last returns the final epoch summary.
func (h History) Last() (EpochSummary, bool) {
	if len(h.Epochs) == 0 {
		return EpochSummary{}, false
	}
	return h.Epochs[len(h.Epochs)-1], true
}

// Result is a loss and accuracy pair from an evaluation pass.
type Result struct {
	Loss     float64
	Accuracy float64
	Examples int
}

// EpochObserver receives each epoch summary as it completes.
type EpochObserver interface {
	RecordEpoch(ctx context.Context, summary EpochSummary) error
}

func (c RunConfig) validate() error {
	if c.BatchSize <= 0 {
		return errors.New("trainer: batch size must be > 0")
	}
	if c.Epochs <= 0 {
		return errors.New("trainer: epochs must be > 0")
	}
	if c.NumExamples < 0 {
		return errors.New("trainer: num examples must be >= 0")
	}
	return nil
}

// Fit trains m with mini-batch updates for cfg.Epochs epochs. Batch order is
// reshuffled every epoch from cfg.Seed. After each epoch the validation set
// is evaluated without updates. Any model error aborts the run.
func Fit(ctx context.Context, m model.Model, train, validation model.Batch, cfg RunConfig, log zerolog.Logger, observers ...EpochObserver) (History, error) {
	if err := cfg.validate(); err != nil {
		return History{}, err
	}
	if err := train.Validate(); err != nil {
		return History{}, fmt.Errorf("training set: %w", err)
	}
	if err := validation.Validate(); err != nil {
		return History{}, fmt.Errorf("validation set: %w", err)
	}
	if cfg.NumExamples > 0 && cfg.NumExamples < len(train.Circuits) {
		train = model.Batch{
			Circuits: train.Circuits[:cfg.NumExamples],
			Targets:  train.Targets[:cfg.NumExamples],
		}
	}

	n := len(train.Circuits)
	rng := rand.New(rand.NewSource(cfg.Seed))
	var history History
	var window metrics.Window

	log.Info().
		Int("examples", n).
		Int("validation", len(validation.Circuits)).
		Int("batch_size", cfg.BatchSize).
		Int("epochs", cfg.Epochs).
		Msg("Training started")

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		startEpoch := time.Now()
		order := rng.Perm(n)
		step := 0
		for lo := 0; lo < n; lo += cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return history, err
			}
			hi := lo + cfg.BatchSize
			if hi > n {
				hi = n
			}
			batch := gather(train, order[lo:hi])

			startCompute := time.Now()
			res, err := m.TrainStep(ctx, batch)
			if err != nil {
				return history, fmt.Errorf("epoch %d step %d: %w", epoch, step+1, err)
			}
			computeTime := time.Since(startCompute)
			step++

			window.Record(len(batch.Circuits), computeTime, res.Loss, res.Accuracy)
			if cfg.Verbose == 1 {
				log.Info().
					Int("epoch", epoch).
					Int("step", step).
					Float64("loss", res.Loss).
					Float64("hinge_accuracy", res.Accuracy).
					Dur("compute", computeTime).
					Msg("Batch")
			}
		}
		snap := window.Snapshot()

		val, err := Evaluate(ctx, m, validation, cfg.BatchSize)
		if err != nil {
			return history, fmt.Errorf("epoch %d validation: %w", epoch, err)
		}
		summary := EpochSummary{
			Epoch:          epoch,
			Loss:           snap.Loss,
			Accuracy:       snap.Accuracy,
			ValLoss:        val.Loss,
			ValAccuracy:    val.Accuracy,
			Duration:       time.Since(startEpoch),
			CircuitsPerSec: snap.CircuitsPerSec,
		}
		history.Epochs = append(history.Epochs, summary)

		if cfg.Verbose > 0 {
			log.Info().
				Int("epoch", epoch).
				Float64("loss", summary.Loss).
				Float64("hinge_accuracy", summary.Accuracy).
				Float64("val_loss", summary.ValLoss).
				Float64("val_hinge_accuracy", summary.ValAccuracy).
				Float64("circuits_per_sec", summary.CircuitsPerSec).
				Dur("elapsed", summary.Duration).
				Msg("Epoch complete")
		}
		for _, obs := range observers {
			if err := obs.RecordEpoch(ctx, summary); err != nil {
				return history, fmt.Errorf("epoch %d observer: %w", epoch, err)
			}
		}
	}
	return history, nil
}

// Evaluate runs a single pass over data in chunks of batchSize and reports
// hinge loss and accuracy. Parameters are not updated.
func Evaluate(ctx context.Context, m model.Model, data model.Batch, batchSize int) (Result, error) {
	if err := data.Validate(); err != nil {
		return Result{}, err
	}
	if batchSize <= 0 {
		batchSize = len(data.Circuits)
	}
	preds := make([]float64, 0, len(data.Circuits))
	for lo := 0; lo < len(data.Circuits); lo += batchSize {
		hi := lo + batchSize
		if hi > len(data.Circuits) {
			hi = len(data.Circuits)
		}
		p, err := m.Predict(ctx, data.Circuits[lo:hi])
		if err != nil {
			return Result{}, err
		}
		if len(p) != hi-lo {
			return Result{}, fmt.Errorf("%w: %d predictions for %d circuits", model.ErrBatchMismatch, len(p), hi-lo)
		}
		preds = append(preds, p...)
	}
	loss, err := metrics.HingeLoss(data.Targets, preds)
	if err != nil {
		return Result{}, err
	}
	acc, err := metrics.HingeAccuracy(data.Targets, preds)
	if err != nil {
		return Result{}, err
	}
	return Result{Loss: loss, Accuracy: acc, Examples: len(preds)}, nil
}

func gather(src model.Batch, idx []int) model.Batch {
	out := model.Batch{
		Circuits: make([]*circuit.Circuit, len(idx)),
		Targets:  make([]float64, len(idx)),
	}
	for i, j := range idx {
		out.Circuits[i] = src.Circuits[j]
		out.Targets[i] = src.Targets[j]
	}
	return out
}

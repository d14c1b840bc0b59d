package model

import (
	"context"
	"errors"
	"fmt"

	"idc-qnn/internal/circuit"
)

// ErrBatchMismatch is returned when a batch has more circuits than targets or
// the other way around.
var ErrBatchMismatch = errors.New("model: circuits and targets differ in length")

// Batch represents a minibatch of data circuits and hinge targets.
type Batch struct {
	Circuits []*circuit.Circuit
	Targets  []float64
}

// Validate rejects empty or misaligned batches.
func (b Batch) Validate() error {
	if len(b.Circuits) != len(b.Targets) {
		return fmt.Errorf("%w: %d circuits, %d targets", ErrBatchMismatch, len(b.Circuits), len(b.Targets))
	}
	if len(b.Circuits) == 0 {
		return errors.New("model: empty batch")
	}
	return nil
}

// StepResult reports the loss and accuracy of a batch, measured with the
// parameters in effect before the update.
type StepResult struct {
	Loss        float64
	Accuracy    float64
	Predictions []float64
}

// Model defines the training functionality required by the trainer.
type Model interface {
	Predict(ctx context.Context, circuits []*circuit.Circuit) ([]float64, error)
	TrainStep(ctx context.Context, batch Batch) (StepResult, error)
}

package metrics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ErrLengthMismatch is returned when targets and predictions differ in length.
var ErrLengthMismatch = errors.New("metrics: targets and predictions differ in length")

func checkLengths(targets, preds []float64) error {
	if len(targets) != len(preds) {
		return fmt.Errorf("%w: %d targets, %d predictions", ErrLengthMismatch, len(targets), len(preds))
	}
	if len(targets) == 0 {
		return errors.New("metrics: empty batch")
	}
	return nil
}

// HingeLoss returns mean(max(0, 1 - y*p)) for +/-1 targets y.
func HingeLoss(targets, preds []float64) (float64, error) {
	if err := checkLengths(targets, preds); err != nil {
		return 0, err
	}
	losses := make([]float64, len(targets))
	for i := range targets {
		if m := 1 - targets[i]*preds[i]; m > 0 {
			losses[i] = m
		}
	}
	return stat.Mean(losses, nil), nil
}

// HingeGrad returns dLoss/dp for each prediction of the mean hinge loss.
func HingeGrad(targets, preds []float64) ([]float64, error) {
	if err := checkLengths(targets, preds); err != nil {
		return nil, err
	}
	n := float64(len(targets))
	grads := make([]float64, len(targets))
	for i := range targets {
		if 1-targets[i]*preds[i] > 0 {
			grads[i] = -targets[i] / n
		}
	}
	return grads, nil
}

// HingeAccuracy counts a prediction as correct when it falls on the same side
// of zero as its target, and returns the mean correctness.
func HingeAccuracy(targets, preds []float64) (float64, error) {
	if err := checkLengths(targets, preds); err != nil {
		return 0, err
	}
	correct := make([]float64, len(targets))
	for i := range targets {
		if (targets[i] > 0) == (preds[i] > 0) {
			correct[i] = 1
		}
	}
	return stat.Mean(correct, nil), nil
}

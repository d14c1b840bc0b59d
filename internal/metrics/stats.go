package metrics

import "time"

// Window accumulates loss, accuracy and timing across training steps.
// Loss and accuracy are weighted by batch size.
type Window struct {
	samples  int
	compute  time.Duration
	steps    int
	loss     float64
	accuracy float64
	lastLoss float64
}

// Record adds a new measurement to the window.
func (w *Window) Record(batchSize int, computeTime time.Duration, loss, accuracy float64) {
	w.samples += batchSize
	w.compute += computeTime
	w.steps++
	w.loss += loss * float64(batchSize)
	w.accuracy += accuracy * float64(batchSize)
	w.lastLoss = loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps, Samples: w.samples}
	if w.compute > 0 {
		snap.CircuitsPerSec = float64(w.samples) / w.compute.Seconds()
	}
	if w.steps > 0 {
		snap.AvgStepMS = (w.compute.Seconds() * 1000) / float64(w.steps)
	}
	if w.samples > 0 {
		snap.Loss = w.loss / float64(w.samples)
		snap.Accuracy = w.accuracy / float64(w.samples)
	}
	snap.LastLoss = w.lastLoss

	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps          int
	Samples        int
	CircuitsPerSec float64
	AvgStepMS      float64
	Loss           float64
	Accuracy       float64
	LastLoss       float64
}

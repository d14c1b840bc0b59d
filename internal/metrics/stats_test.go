package metrics

import (
	"math"
	"testing"
	"time"
)

func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(64, 20*time.Millisecond, 1.2, 0.5)
	w.Record(32, 10*time.Millisecond, 0.6, 1.0)
	snap := w.Snapshot()
	if math.Abs(snap.CircuitsPerSec-3200) > 1 {
		t.Fatalf("unexpected throughput %.2f", snap.CircuitsPerSec)
	}
	if math.Abs(snap.Loss-1.0) > 1e-12 {
		t.Fatalf("expected weighted loss 1.0, got %f", snap.Loss)
	}
	if math.Abs(snap.Accuracy-2.0/3.0) > 1e-12 {
		t.Fatalf("expected weighted accuracy 0.667, got %f", snap.Accuracy)
	}
	if w.samples != 0 || w.steps != 0 {
		t.Fatalf("window was not reset")
	}
	if snap.LastLoss != 0.6 {
		t.Fatalf("expected last loss 0.6, got %.2f", snap.LastLoss)
	}
}

func TestEmptyWindow(t *testing.T) {
	var w Window
	snap := w.Snapshot()
	if snap.Loss != 0 || snap.CircuitsPerSec != 0 || snap.Steps != 0 {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}

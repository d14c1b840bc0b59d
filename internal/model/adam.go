package model

import (
	"fmt"
	"math"
)

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
}

// DefaultAdamConfig returns default Adam optimizer configuration
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
	}
}

// Adam keeps first and second moment estimates per parameter.
type Adam struct {
	cfg      AdamConfig
	momentum []float64
	variance []float64
	step     int
}

// NewAdam returns an optimizer for n parameters.
func NewAdam(cfg AdamConfig, n int) *Adam {
	return &Adam{
		cfg:      cfg,
		momentum: make([]float64, n),
		variance: make([]float64, n),
	}
}

// Steps returns how many updates have been applied.
func (a *Adam) Steps() int { return a.step }

// Step updates params in place from grads.
func (a *Adam) Step(params, grads []float64) error {
	if len(params) != len(a.momentum) || len(grads) != len(a.momentum) {
		return fmt.Errorf("adam: expected %d values, got %d params and %d grads", len(a.momentum), len(params), len(grads))
	}
	a.step++
	t := float64(a.step)
	lr := a.cfg.LearningRate * math.Sqrt(1-math.Pow(a.cfg.Beta2, t)) / (1 - math.Pow(a.cfg.Beta1, t))
	for i, g := range grads {
		a.momentum[i] = a.cfg.Beta1*a.momentum[i] + (1-a.cfg.Beta1)*g
		a.variance[i] = a.cfg.Beta2*a.variance[i] + (1-a.cfg.Beta2)*g*g
		params[i] -= lr * a.momentum[i] / (math.Sqrt(a.variance[i]) + a.cfg.Epsilon)
	}
	return nil
}

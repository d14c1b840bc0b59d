package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"idc-qnn/internal/circuit"
	"idc-qnn/internal/metrics"
	"idc-qnn/internal/simulator"
)

// PQCOptions configures a PQC layer.
type PQCOptions struct {
	Seed    int64
	Workers int
	Adam    AdamConfig
}

// PQC is a parametrized quantum circuit layer. Each example's data circuit is
// followed by the shared template; the readout expectation is the prediction.
type PQC struct {
	sim     *simulator.Simulator
	tpl     *circuit.Template
	symbols []circuit.ParamID
	params  []float64
	opt     *Adam
	workers int
}

// NewPQC initializes every exponent uniformly in [0, 2*pi) from opts.Seed.
func NewPQC(tpl *circuit.Template, opts PQCOptions) (*PQC, error) {
	if tpl == nil {
		return nil, fmt.Errorf("model: nil template")
	}
	sim, err := simulator.New(tpl.Register)
	if err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Adam == (AdamConfig{}) {
		opts.Adam = DefaultAdamConfig()
	}

	symbols := tpl.Symbols()
	rng := rand.New(rand.NewSource(opts.Seed))
	params := make([]float64, len(symbols))
	for i := range params {
		params[i] = rng.Float64() * 2 * math.Pi
	}
	return &PQC{
		sim:     sim,
		tpl:     tpl,
		symbols: symbols,
		params:  params,
		opt:     NewAdam(opts.Adam, len(symbols)),
		workers: opts.Workers,
	}, nil
}

// Template returns the shared readout circuit.
func (m *PQC) Template() *circuit.Template { return m.tpl }

// Values returns a copy of the current trained parameters.
func (m *PQC) Values() circuit.Values {
	values := make(circuit.Values, len(m.symbols))
	for i, id := range m.symbols {
		values[id] = m.params[i]
	}
	return values
}

// SetValues replaces every parameter. Missing symbols are an error.
func (m *PQC) SetValues(values circuit.Values) error {
	next := make([]float64, len(m.symbols))
	for i, id := range m.symbols {
		v, ok := values[id]
		if !ok {
			return fmt.Errorf("%w: %s", circuit.ErrUnknownSymbol, m.tpl.Name(id))
		}
		next[i] = v
	}
	m.params = next
	return nil
}

// Predict returns the readout expectation for each circuit, in input order.
func (m *PQC) Predict(ctx context.Context, circuits []*circuit.Circuit) ([]float64, error) {
	values := m.Values()
	preds := make([]float64, len(circuits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, c := range circuits {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := m.sim.Expectation(c, m.tpl, values)
			if err != nil {
				return fmt.Errorf("example %d: %w", i, err)
			}
			preds[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preds, nil
}

// TrainStep evaluates the batch, then applies one optimizer update against
// the mean hinge loss.
func (m *PQC) TrainStep(ctx context.Context, batch Batch) (StepResult, error) {
	if err := batch.Validate(); err != nil {
		return StepResult{}, err
	}
	values := m.Values()
	preds := make([]float64, len(batch.Circuits))
	jac := make([][]float64, len(batch.Circuits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, c := range batch.Circuits {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, grads, err := m.sim.Gradient(c, m.tpl, values)
			if err != nil {
				return fmt.Errorf("example %d: %w", i, err)
			}
			preds[i] = e
			jac[i] = grads
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return StepResult{}, err
	}

	loss, err := metrics.HingeLoss(batch.Targets, preds)
	if err != nil {
		return StepResult{}, err
	}
	acc, err := metrics.HingeAccuracy(batch.Targets, preds)
	if err != nil {
		return StepResult{}, err
	}
	dLdp, err := metrics.HingeGrad(batch.Targets, preds)
	if err != nil {
		return StepResult{}, err
	}

	grad := make([]float64, len(m.params))
	for i, row := range jac {
		if dLdp[i] == 0 {
			continue
		}
		for j, d := range row {
			grad[j] += dLdp[i] * d
		}
	}
	if err := m.opt.Step(m.params, grad); err != nil {
		return StepResult{}, err
	}
	return StepResult{Loss: loss, Accuracy: acc, Predictions: preds}, nil
}

package simulator

import (
	"errors"
	"fmt"
	"math"

	"idc-qnn/internal/circuit"
)

// maxQubits bounds the dense state at 2^maxQubits amplitudes.
const maxQubits = 20

// ErrRegisterTooLarge is returned for registers the dense state cannot hold.
var ErrRegisterTooLarge = errors.New("simulator: register too large")

// op is a gate with its qubits resolved to register positions.
type op struct {
	kind     circuit.Kind
	a, b     int
	exponent float64
	symbolic bool
	param    circuit.ParamID
}

// theta converts a gate exponent t into the rotation angle of
// exp(-i*theta/2 * P). Global phase is dropped.
func (o op) theta() float64 {
	return math.Pi * o.exponent
}

func (o op) apply(s *State) {
	switch o.kind {
	case circuit.X:
		s.applyX(o.a)
	case circuit.H:
		s.applyH(o.a)
	case circuit.XX:
		s.applyXX(o.a, o.b, o.theta())
	case circuit.ZZ:
		s.applyZZ(o.a, o.b, o.theta())
	}
}

func (o op) applyInverse(s *State) {
	switch o.kind {
	case circuit.X:
		s.applyX(o.a)
	case circuit.H:
		s.applyH(o.a)
	case circuit.XX:
		s.applyXX(o.a, o.b, -o.theta())
	case circuit.ZZ:
		s.applyZZ(o.a, o.b, -o.theta())
	}
}

// Simulator runs circuits over a fixed register.
type Simulator struct {
	reg *circuit.Register
}

// New returns a simulator for reg.
func New(reg *circuit.Register) (*Simulator, error) {
	if reg == nil {
		return nil, errors.New("simulator: nil register")
	}
	if reg.Len() > maxQubits {
		return nil, fmt.Errorf("%w: %d qubits (max %d)", ErrRegisterTooLarge, reg.Len(), maxQubits)
	}
	return &Simulator{reg: reg}, nil
}

// Register returns the layout the simulator executes on.
func (s *Simulator) Register() *circuit.Register { return s.reg }

func (s *Simulator) compile(c *circuit.Circuit, values circuit.Values) ([]op, error) {
	gates := c.Gates()
	ops := make([]op, 0, len(gates))
	for _, g := range gates {
		o := op{kind: g.Kind, symbolic: g.Symbolic, param: g.Param}
		a, err := s.reg.Index(g.Qubits[0])
		if err != nil {
			return nil, err
		}
		o.a = a
		if len(g.Qubits) == 2 {
			b, err := s.reg.Index(g.Qubits[1])
			if err != nil {
				return nil, err
			}
			o.b = b
		}
		o.exponent, err = g.Resolve(values)
		if err != nil {
			return nil, err
		}
		ops = append(ops, o)
	}
	return ops, nil
}

func (s *Simulator) execute(ops []op) *State {
	st := newState(s.reg.Len())
	for _, o := range ops {
		o.apply(st)
	}
	return st
}

// Run executes c from |0...0> with symbols bound from values.
func (s *Simulator) Run(c *circuit.Circuit, values circuit.Values) (*State, error) {
	ops, err := s.compile(c, values)
	if err != nil {
		return nil, err
	}
	return s.execute(ops), nil
}

func (s *Simulator) readoutIndex(tpl *circuit.Template) (int, error) {
	return s.reg.Index(tpl.Readout.Qubit)
}

// Expectation runs data followed by the template and returns the readout
// observable's expectation.
func (s *Simulator) Expectation(data *circuit.Circuit, tpl *circuit.Template, values circuit.Values) (float64, error) {
	q, err := s.readoutIndex(tpl)
	if err != nil {
		return 0, err
	}
	st, err := s.Run(data.Concat(tpl.Circuit), values)
	if err != nil {
		return 0, err
	}
	return st.ExpectationZ(q), nil
}

// Gradient returns the expectation and its derivative with respect to each
// template exponent, ordered as tpl.Symbols(). It uses one forward pass and
// one reverse sweep (adjoint differentiation).
func (s *Simulator) Gradient(data *circuit.Circuit, tpl *circuit.Template, values circuit.Values) (float64, []float64, error) {
	q, err := s.readoutIndex(tpl)
	if err != nil {
		return 0, nil, err
	}
	ops, err := s.compile(data.Concat(tpl.Circuit), values)
	if err != nil {
		return 0, nil, err
	}
	symbols := tpl.Symbols()
	position := make(map[circuit.ParamID]int, len(symbols))
	for i, id := range symbols {
		position[id] = i
	}

	psi := s.execute(ops)
	value := psi.ExpectationZ(q)

	lambda := psi.Clone()
	lambda.applyZ(q)
	scratch := newState(s.reg.Len())
	grads := make([]float64, len(symbols))

	stop := len(ops) - tpl.Circuit.Len()
	for k := len(ops) - 1; k >= stop; k-- {
		o := ops[k]
		if o.symbolic {
			i, ok := position[o.param]
			if !ok {
				return 0, nil, fmt.Errorf("%w: layer %d index %d", circuit.ErrUnknownSymbol, o.param.Layer, o.param.Index)
			}
			copy(scratch.amps, psi.amps)
			scratch.applyPauli(o.kind, o.a, o.b)
			grads[i] += math.Pi * imag(inner(lambda, scratch))
		}
		o.applyInverse(psi)
		o.applyInverse(lambda)
	}
	return value, grads, nil
}

// ParameterShiftGradient differentiates by evaluating each exponent shifted
// by +/-1/2. It costs two runs per symbol and serves as a reference for
// Gradient.
func (s *Simulator) ParameterShiftGradient(data *circuit.Circuit, tpl *circuit.Template, values circuit.Values) (float64, []float64, error) {
	value, err := s.Expectation(data, tpl, values)
	if err != nil {
		return 0, nil, err
	}
	symbols := tpl.Symbols()
	grads := make([]float64, len(symbols))
	shifted := values.Clone()
	for i, id := range symbols {
		base, ok := values[id]
		if !ok {
			return 0, nil, fmt.Errorf("%w: %s", circuit.ErrUnknownSymbol, tpl.Name(id))
		}
		shifted[id] = base + 0.5
		plus, err := s.Expectation(data, tpl, shifted)
		if err != nil {
			return 0, nil, err
		}
		shifted[id] = base - 0.5
		minus, err := s.Expectation(data, tpl, shifted)
		if err != nil {
			return 0, nil, err
		}
		shifted[id] = base
		grads[i] = math.Pi / 2 * (plus - minus)
	}
	return value, grads, nil
}

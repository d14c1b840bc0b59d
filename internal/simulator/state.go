// Package simulator executes readout-model circuits on a dense state vector.
// It supports the gate set the model needs (X, H, XX^t, ZZ^t) and Z
// expectations, plus exact gradients with respect to the symbolic exponents.
package simulator

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"idc-qnn/internal/circuit"
)

// State is a 2^n amplitude vector. Qubit k of the register maps to bit k of
// the basis index.
type State struct {
	amps []complex128
	n    int
}

func newState(n int) *State {
	amps := make([]complex128, 1<<n)
	amps[0] = 1
	return &State{amps: amps, n: n}
}

// NumQubits returns the register size.
func (s *State) NumQubits() int { return s.n }

// Amplitude returns the amplitude of basis state i.
func (s *State) Amplitude(i int) complex128 { return s.amps[i] }

// Clone returns a deep copy.
func (s *State) Clone() *State {
	amps := make([]complex128, len(s.amps))
	copy(amps, s.amps)
	return &State{amps: amps, n: s.n}
}

// Probabilities returns |amplitude|^2 per basis state.
func (s *State) Probabilities() []float64 {
	out := make([]float64, len(s.amps))
	for i, a := range s.amps {
		out[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return out
}

// Norm returns the total probability, 1 for a valid state.
func (s *State) Norm() float64 {
	return floats.Sum(s.Probabilities())
}

// ExpectationZ returns <Z> on qubit q.
func (s *State) ExpectationZ(q int) float64 {
	bit := 1 << q
	e := 0.0
	for i, a := range s.amps {
		p := real(a)*real(a) + imag(a)*imag(a)
		if i&bit == 0 {
			e += p
		} else {
			e -= p
		}
	}
	return e
}

func (s *State) applyX(q int) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
		}
	}
}

func (s *State) applyH(q int) {
	h := complex(1/math.Sqrt2, 0)
	bit := 1 << q
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			a, b := s.amps[i], s.amps[j]
			s.amps[i] = h * (a + b)
			s.amps[j] = h * (a - b)
		}
	}
}

// applyXX applies exp(-i*theta/2 * X_a X_b).
func (s *State) applyXX(a, b int, theta float64) {
	mask := 1<<a | 1<<b
	c := complex(math.Cos(theta/2), 0)
	ms := complex(0, -math.Sin(theta/2))
	for i := range s.amps {
		j := i ^ mask
		if i < j {
			x, y := s.amps[i], s.amps[j]
			s.amps[i] = c*x + ms*y
			s.amps[j] = ms*x + c*y
		}
	}
}

// applyZZ applies exp(-i*theta/2 * Z_a Z_b).
func (s *State) applyZZ(a, b int, theta float64) {
	same := cmplx.Exp(complex(0, -theta/2))
	diff := cmplx.Conj(same)
	for i := range s.amps {
		if (i>>a)&1 == (i>>b)&1 {
			s.amps[i] *= same
		} else {
			s.amps[i] *= diff
		}
	}
}

// applyPauli applies the generator X_a X_b or Z_a Z_b of a two-qubit gate.
func (s *State) applyPauli(kind circuit.Kind, a, b int) {
	switch kind {
	case circuit.XX:
		mask := 1<<a | 1<<b
		for i := range s.amps {
			j := i ^ mask
			if i < j {
				s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
			}
		}
	case circuit.ZZ:
		for i := range s.amps {
			if (i>>a)&1 != (i>>b)&1 {
				s.amps[i] = -s.amps[i]
			}
		}
	}
}

// applyZ multiplies amplitudes with qubit q set by -1.
func (s *State) applyZ(q int) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit != 0 {
			s.amps[i] = -s.amps[i]
		}
	}
}

// inner returns <a|b>.
func inner(a, b *State) complex128 {
	var sum complex128
	for i := range a.amps {
		sum += cmplx.Conj(a.amps[i]) * b.amps[i]
	}
	return sum
}

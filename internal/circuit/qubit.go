// Package circuit models the gate sequences fed to the simulator: grid qubits,
// the small gate set used by the readout model, and the variational template.
package circuit

import (
	"errors"
	"fmt"
)

// ErrQubitOutsideRegister is returned when a gate touches an unknown qubit.
var ErrQubitOutsideRegister = errors.New("circuit: qubit outside register")

// GridQubit is a qubit addressed by 2D integer coordinates.
type GridQubit struct {
	Row int
	Col int
}

// ReadoutQubit sits outside every data grid.
var ReadoutQubit = GridQubit{Row: -1, Col: -1}

func (q GridQubit) String() string {
	return fmt.Sprintf("(%d, %d)", q.Row, q.Col)
}

// Rect returns rows*cols grid qubits in row-major order.
func Rect(rows, cols int) []GridQubit {
	out := make([]GridQubit, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, GridQubit{Row: r, Col: c})
		}
	}
	return out
}

// Register is the fixed qubit layout shared by every circuit of a run:
// the dim x dim data grid in row-major order followed by the readout qubit.
type Register struct {
	dim    int
	qubits []GridQubit
	index  map[GridQubit]int
}

// NewRegister builds the layout for a dim x dim grid.
func NewRegister(dim int) (*Register, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("circuit: dim must be > 0 (got %d)", dim)
	}
	qubits := append(Rect(dim, dim), ReadoutQubit)
	index := make(map[GridQubit]int, len(qubits))
	for i, q := range qubits {
		index[q] = i
	}
	return &Register{dim: dim, qubits: qubits, index: index}, nil
}

// Dim is the side length of the data grid.
func (r *Register) Dim() int { return r.dim }

// Len is the number of qubits including the readout.
func (r *Register) Len() int { return len(r.qubits) }

// DataQubits returns the grid qubits in row-major order.
func (r *Register) DataQubits() []GridQubit {
	return append([]GridQubit(nil), r.qubits[:r.dim*r.dim]...)
}

// Readout returns the readout qubit.
func (r *Register) Readout() GridQubit { return ReadoutQubit }

// Index returns the position of q in the register.
func (r *Register) Index(q GridQubit) (int, error) {
	i, ok := r.index[q]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrQubitOutsideRegister, q)
	}
	return i, nil
}

// Contains reports whether every qubit of c is in the register.
func (r *Register) Contains(c *Circuit) error {
	for _, g := range c.Gates() {
		for _, q := range g.Qubits {
			if _, err := r.Index(q); err != nil {
				return err
			}
		}
	}
	return nil
}

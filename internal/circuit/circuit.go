package circuit

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownSymbol is returned when a symbolic gate has no bound value.
var ErrUnknownSymbol = errors.New("circuit: unresolved parameter")

// Values binds parameter identifiers to exponents.
type Values map[ParamID]float64

// Clone returns a copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// Circuit is an ordered gate sequence.
type Circuit struct {
	gates []Gate
}

// New returns an empty circuit.
func New() *Circuit {
	return &Circuit{}
}

// Append adds gates in order. It rejects gates with the wrong qubit count.
func (c *Circuit) Append(gates ...Gate) error {
	for _, g := range gates {
		if len(g.Qubits) != g.Kind.Arity() {
			return fmt.Errorf("circuit: %s expects %d qubits, got %d", g.Kind, g.Kind.Arity(), len(g.Qubits))
		}
		if len(g.Qubits) == 2 && g.Qubits[0] == g.Qubits[1] {
			return fmt.Errorf("circuit: %s applied twice to %s", g.Kind, g.Qubits[0])
		}
		g.Qubits = append([]GridQubit(nil), g.Qubits...)
		c.gates = append(c.gates, g)
	}
	return nil
}

// Gates returns a copy of the gate sequence.
func (c *Circuit) Gates() []Gate {
	return append([]Gate(nil), c.gates...)
}

// Len returns the number of gates.
func (c *Circuit) Len() int {
	return len(c.gates)
}

// Count returns how many gates of kind k the circuit holds.
func (c *Circuit) Count(k Kind) int {
	n := 0
	for _, g := range c.gates {
		if g.Kind == k {
			n++
		}
	}
	return n
}

// Qubits returns the distinct qubits touched by the circuit, sorted by row
// then column.
func (c *Circuit) Qubits() []GridQubit {
	seen := make(map[GridQubit]struct{})
	for _, g := range c.gates {
		for _, q := range g.Qubits {
			seen[q] = struct{}{}
		}
	}
	out := make([]GridQubit, 0, len(seen))
	for q := range seen {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Concat returns a new circuit running c then other.
func (c *Circuit) Concat(other *Circuit) *Circuit {
	out := &Circuit{gates: make([]Gate, 0, len(c.gates)+len(other.gates))}
	out.gates = append(out.gates, c.gates...)
	out.gates = append(out.gates, other.gates...)
	return out
}

// Batch is a set of data circuits validated against one register, ready for
// batched execution.
type Batch struct {
	Register *Register
	Circuits []*Circuit
}

// NewBatch checks that every circuit fits the register.
func NewBatch(reg *Register, circuits []*Circuit) (Batch, error) {
	for i, c := range circuits {
		if c == nil {
			return Batch{}, fmt.Errorf("circuit: batch entry %d is nil", i)
		}
		if err := reg.Contains(c); err != nil {
			return Batch{}, fmt.Errorf("circuit: batch entry %d: %w", i, err)
		}
	}
	return Batch{Register: reg, Circuits: circuits}, nil
}

// Len returns the number of circuits in the batch.
func (b Batch) Len() int {
	return len(b.Circuits)
}

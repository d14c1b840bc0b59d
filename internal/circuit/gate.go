package circuit

import "fmt"

// Kind identifies a gate type.
type Kind int

const (
	// X is the bit-flip gate.
	X Kind = iota
	// H is the Hadamard gate.
	H
	// XX is the two-qubit XX^t interaction.
	XX
	// ZZ is the two-qubit ZZ^t interaction.
	ZZ
)

func (k Kind) String() string {
	switch k {
	case X:
		return "X"
	case H:
		return "H"
	case XX:
		return "XX"
	case ZZ:
		return "ZZ"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Arity returns how many qubits the gate acts on.
func (k Kind) Arity() int {
	if k == XX || k == ZZ {
		return 2
	}
	return 1
}

// ParamID names a trainable exponent: the layer it belongs to and the data
// qubit index it couples to the readout.
type ParamID struct {
	Layer int
	Index int
}

// Gate is one operation in a circuit. Two-qubit gates carry an exponent t;
// when Symbolic is set the exponent is resolved from Param at run time.
type Gate struct {
	Kind     Kind
	Qubits   []GridQubit
	Exponent float64
	Symbolic bool
	Param    ParamID
}

// NewX returns a bit flip on q.
func NewX(q GridQubit) Gate {
	return Gate{Kind: X, Qubits: []GridQubit{q}, Exponent: 1}
}

// NewH returns a Hadamard on q.
func NewH(q GridQubit) Gate {
	return Gate{Kind: H, Qubits: []GridQubit{q}, Exponent: 1}
}

// NewPow returns a symbolic two-qubit gate kind^param on (a, b).
func NewPow(kind Kind, a, b GridQubit, param ParamID) Gate {
	return Gate{Kind: kind, Qubits: []GridQubit{a, b}, Symbolic: true, Param: param}
}

// Resolve returns the gate exponent, looking symbolic ones up in values.
func (g Gate) Resolve(values Values) (float64, error) {
	if !g.Symbolic {
		return g.Exponent, nil
	}
	v, ok := values[g.Param]
	if !ok {
		return 0, fmt.Errorf("%w: layer %d index %d", ErrUnknownSymbol, g.Param.Layer, g.Param.Index)
	}
	return v, nil
}

func (g Gate) String() string {
	if len(g.Qubits) == 2 {
		return fmt.Sprintf("%s(%s, %s)", g.Kind, g.Qubits[0], g.Qubits[1])
	}
	return fmt.Sprintf("%s(%s)", g.Kind, g.Qubits[0])
}

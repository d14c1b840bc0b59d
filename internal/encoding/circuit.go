package encoding

import (
	"fmt"

	"idc-qnn/internal/circuit"
	"idc-qnn/internal/dataset"
)

// ToCircuit encodes a binary image as a data circuit on a dim x dim grid:
// the qubit at flattened row-major index i receives one X gate iff pixel i
// is 1.
func ToCircuit(im dataset.Image) (*circuit.Circuit, error) {
	if !im.Valid() {
		return nil, fmt.Errorf("encoding: image has %d pixels for dim %d", len(im.Pix), im.Dim)
	}
	qubits := circuit.Rect(im.Dim, im.Dim)
	c := circuit.New()
	for i, v := range im.Pix {
		switch v {
		case 0:
		case 1:
			if err := c.Append(circuit.NewX(qubits[i])); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("encoding: pixel %d is %g, want 0 or 1", i, v)
		}
	}
	return c, nil
}

// EncodeAll encodes each image independently; output i matches input i.
func EncodeAll(images []dataset.Image) ([]*circuit.Circuit, error) {
	out := make([]*circuit.Circuit, len(images))
	for i, im := range images {
		c, err := ToCircuit(im)
		if err != nil {
			return nil, fmt.Errorf("encode image %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// ToBatch packages circuits for batched execution on reg.
func ToBatch(reg *circuit.Register, circuits []*circuit.Circuit) (circuit.Batch, error) {
	return circuit.NewBatch(reg, circuits)
}

package circuit

import "fmt"

// Layer is one entangling pass between every data qubit and the readout.
type Layer struct {
	Prefix string
	Kind   Kind
}

// ReadoutLayers is the layer stack of the readout model: an XX pass followed
// by a ZZ pass.
var ReadoutLayers = []Layer{
	{Prefix: "xx1", Kind: XX},
	{Prefix: "zz1", Kind: ZZ},
}

// Observable is a Z measurement on a single qubit. Its expectation lies in
// [-1, 1].
type Observable struct {
	Qubit GridQubit
}

func (o Observable) String() string {
	return "Z" + o.Qubit.String()
}

// Template is the parametrized readout circuit shared by every example.
type Template struct {
	Register *Register
	Circuit  *Circuit
	Readout  Observable

	layers  []Layer
	symbols []ParamID
	byName  map[string]ParamID
}

type layerBuilder struct {
	data    []GridQubit
	readout GridQubit
}

func (b layerBuilder) addLayer(c *Circuit, layer int, kind Kind) ([]ParamID, error) {
	ids := make([]ParamID, 0, len(b.data))
	for i, q := range b.data {
		id := ParamID{Layer: layer, Index: i}
		if err := c.Append(NewPow(kind, q, b.readout, id)); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// NewReadoutModel builds the template over reg: the readout is flipped then
// put in superposition, the entangling layers couple it to each data qubit,
// and a final Hadamard rotates it back for the Z measurement.
func NewReadoutModel(reg *Register) (*Template, error) {
	if reg == nil {
		return nil, fmt.Errorf("circuit: nil register")
	}
	readout := reg.Readout()
	c := New()
	if err := c.Append(NewX(readout), NewH(readout)); err != nil {
		return nil, err
	}

	b := layerBuilder{data: reg.DataQubits(), readout: readout}
	t := &Template{
		Register: reg,
		Readout:  Observable{Qubit: readout},
		layers:   append([]Layer(nil), ReadoutLayers...),
		byName:   make(map[string]ParamID),
	}
	for li, layer := range t.layers {
		ids, err := b.addLayer(c, li, layer.Kind)
		if err != nil {
			return nil, err
		}
		t.symbols = append(t.symbols, ids...)
	}

	if err := c.Append(NewH(readout)); err != nil {
		return nil, err
	}
	t.Circuit = c

	for _, id := range t.symbols {
		t.byName[t.Name(id)] = id
	}
	return t, nil
}

// Symbols returns the trainable parameters in circuit order.
func (t *Template) Symbols() []ParamID {
	return append([]ParamID(nil), t.symbols...)
}

// Name renders id as "{layer prefix}-{qubit index}".
func (t *Template) Name(id ParamID) string {
	if id.Layer < 0 || id.Layer >= len(t.layers) {
		return fmt.Sprintf("layer%d-%d", id.Layer, id.Index)
	}
	return fmt.Sprintf("%s-%d", t.layers[id.Layer].Prefix, id.Index)
}

// Names returns the rendered names of Symbols.
func (t *Template) Names() []string {
	out := make([]string, len(t.symbols))
	for i, id := range t.symbols {
		out[i] = t.Name(id)
	}
	return out
}

// Lookup resolves a rendered name back to its identifier.
func (t *Template) Lookup(name string) (ParamID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"idc-qnn/internal/circuit"
)

// Snapshot is the on-disk form of a trained parameter set.
type Snapshot struct {
	RunID  string    `msgpack:"run_id"`
	Dim    int       `msgpack:"dim"`
	Steps  int       `msgpack:"steps"`
	Names  []string  `msgpack:"names"`
	Values []float64 `msgpack:"values"`
}

// Snapshot captures the current parameters under their rendered names, with
// the number of optimizer updates that produced them.
func (m *PQC) Snapshot(runID string) Snapshot {
	values := append([]float64(nil), m.params...)
	return Snapshot{
		RunID:  runID,
		Dim:    m.tpl.Register.Dim(),
		Steps:  m.opt.Steps(),
		Names:  m.tpl.Names(),
		Values: values,
	}
}

// Restore loads a snapshot taken from a model with the same grid size.
func (m *PQC) Restore(s Snapshot) error {
	if s.Dim != m.tpl.Register.Dim() {
		return fmt.Errorf("model: snapshot dim %d does not match model dim %d", s.Dim, m.tpl.Register.Dim())
	}
	if len(s.Names) != len(s.Values) {
		return fmt.Errorf("model: snapshot has %d names and %d values", len(s.Names), len(s.Values))
	}
	values := make(circuit.Values, len(s.Names))
	for i, name := range s.Names {
		id, ok := m.tpl.Lookup(name)
		if !ok {
			return fmt.Errorf("model: snapshot parameter %q not in template", name)
		}
		values[id] = s.Values[i]
	}
	return m.SetValues(values)
}

// SaveParams writes s to path as msgpack.
func SaveParams(path string, s Snapshot) error {
	raw, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create params dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write params: %w", err)
	}
	return nil
}

// LoadParams reads a snapshot written by SaveParams.
func LoadParams(path string) (Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read params: %w", err)
	}
	var s Snapshot
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode params: %w", err)
	}
	return s, nil
}

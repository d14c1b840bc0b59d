package circuit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTemplate(t *testing.T, dim int) *Template {
	t.Helper()
	reg, err := NewRegister(dim)
	require.NoError(t, err)
	tpl, err := NewReadoutModel(reg)
	require.NoError(t, err)
	return tpl
}

func TestReadoutModelStructure(t *testing.T) {
	tpl := buildTemplate(t, 4)
	gates := tpl.Circuit.Gates()

	require.Len(t, gates, 2+2*16+1)
	assert.Equal(t, NewX(ReadoutQubit), gates[0])
	assert.Equal(t, NewH(ReadoutQubit), gates[1])
	for i := 0; i < 16; i++ {
		xx := gates[2+i]
		assert.Equal(t, XX, xx.Kind)
		assert.Equal(t, []GridQubit{{i / 4, i % 4}, ReadoutQubit}, xx.Qubits)
		assert.Equal(t, ParamID{Layer: 0, Index: i}, xx.Param)

		zz := gates[18+i]
		assert.Equal(t, ZZ, zz.Kind)
		assert.Equal(t, ParamID{Layer: 1, Index: i}, zz.Param)
	}
	assert.Equal(t, NewH(ReadoutQubit), gates[len(gates)-1])
	assert.Equal(t, Observable{Qubit: ReadoutQubit}, tpl.Readout)
}

func TestReadoutModelParameterNames(t *testing.T) {
	tpl := buildTemplate(t, 2)
	names := tpl.Names()

	want := []string{"xx1-0", "xx1-1", "xx1-2", "xx1-3", "zz1-0", "zz1-1", "zz1-2", "zz1-3"}
	assert.Equal(t, want, names)

	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate parameter %s", n)
		seen[n] = true
	}

	id, ok := tpl.Lookup("zz1-2")
	require.True(t, ok)
	assert.Equal(t, ParamID{Layer: 1, Index: 2}, id)
	_, ok = tpl.Lookup("zz1-9")
	assert.False(t, ok)
}

func TestReadoutModelInvariantAcrossBuilds(t *testing.T) {
	for _, dim := range []int{1, 2, 3, 4} {
		t.Run(fmt.Sprintf("dim%d", dim), func(t *testing.T) {
			a := buildTemplate(t, dim)
			b := buildTemplate(t, dim)

			assert.Equal(t, a.Circuit.Qubits(), b.Circuit.Qubits())
			assert.Equal(t, a.Names(), b.Names())
			assert.Len(t, a.Symbols(), 2*dim*dim)

			ga, gb := a.Circuit.Gates(), b.Circuit.Gates()
			require.Equal(t, len(ga), len(gb))
			for i := range ga {
				assert.Equal(t, ga[i].Kind, gb[i].Kind)
			}
		})
	}
}

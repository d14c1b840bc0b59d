package simulator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idc-qnn/internal/circuit"
)

func setup(t *testing.T, dim int) (*Simulator, *circuit.Template) {
	t.Helper()
	reg, err := circuit.NewRegister(dim)
	require.NoError(t, err)
	tpl, err := circuit.NewReadoutModel(reg)
	require.NoError(t, err)
	sim, err := New(reg)
	require.NoError(t, err)
	return sim, tpl
}

func constant(tpl *circuit.Template, v float64) circuit.Values {
	values := circuit.Values{}
	for _, id := range tpl.Symbols() {
		values[id] = v
	}
	return values
}

func randomValues(tpl *circuit.Template, seed int64) circuit.Values {
	rng := rand.New(rand.NewSource(seed))
	values := circuit.Values{}
	for _, id := range tpl.Symbols() {
		values[id] = rng.Float64()*2 - 1
	}
	return values
}

func dataCircuit(t *testing.T, bits ...circuit.GridQubit) *circuit.Circuit {
	t.Helper()
	c := circuit.New()
	for _, q := range bits {
		require.NoError(t, c.Append(circuit.NewX(q)))
	}
	return c
}

func TestZeroExponentsReadMinusOne(t *testing.T) {
	sim, tpl := setup(t, 2)
	for _, data := range []*circuit.Circuit{
		circuit.New(),
		dataCircuit(t, circuit.GridQubit{Row: 0, Col: 0}, circuit.GridQubit{Row: 1, Col: 1}),
	} {
		e, err := sim.Expectation(data, tpl, constant(tpl, 0))
		require.NoError(t, err)
		assert.InDelta(t, -1.0, e, 1e-12)
	}
}

func TestZZLayerAnalytic(t *testing.T) {
	sim, tpl := setup(t, 1)
	for _, exp := range []float64{0, 0.25, 0.5, 1, -0.3} {
		values := circuit.Values{
			{Layer: 0, Index: 0}: 0,
			{Layer: 1, Index: 0}: exp,
		}
		for _, data := range []*circuit.Circuit{circuit.New(), dataCircuit(t, circuit.GridQubit{})} {
			e, err := sim.Expectation(data, tpl, values)
			require.NoError(t, err)
			assert.InDelta(t, -math.Cos(math.Pi*exp), e, 1e-12)
		}
	}
}

func TestRunPreservesNorm(t *testing.T) {
	sim, tpl := setup(t, 2)
	data := dataCircuit(t, circuit.GridQubit{Row: 0, Col: 1})

	st, err := sim.Run(data.Concat(tpl.Circuit), randomValues(tpl, 3))
	require.NoError(t, err)

	assert.Equal(t, 5, st.NumQubits())
	assert.InDelta(t, 1.0, st.Norm(), 1e-12)
}

func TestHadamardOnReadout(t *testing.T) {
	sim, _ := setup(t, 1)
	c := circuit.New()
	require.NoError(t, c.Append(circuit.NewH(circuit.ReadoutQubit)))

	st, err := sim.Run(c, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, st.ExpectationZ(1), 1e-12)
	assert.InDelta(t, 1/math.Sqrt2, real(st.Amplitude(0)), 1e-12)
	assert.InDelta(t, 1/math.Sqrt2, real(st.Amplitude(2)), 1e-12)
}

func TestAdjointMatchesParameterShift(t *testing.T) {
	sim, tpl := setup(t, 2)
	datas := []*circuit.Circuit{
		circuit.New(),
		dataCircuit(t, circuit.GridQubit{Row: 0, Col: 0}),
		dataCircuit(t, circuit.GridQubit{Row: 0, Col: 1}, circuit.GridQubit{Row: 1, Col: 0}, circuit.GridQubit{Row: 1, Col: 1}),
	}
	for seed := int64(1); seed <= 3; seed++ {
		values := randomValues(tpl, seed)
		for _, data := range datas {
			v1, g1, err := sim.Gradient(data, tpl, values)
			require.NoError(t, err)
			v2, g2, err := sim.ParameterShiftGradient(data, tpl, values)
			require.NoError(t, err)

			assert.InDelta(t, v2, v1, 1e-10)
			require.Len(t, g1, len(tpl.Symbols()))
			assert.InDeltaSlice(t, g2, g1, 1e-9)
		}
	}
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	sim, tpl := setup(t, 1)
	data := dataCircuit(t, circuit.GridQubit{})
	values := randomValues(tpl, 8)

	_, grads, err := sim.Gradient(data, tpl, values)
	require.NoError(t, err)

	const h = 1e-6
	for i, id := range tpl.Symbols() {
		shifted := values.Clone()
		shifted[id] += h
		up, err := sim.Expectation(data, tpl, shifted)
		require.NoError(t, err)
		shifted[id] -= 2 * h
		down, err := sim.Expectation(data, tpl, shifted)
		require.NoError(t, err)
		assert.InDelta(t, (up-down)/(2*h), grads[i], 1e-6, "symbol %s", tpl.Name(id))
	}
}

func TestMissingSymbol(t *testing.T) {
	sim, tpl := setup(t, 1)
	_, err := sim.Expectation(circuit.New(), tpl, circuit.Values{})
	assert.ErrorIs(t, err, circuit.ErrUnknownSymbol)
	_, _, err = sim.Gradient(circuit.New(), tpl, circuit.Values{})
	assert.ErrorIs(t, err, circuit.ErrUnknownSymbol)
}

func TestForeignQubit(t *testing.T) {
	sim, tpl := setup(t, 1)
	data := dataCircuit(t, circuit.GridQubit{Row: 3, Col: 3})
	_, err := sim.Expectation(data, tpl, constant(tpl, 0))
	assert.ErrorIs(t, err, circuit.ErrQubitOutsideRegister)
}

func TestRegisterTooLarge(t *testing.T) {
	reg, err := circuit.NewRegister(5)
	require.NoError(t, err)
	_, err = New(reg)
	assert.ErrorIs(t, err, ErrRegisterTooLarge)
}

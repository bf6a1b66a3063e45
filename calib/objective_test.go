package calib

import (
	"math"
	"testing"
	"time"

	"github.com/banachtech/capvol/curve"
	"github.com/banachtech/capvol/daycount"
	"github.com/banachtech/capvol/formula"
	"github.com/banachtech/capvol/interp"
	"github.com/banachtech/capvol/vol"
	"github.com/stretchr/testify/require"
)

func TestBuildObjectiveOrderAndNaNSkip(t *testing.T) {
	raw, err := NewRawOptionData(
		[]float64{1.0, 2.0},
		[]float64{0.01, 0.02},
		[][]float64{
			{0.2, math.NaN()},
			{0.19, 0.18},
		},
		vol.BlackVolatility,
	)
	require.NoError(t, err)

	obj, err := BuildObjective(raw, curve.Flat(0.02), 0.25)
	require.NoError(t, err)
	require.Len(t, obj.Instruments, 3)

	// Grid iteration order: expiry ascending, then strike ascending.
	require.Equal(t, []float64{0.2, 0.19, 0.18}, obj.Targets())
	require.Equal(t, 1.0, obj.Instruments[0].Expiry)
	require.Equal(t, 0.01, obj.Instruments[0].Strike)
	require.Equal(t, 2.0, obj.Instruments[1].Expiry)
	require.Equal(t, 0.01, obj.Instruments[1].Strike)
	require.Equal(t, 0.02, obj.Instruments[2].Strike)
}

func TestBuildObjectiveFlatGridUsesForwardStrike(t *testing.T) {
	raw, err := NewRawOptionData([]float64{1.0, 3.0}, nil, [][]float64{{0.2}, {0.18}}, vol.BlackVolatility)
	require.NoError(t, err)

	provider := curve.Flat(0.03)
	obj, err := BuildObjective(raw, provider, 0.25)
	require.NoError(t, err)
	require.Len(t, obj.Instruments, 2)
	for _, inst := range obj.Instruments {
		fwd := provider.Forward(inst.Expiry, inst.Expiry+0.25)
		require.Equal(t, fwd, inst.Strike)
		require.Equal(t, fwd, inst.Forward)
	}
}

func TestBuildObjectiveRejectsEmptyAndNil(t *testing.T) {
	raw, err := NewRawOptionData([]float64{1.0}, nil, [][]float64{{math.NaN()}}, vol.BlackVolatility)
	require.NoError(t, err)

	_, err = BuildObjective(raw, curve.Flat(0.02), 0.25)
	require.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = BuildObjective(raw, nil, 0.25)
	require.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestObjectiveWeightsFromErrors(t *testing.T) {
	raw, err := NewRawOptionData([]float64{1.0}, []float64{0.01, 0.02}, [][]float64{{0.2, 0.21}}, vol.BlackVolatility)
	require.NoError(t, err)
	raw, err = raw.WithErrors([][]float64{{0.002, 0.01}})
	require.NoError(t, err)

	obj, err := BuildObjective(raw, curve.Flat(0.02), 0.25)
	require.NoError(t, err)
	require.InDelta(t, 500.0, obj.Weights()[0], 1e-9)
	require.InDelta(t, 100.0, obj.Weights()[1], 1e-9)
}

func TestObjectiveResidualsBlackQuotes(t *testing.T) {
	raw, err := NewRawOptionData([]float64{1.0, 3.0}, nil, [][]float64{{0.2}, {0.18}}, vol.BlackVolatility)
	require.NoError(t, err)
	obj, err := BuildObjective(raw, curve.Flat(0.02), 0.25)
	require.NoError(t, err)

	c, err := interp.NewCurve(interp.Linear, []float64{1.0, 3.0}, []float64{0.21, 0.17}, interp.FlatExtrapolation, interp.FlatExtrapolation)
	require.NoError(t, err)
	valuation := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m, err := vol.NewFlatCurve("usd-capvol", valuation, daycount.Act365F, vol.BlackVolatility, c)
	require.NoError(t, err)

	out := make([]float64, len(obj.Instruments))
	require.NoError(t, obj.Residuals(m, out))
	require.InDelta(t, 0.01, out[0], 1e-12)
	require.InDelta(t, -0.01, out[1], 1e-12)
}

func TestObjectiveResidualsNormalQuotes(t *testing.T) {
	raw, err := NewRawOptionData([]float64{1.0}, nil, [][]float64{{0.0055}}, vol.NormalVolatility)
	require.NoError(t, err)
	obj, err := BuildObjective(raw, curve.Flat(0.02), 0.25)
	require.NoError(t, err)

	// A Black model is compared against normal quotes through the price.
	c, err := interp.NewCurve(interp.Linear, []float64{1.0}, []float64{0.25}, interp.FlatExtrapolation, interp.FlatExtrapolation)
	require.NoError(t, err)
	valuation := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m, err := vol.NewFlatCurve("usd-capvol", valuation, daycount.Act365F, vol.BlackVolatility, c)
	require.NoError(t, err)

	out := make([]float64, 1)
	require.NoError(t, obj.Residuals(m, out))

	inst := obj.Instruments[0]
	want, err := formula.NormalVolFromBlack(inst.Forward, inst.Strike, inst.Expiry, 0.25)
	require.NoError(t, err)
	require.InDelta(t, want-0.0055, out[0], 1e-12)
}

package calib

import (
	"math"
	"testing"

	"github.com/banachtech/capvol/vol"
	"github.com/stretchr/testify/require"
)

func TestNewRawOptionDataValidation(t *testing.T) {
	tests := []struct {
		name      string
		expiries  []float64
		strikes   []float64
		values    [][]float64
		valueType vol.ValueType
		wantErr   bool
	}{
		{
			name:      "valid grid",
			expiries:  []float64{1.0, 2.0},
			strikes:   []float64{0.01, 0.02},
			values:    [][]float64{{0.2, 0.21}, {0.19, 0.2}},
			valueType: vol.BlackVolatility,
		},
		{
			name:      "flat grid without strikes",
			expiries:  []float64{1.0, 2.0},
			strikes:   nil,
			values:    [][]float64{{0.2}, {0.19}},
			valueType: vol.NormalVolatility,
		},
		{
			name:      "no expiries",
			expiries:  nil,
			values:    nil,
			valueType: vol.BlackVolatility,
			wantErr:   true,
		},
		{
			name:      "unsorted expiries",
			expiries:  []float64{2.0, 1.0},
			strikes:   []float64{0.01},
			values:    [][]float64{{0.2}, {0.19}},
			valueType: vol.BlackVolatility,
			wantErr:   true,
		},
		{
			name:      "duplicate strikes",
			expiries:  []float64{1.0},
			strikes:   []float64{0.01, 0.01},
			values:    [][]float64{{0.2, 0.2}},
			valueType: vol.BlackVolatility,
			wantErr:   true,
		},
		{
			name:      "ragged rows",
			expiries:  []float64{1.0, 2.0},
			strikes:   []float64{0.01, 0.02},
			values:    [][]float64{{0.2, 0.21}, {0.19}},
			valueType: vol.BlackVolatility,
			wantErr:   true,
		},
		{
			name:      "unknown value type",
			expiries:  []float64{1.0},
			strikes:   []float64{0.01},
			values:    [][]float64{{0.2}},
			valueType: vol.ValueType("Price"),
			wantErr:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRawOptionData(tc.expiries, tc.strikes, tc.values, tc.valueType)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidDefinition)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRawOptionDataQuoteCountSkipsNaN(t *testing.T) {
	raw, err := NewRawOptionData(
		[]float64{1.0, 2.0},
		[]float64{0.01, 0.02, 0.03},
		[][]float64{
			{0.2, math.NaN(), 0.22},
			{math.NaN(), 0.19, 0.2},
		},
		vol.BlackVolatility,
	)
	require.NoError(t, err)
	require.Equal(t, 4, raw.QuoteCount())
	require.True(t, math.IsNaN(raw.Value(0, 1)))
	require.Equal(t, 0.22, raw.Value(0, 2))
}

func TestRawOptionDataWeights(t *testing.T) {
	raw, err := NewRawOptionData(
		[]float64{1.0},
		[]float64{0.01, 0.02},
		[][]float64{{0.2, 0.21}},
		vol.BlackVolatility,
	)
	require.NoError(t, err)
	require.Equal(t, 1.0, raw.Weight(0, 0))

	weighted, err := raw.WithErrors([][]float64{{0.001, 0.004}})
	require.NoError(t, err)
	require.InDelta(t, 1000.0, weighted.Weight(0, 0), 1e-12)
	require.InDelta(t, 250.0, weighted.Weight(0, 1), 1e-12)

	// The original stays unweighted.
	require.Equal(t, 1.0, raw.Weight(0, 1))

	_, err = raw.WithErrors([][]float64{{0.001, -0.004}})
	require.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = raw.WithErrors([][]float64{{0.001}})
	require.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestRawOptionDataAccessorsCopy(t *testing.T) {
	expiries := []float64{1.0, 2.0}
	raw, err := NewRawOptionData(expiries, nil, [][]float64{{0.2}, {0.19}}, vol.BlackVolatility)
	require.NoError(t, err)

	got := raw.Expiries()
	got[0] = 99.0
	require.Equal(t, []float64{1.0, 2.0}, raw.Expiries())

	expiries[1] = 99.0
	require.Equal(t, []float64{1.0, 2.0}, raw.Expiries())
}

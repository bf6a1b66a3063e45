package calib

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/banachtech/capvol/daycount"
	"github.com/banachtech/capvol/interp"
	"github.com/banachtech/capvol/vol"
	"github.com/stretchr/testify/require"
)

func constantCurve(t *testing.T, v float64) *interp.Curve {
	t.Helper()
	c, err := interp.NewCurve(interp.Linear, []float64{1.0}, []float64{v}, interp.FlatExtrapolation, interp.FlatExtrapolation)
	require.NoError(t, err)
	return c
}

func fixedBetaDefinition(t *testing.T) SABRDefinition {
	t.Helper()
	return SABRDefinition{
		Name:         "usd-sabr",
		Index:        "usd-libor-3m",
		IndexTenor:   0.25,
		DayCount:     daycount.Act365F,
		Interpolator: interp.Linear,
		AlphaKnots:   []float64{1.0, 3.0, 5.0},
		RhoKnots:     []float64{1.0, 3.0, 5.0},
		NuKnots:      []float64{1.0, 3.0, 5.0},
		FixedBeta:    constantCurve(t, 0.5),
		Initial:      SABRInitial{Alpha: 0.05, Beta: 0.5, Rho: -0.2, Nu: 0.5},
	}
}

func TestSABRDefinitionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SABRDefinition)
		wantErr bool
	}{
		{"valid fixed beta", func(*SABRDefinition) {}, false},
		{
			"valid fixed rho",
			func(d *SABRDefinition) {
				d.FixedBeta = nil
				d.FixedRho = constantCurve(t, -0.3)
				d.BetaKnots = []float64{1.0, 5.0}
				d.RhoKnots = nil
			},
			false,
		},
		{
			"both families fixed",
			func(d *SABRDefinition) {
				d.FixedRho = constantCurve(t, -0.3)
				d.RhoKnots = nil
			},
			true,
		},
		{
			"neither family fixed",
			func(d *SABRDefinition) {
				d.FixedBeta = nil
				d.BetaKnots = []float64{1.0}
			},
			true,
		},
		{
			"fixed beta with knots",
			func(d *SABRDefinition) { d.BetaKnots = []float64{1.0} },
			true,
		},
		{
			"free rho without knots",
			func(d *SABRDefinition) { d.RhoKnots = nil },
			true,
		},
		{
			"no alpha knots",
			func(d *SABRDefinition) { d.AlphaKnots = nil },
			true,
		},
		{
			"negative penalty weight",
			func(d *SABRDefinition) { d.Lambda = -0.1 },
			true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def := fixedBetaDefinition(t)
			tc.mutate(&def)
			err := def.Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidDefinition)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSABRDefinitionFreeParameterLayout(t *testing.T) {
	def := fixedBetaDefinition(t)
	require.Equal(t, []vol.ParameterKind{vol.KindAlpha, vol.KindRho, vol.KindNu}, def.FreeFamilies())
	require.Equal(t, 9, def.FreeParameterCount())

	transforms := def.FullTransforms()
	require.Len(t, transforms, 9)
	for i := 0; i < 3; i++ {
		require.IsType(t, PositiveTransform{}, transforms[i])
	}
	for i := 3; i < 6; i++ {
		require.Equal(t, IntervalTransform{Lower: -1.0, Upper: 1.0}, transforms[i])
	}
	for i := 6; i < 9; i++ {
		require.IsType(t, PositiveTransform{}, transforms[i])
	}

	initial := def.FullInitialValues()
	require.Equal(t, []float64{0.05, 0.05, 0.05, -0.2, -0.2, -0.2, 0.5, 0.5, 0.5}, initial)
}

func TestSABRDefinitionFixedRhoLayout(t *testing.T) {
	def := fixedBetaDefinition(t)
	def.FixedBeta = nil
	def.FixedRho = constantCurve(t, -0.3)
	def.BetaKnots = []float64{1.0, 5.0}
	def.RhoKnots = nil
	require.NoError(t, def.Validate())

	require.Equal(t, []vol.ParameterKind{vol.KindAlpha, vol.KindBeta, vol.KindNu}, def.FreeFamilies())
	require.Equal(t, 8, def.FreeParameterCount())

	transforms := def.FullTransforms()
	require.Len(t, transforms, 8)
	require.Equal(t, IntervalTransform{Lower: 0.0, Upper: 1.0}, transforms[3])
	require.Equal(t, IntervalTransform{Lower: 0.0, Upper: 1.0}, transforms[4])
}

func TestCreateMetadata(t *testing.T) {
	def := fixedBetaDefinition(t)
	raw, err := NewRawOptionData([]float64{1.0}, nil, [][]float64{{0.2}}, vol.NormalVolatility)
	require.NoError(t, err)

	meta, err := def.CreateMetadata(raw)
	require.NoError(t, err)
	require.Equal(t, "usd-sabr", meta.Name)
	require.Equal(t, daycount.Act365F, meta.DayCount)
	require.Equal(t, vol.NormalVolatility, meta.ValueType)
}

func TestComputePenaltyMatrix(t *testing.T) {
	_, err := ComputePenaltyMatrix([]float64{1.0, 2.0}, 0.1)
	require.ErrorIs(t, err, ErrInvalidDefinition)

	// Uniform unit spacing gives the classic [1 -2 1] stencil.
	p, err := ComputePenaltyMatrix([]float64{0.0, 1.0, 2.0}, 2.0)
	require.NoError(t, err)
	want := [][]float64{
		{2.0, -4.0, 2.0},
		{-4.0, 8.0, -4.0},
		{2.0, -4.0, 2.0},
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			require.InDelta(t, want[i][j], p.At(i, j), 1e-12, "entry (%d,%d)", i, j)
		}
	}
}

func TestPenaltyMatrixAnnihilatesLinearCurves(t *testing.T) {
	nodes := []float64{0.5, 1.0, 3.0, 7.0}
	p, err := ComputePenaltyMatrix(nodes, 0.07)
	require.NoError(t, err)

	// A linear function has zero curvature, so theta'·P·theta vanishes.
	theta := make([]float64, len(nodes))
	for i, x := range nodes {
		theta[i] = 0.02 + 0.003*x
	}
	q := 0.0
	for i := range theta {
		for j := range theta {
			q += theta[i] * p.At(i, j) * theta[j]
		}
	}
	require.InDelta(t, 0.0, q, 1e-12)
}

func TestPenaltyRowsSkipShortFamilies(t *testing.T) {
	def := fixedBetaDefinition(t)
	def.RhoKnots = []float64{1.0, 5.0}
	require.NoError(t, def.Validate())

	// Alpha and nu each contribute one row; the two-knot rho family none.
	rows := def.penaltyRows()
	require.NotNil(t, rows)
	r, c := rows.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 8, c)
	for j := 3; j < 5; j++ {
		require.Equal(t, 0.0, rows.At(0, j))
		require.Equal(t, 0.0, rows.At(1, j))
	}
}

func TestSABRDefinitionModelAssembly(t *testing.T) {
	def := fixedBetaDefinition(t)
	valuation := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m, err := def.model(valuation, def.FullInitialValues())
	require.NoError(t, err)

	p := m.ParamsAt(3.0)
	require.InDelta(t, 0.05, p.Alpha, 1e-12)
	require.InDelta(t, 0.5, p.Beta, 1e-12)
	require.InDelta(t, -0.2, p.Rho, 1e-12)
	require.InDelta(t, 0.5, p.Nu, 1e-12)
}

func TestDirectFlatDefinition(t *testing.T) {
	def := NewDirectFlatDefinition("usd-capvol", "usd-libor-3m", daycount.Act365F, interp.TimeSquare, 0.07)
	require.NoError(t, def.Validate())

	require.Equal(t, "usd-capvol", def.Name)
	require.Equal(t, "usd-libor-3m", def.Index)
	require.Equal(t, daycount.Act365F, def.DayCount)
	require.Equal(t, interp.TimeSquare, def.Interpolator)
	require.Equal(t, interp.FlatExtrapolation, def.ExtrapolatorLeft)
	require.Equal(t, interp.FlatExtrapolation, def.ExtrapolatorRight)
	require.Equal(t, 0.07, def.Lambda)
	require.Equal(t, 0.25, def.tenor())

	def.Name = ""
	require.ErrorIs(t, def.Validate(), ErrInvalidDefinition)

	def.Name = "usd-capvol"
	def.Lambda = -1.0
	require.ErrorIs(t, def.Validate(), ErrInvalidDefinition)
}

func TestDirectFlatDefinitionJSONRoundTrip(t *testing.T) {
	def := NewDirectFlatDefinition("usd-capvol", "usd-libor-3m", daycount.Act365F, interp.TimeSquare, 0.07)
	def.IndexTenor = 0.5

	raw, err := json.Marshal(def)
	require.NoError(t, err)

	var back DirectFlatDefinition
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, def, back)
}

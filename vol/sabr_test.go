package vol

import (
	"testing"
	"time"

	"github.com/banachtech/capvol/daycount"
	"github.com/banachtech/capvol/interp"
	"github.com/stretchr/testify/require"
)

func mustCurve(t *testing.T, xs, ys []float64) *interp.Curve {
	t.Helper()
	c, err := interp.NewCurve(interp.Linear, xs, ys, interp.FlatExtrapolation, interp.FlatExtrapolation)
	require.NoError(t, err)
	return c
}

func testSABR(t *testing.T) *SABR {
	t.Helper()
	val, _ := time.Parse(Layout, "2023-02-17")
	knots := []float64{1.0, 3.0, 5.0}
	alpha := mustCurve(t, knots, []float64{0.05, 0.045, 0.04})
	beta := mustCurve(t, []float64{1.0}, []float64{0.5})
	rho := mustCurve(t, knots, []float64{-0.1, -0.2, -0.25})
	nu := mustCurve(t, knots, []float64{0.5, 0.45, 0.4})
	m, err := NewSABR("usd-sabr", val, daycount.Act365F, alpha, beta, rho, nu, nil,
		[]ParameterKind{KindAlpha, KindRho, KindNu})
	require.NoError(t, err)
	return m
}

func TestNewSABRValidation(t *testing.T) {
	val, _ := time.Parse(Layout, "2023-02-17")
	alpha := mustCurve(t, []float64{1}, []float64{0.05})

	_, err := NewSABR("x", val, daycount.Act365F, alpha, nil, alpha, alpha, nil, []ParameterKind{KindAlpha})
	require.ErrorIs(t, err, interp.ErrInvalidInputs)

	_, err = NewSABR("x", val, daycount.Act365F, alpha, alpha, alpha, alpha, nil, nil)
	require.ErrorIs(t, err, interp.ErrInvalidInputs)

	_, err = NewSABR("x", val, daycount.Act365F, alpha, alpha, alpha, alpha, nil, []ParameterKind{KindShift})
	require.ErrorIs(t, err, interp.ErrInvalidInputs)

	_, err = NewSABR("x", val, daycount.Act365F, alpha, alpha, alpha, alpha, nil, []ParameterKind{KindAlpha, KindAlpha})
	require.ErrorIs(t, err, interp.ErrInvalidInputs)
}

func TestSABRVolatilityUsesInterpolatedParams(t *testing.T) {
	m := testSABR(t)
	p := m.ParamsAt(2.0)
	require.InDelta(t, 0.0475, p.Alpha, 1e-12)
	require.InDelta(t, 0.5, p.Beta, 1e-12)
	require.InDelta(t, -0.15, p.Rho, 1e-12)
	require.InDelta(t, p.Volatility(0.03, 0.025, 2.0), m.Volatility(2.0, 0.025, 0.03), 1e-15)
}

func TestSABRParameterLayout(t *testing.T) {
	m := testSABR(t)
	require.Equal(t, 9, m.ParameterCount())
	names := m.ParameterNames()
	require.Len(t, names, 9)
	require.Equal(t, "usd-sabr-alpha-1", names[0])
	require.Equal(t, "usd-sabr-rho-1", names[3])
	require.Equal(t, "usd-sabr-nu-5", names[8])
}

func TestSABRSensitivityMatchesFiniteDifference(t *testing.T) {
	const eps = 1e-6
	m := testSABR(t)
	pt := PointSensitivity{Expiry: 2.5, Strike: 0.025, Forward: 0.03, Kind: KindNode, Amount: 1.0}
	grad := m.ParameterSensitivity(pt)
	base := m.FreeValues()
	for j := range grad {
		up := append([]float64(nil), base...)
		dn := append([]float64(nil), base...)
		up[j] += eps
		dn[j] -= eps
		mu, err := m.WithFreeValues(up)
		require.NoError(t, err)
		md, err := m.WithFreeValues(dn)
		require.NoError(t, err)
		fd := (mu.Volatility(pt.Expiry, pt.Strike, pt.Forward) - md.Volatility(pt.Expiry, pt.Strike, pt.Forward)) / (2 * eps)
		require.InDelta(t, fd, grad[j], 1e-6, "free param %d", j)
	}
}

func TestSABRSensitivityByFamily(t *testing.T) {
	m := testSABR(t)
	// A sensitivity tagged to alpha projects onto alpha knots only.
	g := m.ParameterSensitivity(PointSensitivity{Expiry: 2.0, Strike: 0.02, Forward: 0.03, Kind: KindAlpha, Amount: 2.0})
	require.InDelta(t, 1.0, g[0], 1e-12) // halfway between knots 1y and 3y
	require.InDelta(t, 1.0, g[1], 1e-12)
	for _, v := range g[3:] {
		require.Zero(t, v)
	}
	// Beta is fixed here, so a beta-tagged point contributes nothing.
	g = m.ParameterSensitivity(PointSensitivity{Expiry: 2.0, Strike: 0.02, Forward: 0.03, Kind: KindBeta, Amount: 1.0})
	for _, v := range g {
		require.Zero(t, v)
	}
}

func TestSABRSensitivitySuperposition(t *testing.T) {
	m := testSABR(t)
	p1 := PointSensitivity{Expiry: 1.5, Strike: 0.02, Forward: 0.03, Kind: KindNode, Amount: 1.0}
	p2 := PointSensitivity{Expiry: 4.0, Strike: 0.03, Forward: 0.03, Kind: KindAlpha, Amount: -2.0}
	combined := m.ParameterSensitivity(p1, p2)
	g1 := m.ParameterSensitivity(p1)
	g2 := m.ParameterSensitivity(p2)
	for j := range combined {
		require.InDelta(t, g1[j]+g2[j], combined[j], 1e-12)
	}
}

func TestSABRCurveLookup(t *testing.T) {
	m := testSABR(t)
	c, ok := m.Curve("rho")
	require.True(t, ok)
	require.Equal(t, 3, c.Len())

	_, ok = m.Curve("shift")
	require.False(t, ok)
	_, ok = m.Curve("gamma")
	require.False(t, ok)
}

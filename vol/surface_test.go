package vol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/banachtech/capvol/daycount"
	"github.com/banachtech/capvol/interp"
	"github.com/stretchr/testify/require"
)

const Layout = "2006-01-02"

func testSurface(t *testing.T, timeKind interp.Kind) *Surface {
	t.Helper()
	val, _ := time.Parse(Layout, "2023-02-17")
	s, err := NewSurface(SurfaceConfig{
		Name:      "usd-capvol",
		Valuation: val,
		DayCount:  daycount.Act365F,
		ValueType: BlackVolatility,
		Expiries:  []float64{1.0, 3.0, 5.0},
		Strikes:   []float64{0.01, 0.02, 0.03},
		Values: [][]float64{
			{0.20, 0.18, 0.17},
			{0.17, 0.15, 0.14},
			{0.13, 0.115, 0.11},
		},
		TimeInterpolator:   timeKind,
		StrikeInterpolator: interp.Linear,
	})
	require.NoError(t, err)
	return s
}

func TestSurfaceValidation(t *testing.T) {
	val, _ := time.Parse(Layout, "2023-02-17")

	type testCases struct {
		name string
		cfg  SurfaceConfig
	}

	base := SurfaceConfig{
		Name:               "x",
		Valuation:          val,
		DayCount:           daycount.Act365F,
		ValueType:          BlackVolatility,
		Expiries:           []float64{1, 2},
		Strikes:            []float64{0.01},
		Values:             [][]float64{{0.2}, {0.18}},
		TimeInterpolator:   interp.Linear,
		StrikeInterpolator: interp.Linear,
	}

	badType := base
	badType.ValueType = ValueType("Price")
	badRows := base
	badRows.Values = [][]float64{{0.2}}
	badRow := base
	badRow.Values = [][]float64{{0.2, 0.3}, {0.18}}

	for _, test := range []testCases{
		{name: "BAD_VALUE_TYPE", cfg: badType},
		{name: "ROW_COUNT_MISMATCH", cfg: badRows},
		{name: "ROW_LENGTH_MISMATCH", cfg: badRow},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewSurface(test.cfg)
			require.Error(t, err)
		})
	}
}

func TestSurfaceNodeRecovery(t *testing.T) {
	for _, kind := range []interp.Kind{interp.Linear, interp.TimeSquare} {
		s := testSurface(t, kind)
		cfg := s.Config()
		for i, e := range cfg.Expiries {
			for j, k := range cfg.Strikes {
				require.InDelta(t, cfg.Values[i][j], s.Volatility(e, k, 0.02), 1e-10)
			}
		}
	}
}

func TestSurfaceRelativeTime(t *testing.T) {
	s := testSurface(t, interp.Linear)
	val := s.ValuationTime()
	require.Zero(t, s.RelativeTime(val))
	d := 400 * 24 * time.Hour
	require.InDelta(t, s.RelativeTime(val.Add(d)), -s.RelativeTime(val.Add(-d)), 1e-12)
}

func TestSurfaceSensitivityMatchesFiniteDifference(t *testing.T) {
	const eps = 1e-6
	for _, kind := range []interp.Kind{interp.Linear, interp.TimeSquare} {
		s := testSurface(t, kind)
		pt := PointSensitivity{Expiry: 2.2, Strike: 0.017, Forward: 0.02, Kind: KindNode, Amount: 1.7}
		grad := s.ParameterSensitivity(pt)
		base := s.Config()
		flat := make([]float64, 0, 9)
		for _, row := range base.Values {
			flat = append(flat, row...)
		}
		for j := range grad {
			up := append([]float64(nil), flat...)
			dn := append([]float64(nil), flat...)
			up[j] += eps
			dn[j] -= eps
			su, err := s.WithValues(up)
			require.NoError(t, err)
			sd, err := s.WithValues(dn)
			require.NoError(t, err)
			fd := pt.Amount * (su.Volatility(pt.Expiry, pt.Strike, pt.Forward) - sd.Volatility(pt.Expiry, pt.Strike, pt.Forward)) / (2 * eps)
			require.InDelta(t, fd, grad[j], 1e-6, "kind %v node %d", kind, j)
		}
	}
}

func TestSurfaceSensitivitySuperposition(t *testing.T) {
	s := testSurface(t, interp.Linear)
	p1 := PointSensitivity{Expiry: 1.5, Strike: 0.012, Forward: 0.02, Kind: KindNode, Amount: 2.0}
	p2 := PointSensitivity{Expiry: 4.0, Strike: 0.028, Forward: 0.02, Kind: KindNode, Amount: -0.5}
	combined := s.ParameterSensitivity(p1, p2)
	g1 := s.ParameterSensitivity(p1)
	g2 := s.ParameterSensitivity(p2)
	for j := range combined {
		require.InDelta(t, g1[j]+g2[j], combined[j], 1e-12)
	}
}

func TestSurfaceIgnoresSABRKinds(t *testing.T) {
	s := testSurface(t, interp.Linear)
	g := s.ParameterSensitivity(PointSensitivity{Expiry: 1.0, Strike: 0.02, Forward: 0.02, Kind: KindAlpha, Amount: 1.0})
	for _, v := range g {
		require.Zero(t, v)
	}
}

func TestSurfaceCurveLookupAbsent(t *testing.T) {
	s := testSurface(t, interp.Linear)
	c, ok := s.Curve("alpha")
	require.False(t, ok)
	require.Nil(t, c)
}

func TestSurfaceConfigRoundTrip(t *testing.T) {
	s := testSurface(t, interp.TimeSquare)
	cfg := s.Config()

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	var back SurfaceConfig
	require.NoError(t, json.Unmarshal(raw, &back))

	s2, err := NewSurface(back)
	require.NoError(t, err)
	require.Equal(t, cfg, s2.Config())
}

package vol

import (
	"fmt"
	"time"

	"github.com/banachtech/capvol/daycount"
	"github.com/banachtech/capvol/interp"
)

// SurfaceConfig collects the inputs for an interpolated nodal surface.
// Values are laid out as Values[expiry][strike].
type SurfaceConfig struct {
	Name               string              `json:"name"`
	Valuation          time.Time           `json:"valuation"`
	DayCount           daycount.Convention `json:"day_count"`
	ValueType          ValueType           `json:"value_type"`
	Expiries           []float64           `json:"expiries"`
	Strikes            []float64           `json:"strikes"`
	Values             [][]float64         `json:"values"`
	TimeInterpolator   interp.Kind         `json:"time_interpolator"`
	StrikeInterpolator interp.Kind         `json:"strike_interpolator"`
}

// Surface is an immutable expiry-by-strike nodal volatility surface. Node
// ordering (expiry ascending, then strike ascending) defines the free
// parameter index used in sensitivity vectors.
type Surface struct {
	name       string
	valuation  time.Time
	dc         daycount.Convention
	valueType  ValueType
	expiries   []float64
	strikes    []float64
	rows       []*interp.Curve
	timeZero   *interp.Curve
	paramNames []string
}

// NewSurface validates the grid and builds the surface. All rows must carry
// one value per strike; both axes default to flat extrapolation.
func NewSurface(cfg SurfaceConfig) (*Surface, error) {
	switch cfg.ValueType {
	case BlackVolatility, NormalVolatility:
	default:
		return nil, fmt.Errorf("%w: unsupported value type %q", interp.ErrInvalidInputs, cfg.ValueType)
	}
	if len(cfg.Values) != len(cfg.Expiries) {
		return nil, fmt.Errorf("%w: %d value rows for %d expiries", interp.ErrInvalidInputs, len(cfg.Values), len(cfg.Expiries))
	}
	rows := make([]*interp.Curve, len(cfg.Expiries))
	for i, row := range cfg.Values {
		if len(row) != len(cfg.Strikes) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d strikes", interp.ErrInvalidInputs, i, len(row), len(cfg.Strikes))
		}
		c, err := interp.NewCurve(cfg.StrikeInterpolator, cfg.Strikes, row, interp.FlatExtrapolation, interp.FlatExtrapolation)
		if err != nil {
			return nil, fmt.Errorf("strike row %d: %w", i, err)
		}
		rows[i] = c
	}
	timeZero, err := interp.NewCurve(cfg.TimeInterpolator, cfg.Expiries, make([]float64, len(cfg.Expiries)), interp.FlatExtrapolation, interp.FlatExtrapolation)
	if err != nil {
		return nil, fmt.Errorf("expiry axis: %w", err)
	}
	names := make([]string, 0, len(cfg.Expiries)*len(cfg.Strikes))
	for _, e := range cfg.Expiries {
		for _, k := range cfg.Strikes {
			names = append(names, fmt.Sprintf("%s-%g-%g", cfg.Name, e, k))
		}
	}
	return &Surface{
		name:       cfg.Name,
		valuation:  cfg.Valuation,
		dc:         cfg.DayCount,
		valueType:  cfg.ValueType,
		expiries:   append([]float64(nil), cfg.Expiries...),
		strikes:    append([]float64(nil), cfg.Strikes...),
		rows:       rows,
		timeZero:   timeZero,
		paramNames: names,
	}, nil
}

func (s *Surface) Name() string                  { return s.name }
func (s *Surface) ValuationTime() time.Time      { return s.valuation }
func (s *Surface) DayCount() daycount.Convention { return s.dc }
func (s *Surface) ValueType() ValueType          { return s.valueType }

func (s *Surface) RelativeTime(t time.Time) float64 {
	return daycount.RelativeTime(s.valuation, t, s.dc)
}

// Volatility interpolates along strike within each expiry row, then along
// expiry through the row values.
func (s *Surface) Volatility(expiry, strike, _ float64) float64 {
	rowVals := make([]float64, len(s.rows))
	for i, r := range s.rows {
		rowVals[i] = r.Value(strike)
	}
	tc, err := s.timeZero.WithValues(rowVals)
	if err != nil {
		panic(err)
	}
	return tc.Value(expiry)
}

func (s *Surface) ParameterNames() []string {
	return append([]string(nil), s.paramNames...)
}

// ParameterSensitivity chains the expiry-axis node weights through each row's
// strike-axis node weights. Only KindNode points touch a nodal surface;
// SABR-parameter kinds contribute nothing.
func (s *Surface) ParameterSensitivity(pts ...PointSensitivity) []float64 {
	nk := len(s.strikes)
	out := make([]float64, len(s.expiries)*nk)
	for _, pt := range pts {
		if pt.Kind != KindNode {
			continue
		}
		rowVals := make([]float64, len(s.rows))
		for i, r := range s.rows {
			rowVals[i] = r.Value(pt.Strike)
		}
		tc, err := s.timeZero.WithValues(rowVals)
		if err != nil {
			panic(err)
		}
		wt := tc.NodeWeights(pt.Expiry)
		for i, r := range s.rows {
			if wt[i] == 0 {
				continue
			}
			wk := r.NodeWeights(pt.Strike)
			for j := range wk {
				out[i*nk+j] += pt.Amount * wt[i] * wk[j]
			}
		}
	}
	return out
}

// Curve reports no named series; nodal surfaces expose their state through
// the grid, not named parameter curves.
func (s *Surface) Curve(string) (*interp.Curve, bool) { return nil, false }

// Config reconstructs the defining configuration, for persistence and value
// equality round trips.
func (s *Surface) Config() SurfaceConfig {
	values := make([][]float64, len(s.rows))
	for i, r := range s.rows {
		values[i] = r.Ys()
	}
	return SurfaceConfig{
		Name:               s.name,
		Valuation:          s.valuation,
		DayCount:           s.dc,
		ValueType:          s.valueType,
		Expiries:           append([]float64(nil), s.expiries...),
		Strikes:            append([]float64(nil), s.strikes...),
		Values:             values,
		TimeInterpolator:   s.timeZero.Kind(),
		StrikeInterpolator: s.rows[0].Kind(),
	}
}

// WithValues returns a surface with the same grid and new node values, laid
// out row-major like the sensitivity vector. Used when bumping nodes.
func (s *Surface) WithValues(flat []float64) (*Surface, error) {
	nk := len(s.strikes)
	if len(flat) != len(s.expiries)*nk {
		return nil, fmt.Errorf("%w: expected %d node values, got %d", interp.ErrInvalidInputs, len(s.expiries)*nk, len(flat))
	}
	cfg := s.Config()
	for i := range cfg.Values {
		cfg.Values[i] = append([]float64(nil), flat[i*nk:(i+1)*nk]...)
	}
	return NewSurface(cfg)
}

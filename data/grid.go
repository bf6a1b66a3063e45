package data

import (
	"fmt"
	"math"

	"github.com/banachtech/capvol/calib"
	"github.com/banachtech/capvol/curve"
	"github.com/banachtech/capvol/daycount"
	"github.com/banachtech/capvol/interp"
	"github.com/banachtech/capvol/vol"
)

// QuoteGrid is the wire form of a cap quote grid. JSON has no NaN, so
// non-positive entries mark missing observations.
type QuoteGrid struct {
	ValueType string      `json:"value_type"`
	Expiries  []float64   `json:"expiries"`
	Strikes   []float64   `json:"strikes,omitempty"`
	Values    [][]float64 `json:"values"`
	Errors    [][]float64 `json:"errors,omitempty"`
}

// Raw converts the grid into calibration input.
func (g QuoteGrid) Raw() (calib.RawOptionData, error) {
	values := make([][]float64, len(g.Values))
	for i, row := range g.Values {
		values[i] = make([]float64, len(row))
		for j, v := range row {
			if v <= 0 {
				values[i][j] = math.NaN()
			} else {
				values[i][j] = v
			}
		}
	}
	raw, err := calib.NewRawOptionData(g.Expiries, g.Strikes, values, vol.ValueType(g.ValueType))
	if err != nil {
		return calib.RawOptionData{}, err
	}
	if g.Errors != nil {
		raw, err = raw.WithErrors(g.Errors)
		if err != nil {
			return calib.RawOptionData{}, err
		}
	}
	return raw, nil
}

// CurveSpec is the wire form of a discount curve: either a flat continuous
// zero rate or a full zero curve.
type CurveSpec struct {
	FlatRate *float64  `json:"flat_rate,omitempty"`
	Times    []float64 `json:"times,omitempty"`
	Zeros    []float64 `json:"zeros,omitempty"`
}

// Provider builds the discount curve this wire form describes.
func (c CurveSpec) Provider() (curve.Provider, error) {
	if c.FlatRate != nil {
		return curve.Flat(*c.FlatRate), nil
	}
	return curve.NewZeroCurve(c.Times, c.Zeros)
}

// CurveNodes is the wire form of one parameter curve.
type CurveNodes struct {
	Xs []float64 `json:"xs"`
	Ys []float64 `json:"ys"`
}

func (c CurveNodes) curve(kind interp.Kind) (*interp.Curve, error) {
	return interp.NewCurve(kind, c.Xs, c.Ys, interp.FlatExtrapolation, interp.FlatExtrapolation)
}

// SABRSpec is the wire form of a SABR calibration definition.
type SABRSpec struct {
	Name         string      `json:"name"`
	Index        string      `json:"index"`
	IndexTenor   float64     `json:"index_tenor"`
	DayCount     string      `json:"day_count"`
	Interpolator string      `json:"interpolator"`
	AlphaKnots   []float64   `json:"alpha_knots"`
	BetaKnots    []float64   `json:"beta_knots,omitempty"`
	RhoKnots     []float64   `json:"rho_knots,omitempty"`
	NuKnots      []float64   `json:"nu_knots"`
	FixedBeta    *CurveNodes `json:"fixed_beta,omitempty"`
	FixedRho     *CurveNodes `json:"fixed_rho,omitempty"`
	Shift        *CurveNodes `json:"shift,omitempty"`
	InitialAlpha float64     `json:"initial_alpha"`
	InitialBeta  float64     `json:"initial_beta"`
	InitialRho   float64     `json:"initial_rho"`
	InitialNu    float64     `json:"initial_nu"`
	Lambda       float64     `json:"lambda"`
}

// Definition assembles and validates the calibration definition.
func (s SABRSpec) Definition() (calib.SABRDefinition, error) {
	dc, err := parseDayCount(s.DayCount)
	if err != nil {
		return calib.SABRDefinition{}, err
	}
	kind := interp.Kind(s.Interpolator)

	def := calib.SABRDefinition{
		Name:         s.Name,
		Index:        s.Index,
		IndexTenor:   s.IndexTenor,
		DayCount:     dc,
		Interpolator: kind,
		AlphaKnots:   s.AlphaKnots,
		BetaKnots:    s.BetaKnots,
		RhoKnots:     s.RhoKnots,
		NuKnots:      s.NuKnots,
		Initial:      calib.SABRInitial{Alpha: s.InitialAlpha, Beta: s.InitialBeta, Rho: s.InitialRho, Nu: s.InitialNu},
		Lambda:       s.Lambda,
	}
	if s.FixedBeta != nil {
		def.FixedBeta, err = s.FixedBeta.curve(interp.Linear)
		if err != nil {
			return calib.SABRDefinition{}, fmt.Errorf("fixed beta: %w", err)
		}
	}
	if s.FixedRho != nil {
		def.FixedRho, err = s.FixedRho.curve(interp.Linear)
		if err != nil {
			return calib.SABRDefinition{}, fmt.Errorf("fixed rho: %w", err)
		}
	}
	if s.Shift != nil {
		def.Shift, err = s.Shift.curve(interp.Linear)
		if err != nil {
			return calib.SABRDefinition{}, fmt.Errorf("shift: %w", err)
		}
	}
	if err := def.Validate(); err != nil {
		return calib.SABRDefinition{}, err
	}
	return def, nil
}

func parseDayCount(s string) (daycount.Convention, error) {
	switch daycount.Convention(s) {
	case daycount.ActActISDA, daycount.Act365F, daycount.Act360, daycount.Thirty360E:
		return daycount.Convention(s), nil
	case "":
		return daycount.Act365F, nil
	}
	return "", fmt.Errorf("unknown day count convention %q", s)
}

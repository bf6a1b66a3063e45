package calib

import (
	"fmt"
	"math"

	"github.com/banachtech/capvol/curve"
	"github.com/banachtech/capvol/formula"
	"github.com/banachtech/capvol/vol"
)

// Instrument is a synthetic caplet/floorlet cell derived from one quote grid
// point: the expiry and strike it was quoted at, the forward of its index
// period, the quoted volatility target and the calibration weight.
type Instrument struct {
	Expiry    float64
	Strike    float64
	Forward   float64
	Weight    float64
	TargetVol float64
}

// Objective is the calibration target set: instruments in grid iteration
// order (expiry ascending, then strike ascending), which also fixes which
// residuals dominate in rank-deficient cases.
type Objective struct {
	Instruments []Instrument
	ValueType   vol.ValueType
}

// BuildObjective expands a quote grid into calibration instruments, skipping
// missing (NaN) cells. A grid with no strike axis degenerates to one
// at-the-money instrument per expiry at the period forward as the reference
// strike.
func BuildObjective(raw RawOptionData, provider curve.Provider, tenor float64) (*Objective, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil curve provider", ErrInvalidDefinition)
	}
	if tenor <= 0 {
		tenor = 0.25
	}
	obj := &Objective{ValueType: raw.ValueType()}
	strikes := raw.Strikes()
	for i, expiry := range raw.Expiries() {
		fwd := provider.Forward(expiry, expiry+tenor)
		if len(strikes) == 0 {
			v := raw.Value(i, 0)
			if math.IsNaN(v) {
				continue
			}
			obj.Instruments = append(obj.Instruments, Instrument{
				Expiry: expiry, Strike: fwd, Forward: fwd, Weight: raw.Weight(i, 0), TargetVol: v,
			})
			continue
		}
		for j, k := range strikes {
			v := raw.Value(i, j)
			if math.IsNaN(v) {
				continue
			}
			obj.Instruments = append(obj.Instruments, Instrument{
				Expiry: expiry, Strike: k, Forward: fwd, Weight: raw.Weight(i, j), TargetVol: v,
			})
		}
	}
	if len(obj.Instruments) == 0 {
		return nil, fmt.Errorf("%w: no usable quotes in the grid", ErrInvalidDefinition)
	}
	return obj, nil
}

// Targets returns the quoted volatilities in instrument order.
func (o *Objective) Targets() []float64 {
	out := make([]float64, len(o.Instruments))
	for i, inst := range o.Instruments {
		out[i] = inst.TargetVol
	}
	return out
}

// Weights returns the calibration weights in instrument order.
func (o *Objective) Weights() []float64 {
	out := make([]float64, len(o.Instruments))
	for i, inst := range o.Instruments {
		out[i] = inst.Weight
	}
	return out
}

// impliedVol evaluates the model volatility at an instrument in the quote
// convention. SABR produces Black volatilities, so normal quotes need a
// conversion through the Black price.
func (o *Objective) impliedVol(m vol.Model, inst Instrument) (float64, error) {
	v := m.Volatility(inst.Expiry, inst.Strike, inst.Forward)
	if o.ValueType == vol.BlackVolatility {
		return v, nil
	}
	return formula.NormalVolFromBlack(inst.Forward, inst.Strike, inst.Expiry, v)
}

// Residuals fills out with the weighted volatility residuals of the model
// against the targets. out must have one slot per instrument.
func (o *Objective) Residuals(m vol.Model, out []float64) error {
	for i, inst := range o.Instruments {
		v, err := o.impliedVol(m, inst)
		if err != nil {
			return fmt.Errorf("instrument %d (expiry %g strike %g): %w", i, inst.Expiry, inst.Strike, err)
		}
		out[i] = inst.Weight * (v - inst.TargetVol)
	}
	return nil
}

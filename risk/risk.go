// Package risk turns point volatility exposures into sensitivities over the
// free parameters of a calibrated model. The chain is fully analytic; finite
// differencing never enters production paths.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/banachtech/capvol/curve"
	"github.com/banachtech/capvol/formula"
	"github.com/banachtech/capvol/vol"
)

var ErrInvalidRequest = errors.New("invalid sensitivity request")

// Report is a gradient over one model's free parameters, labelled in the
// model's parameter order.
type Report struct {
	Model      string
	Parameters []string
	Values     []float64
}

// Value looks up one entry by parameter name.
func (r Report) Value(name string) (float64, bool) {
	for i, p := range r.Parameters {
		if p == name {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Add merges another report over the same parameter set. Gradients are
// linear, so portfolio sensitivities are sums of position sensitivities.
func (r Report) Add(other Report) (Report, error) {
	if r.Model != other.Model || len(r.Values) != len(other.Values) {
		return Report{}, fmt.Errorf("%w: reports cover different models", ErrInvalidRequest)
	}
	out := Report{Model: r.Model, Parameters: r.Parameters, Values: make([]float64, len(r.Values))}
	for i := range r.Values {
		out.Values[i] = r.Values[i] + other.Values[i]
	}
	return out, nil
}

// Compute maps the given point exposures through the model's analytic
// parameter chain into one labelled gradient.
func Compute(m vol.Model, pts ...vol.PointSensitivity) (Report, error) {
	if m == nil {
		return Report{}, fmt.Errorf("%w: nil model", ErrInvalidRequest)
	}
	for i, pt := range pts {
		if math.IsNaN(pt.Amount) || math.IsInf(pt.Amount, 0) {
			return Report{}, fmt.Errorf("%w: point %d has non-finite amount", ErrInvalidRequest, i)
		}
		if pt.Expiry < 0 {
			return Report{}, fmt.Errorf("%w: point %d has negative expiry", ErrInvalidRequest, i)
		}
	}
	return Report{
		Model:      m.Name(),
		Parameters: m.ParameterNames(),
		Values:     m.ParameterSensitivity(pts...),
	}, nil
}

// CapletVega builds the point exposure of one discounted caplet price to the
// model volatility at its own expiry and strike: df times accrual times the
// quote-convention vega.
func CapletVega(m vol.Model, provider curve.Provider, valueType vol.ValueType, expiry, strike, tenor float64) (vol.PointSensitivity, error) {
	if provider == nil {
		return vol.PointSensitivity{}, fmt.Errorf("%w: nil curve provider", ErrInvalidRequest)
	}
	if tenor <= 0 {
		return vol.PointSensitivity{}, fmt.Errorf("%w: non-positive accrual period", ErrInvalidRequest)
	}
	fwd := provider.Forward(expiry, expiry+tenor)
	v := m.Volatility(expiry, strike, fwd)
	var vega float64
	switch valueType {
	case vol.BlackVolatility:
		vega = formula.BlackVega(fwd, strike, expiry, v)
	case vol.NormalVolatility:
		vega = formula.NormalVega(fwd, strike, expiry, v)
	default:
		return vol.PointSensitivity{}, fmt.Errorf("%w: unsupported value type %q", ErrInvalidRequest, valueType)
	}
	df := provider.DiscountFactor(expiry + tenor)
	return vol.PointSensitivity{
		Expiry:  expiry,
		Strike:  strike,
		Forward: fwd,
		Kind:    vol.KindNode,
		Amount:  df * tenor * vega,
	}, nil
}

// CapVega aggregates CapletVega over every fixing of a cap expiring at
// capEnd, with fixings stepping by the index tenor.
func CapVega(m vol.Model, provider curve.Provider, valueType vol.ValueType, capEnd, strike, tenor float64) ([]vol.PointSensitivity, error) {
	if tenor <= 0 {
		return nil, fmt.Errorf("%w: non-positive accrual period", ErrInvalidRequest)
	}
	var pts []vol.PointSensitivity
	for t := tenor; t+tenor <= capEnd+1e-9; t += tenor {
		pt, err := CapletVega(m, provider, valueType, t, strike, tenor)
		if err != nil {
			return nil, err
		}
		pts = append(pts, pt)
	}
	return pts, nil
}

package vol

import (
	"fmt"
	"time"

	"github.com/banachtech/capvol/daycount"
	"github.com/banachtech/capvol/interp"
)

// FlatCurve is a strike-independent volatility curve over expiry, the shape
// produced by flat cap/floor bootstrap.
type FlatCurve struct {
	name      string
	valuation time.Time
	dc        daycount.Convention
	valueType ValueType
	curve     *interp.Curve
}

func NewFlatCurve(name string, valuation time.Time, dc daycount.Convention, valueType ValueType, c *interp.Curve) (*FlatCurve, error) {
	switch valueType {
	case BlackVolatility, NormalVolatility:
	default:
		return nil, fmt.Errorf("%w: unsupported value type %q", interp.ErrInvalidInputs, valueType)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: nil volatility curve", interp.ErrInvalidInputs)
	}
	return &FlatCurve{name: name, valuation: valuation, dc: dc, valueType: valueType, curve: c}, nil
}

func (f *FlatCurve) Name() string                  { return f.name }
func (f *FlatCurve) ValuationTime() time.Time      { return f.valuation }
func (f *FlatCurve) DayCount() daycount.Convention { return f.dc }
func (f *FlatCurve) ValueType() ValueType          { return f.valueType }

func (f *FlatCurve) RelativeTime(t time.Time) float64 {
	return daycount.RelativeTime(f.valuation, t, f.dc)
}

// Volatility ignores strike and forward; the curve is flat in strike.
func (f *FlatCurve) Volatility(expiry, _, _ float64) float64 {
	return f.curve.Value(expiry)
}

func (f *FlatCurve) ParameterNames() []string {
	xs := f.curve.Xs()
	names := make([]string, len(xs))
	for i, x := range xs {
		names[i] = fmt.Sprintf("%s-%g", f.name, x)
	}
	return names
}

func (f *FlatCurve) ParameterSensitivity(pts ...PointSensitivity) []float64 {
	out := make([]float64, f.curve.Len())
	for _, pt := range pts {
		if pt.Kind != KindNode {
			continue
		}
		w := f.curve.NodeWeights(pt.Expiry)
		for j := range w {
			out[j] += pt.Amount * w[j]
		}
	}
	return out
}

// Curve returns the expiry curve when queried under the model's own name.
func (f *FlatCurve) Curve(name string) (*interp.Curve, bool) {
	if name != f.name {
		return nil, false
	}
	return f.curve, true
}

// WithValues returns a curve model with the same nodes and new values.
func (f *FlatCurve) WithValues(ys []float64) (*FlatCurve, error) {
	c, err := f.curve.WithValues(ys)
	if err != nil {
		return nil, err
	}
	return NewFlatCurve(f.name, f.valuation, f.dc, f.valueType, c)
}

package curve

import (
	"fmt"
	"math"

	"github.com/banachtech/capvol/interp"
)

// Provider supplies discount factors and simple forward rates at year
// fractions from the valuation date. Calibration consumes it as an external
// collaborator; it never builds one.
type Provider interface {
	DiscountFactor(t float64) float64
	Forward(start, end float64) float64
}

// ZeroCurve is a continuously compounded zero rate curve interpolated over
// year fractions. The curve time axis follows the ACT/365F market convention
// of the calling code; the curve itself only sees year fractions.
type ZeroCurve struct {
	zeros *interp.Curve
}

// NewZeroCurve builds a zero curve from node times and continuously
// compounded zero rates, linearly interpolated with flat extrapolation.
func NewZeroCurve(times, zeros []float64) (*ZeroCurve, error) {
	c, err := interp.NewCurve(interp.Linear, times, zeros, interp.FlatExtrapolation, interp.FlatExtrapolation)
	if err != nil {
		return nil, fmt.Errorf("zero curve: %w", err)
	}
	return &ZeroCurve{zeros: c}, nil
}

// Flat returns a zero curve with the same continuously compounded rate at
// every horizon.
func Flat(rate float64) *ZeroCurve {
	c, err := interp.NewCurve(interp.Linear, []float64{1.0}, []float64{rate}, interp.FlatExtrapolation, interp.FlatExtrapolation)
	if err != nil {
		panic(err)
	}
	return &ZeroCurve{zeros: c}
}

func (c *ZeroCurve) DiscountFactor(t float64) float64 {
	if t <= 0 {
		return 1.0
	}
	return math.Exp(-c.zeros.Value(t) * t)
}

// Forward returns the simple forward rate accruing from start to end.
func (c *ZeroCurve) Forward(start, end float64) float64 {
	if end <= start {
		return 0.0
	}
	return (c.DiscountFactor(start)/c.DiscountFactor(end) - 1.0) / (end - start)
}

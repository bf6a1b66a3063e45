package vol

import (
	"time"

	"github.com/banachtech/capvol/daycount"
	"github.com/banachtech/capvol/interp"
)

// ValueType tags what a quoted or stored number means.
type ValueType string

const (
	BlackVolatility  ValueType = "BlackVolatility"
	NormalVolatility ValueType = "NormalVolatility"
)

// ParameterKind identifies which model quantity a point sensitivity is taken
// against.
type ParameterKind string

const (
	KindNode  ParameterKind = "Node"
	KindAlpha ParameterKind = "Alpha"
	KindBeta  ParameterKind = "Beta"
	KindRho   ParameterKind = "Rho"
	KindNu    ParameterKind = "Nu"
	KindShift ParameterKind = "Shift"
)

// PointSensitivity is a unit sensitivity tagged with the evaluation point it
// was computed at. Expiry is a year fraction from the model's valuation
// instant.
type PointSensitivity struct {
	Expiry  float64
	Strike  float64
	Forward float64
	Kind    ParameterKind
	Amount  float64
}

// Model is a calibrated volatility surface or curve. Implementations are
// immutable; evaluation never mutates shared state.
type Model interface {
	Name() string
	ValuationTime() time.Time
	DayCount() daycount.Convention

	// RelativeTime is the day-count year fraction from the valuation instant
	// to t; zero at the valuation instant and antisymmetric across it.
	RelativeTime(t time.Time) float64

	// Volatility evaluates the model at (expiry, strike, forward). Surface
	// models ignore the forward; SABR needs it.
	Volatility(expiry, strike, forward float64) float64

	// ParameterNames labels the model's free parameters in the order used by
	// ParameterSensitivity vectors.
	ParameterNames() []string

	// ParameterSensitivity maps tagged point sensitivities to a vector over
	// the model's free parameters. The mapping is linear, so sensitivities of
	// combined points equal the sum of the individual vectors.
	ParameterSensitivity(pts ...PointSensitivity) []float64

	// Curve looks up a named parameter data series. A missing name is a
	// normal query outcome, reported through ok, not an error.
	Curve(name string) (c *interp.Curve, ok bool)
}

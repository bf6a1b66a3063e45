package interp

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidInputs = errors.New("invalid inputs")

// Kind selects the interpolation scheme between curve nodes.
type Kind string

const (
	Linear Kind = "Linear"
	// TimeSquare interpolates t·σ² linearly in t and maps back to σ. This is
	// the usual scheme for volatility-by-expiry curves, since t·σ² is total
	// variance under Black.
	TimeSquare Kind = "TimeSquare"
	// PiecewiseConstant holds the right-hand node value over each interval,
	// so the value over (x[i-1], x[i]] is y[i]. Bucketed bootstrap relies on
	// this: quotes before a node depend on that node only.
	PiecewiseConstant Kind = "PiecewiseConstant"
	// DoubleQuadratic blends the two quadratics fitted through the node
	// triples on either side of the interval. Falls back to a single
	// quadratic on the outermost intervals and to linear with two nodes.
	DoubleQuadratic Kind = "DoubleQuadratic"
)

// Extrapolation selects the behaviour outside the outermost nodes.
type Extrapolation string

const (
	FlatExtrapolation   Extrapolation = "Flat"
	LinearExtrapolation Extrapolation = "Linear"
)

// Curve is an immutable 1D interpolated curve over strictly increasing node
// locations. Value evaluates the interpolant and NodeWeights returns the
// gradient of the value with respect to each node value, which is what
// parameter sensitivities chain through.
type Curve struct {
	kind        Kind
	xs, ys      []float64
	left, right Extrapolation
}

// NewCurve validates the node arrays and builds a curve. xs must be strictly
// increasing and the same length as ys; TimeSquare additionally requires
// strictly positive node locations.
func NewCurve(kind Kind, xs, ys []float64, left, right Extrapolation) (*Curve, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: node arrays must be non-empty and of equal length, got %d and %d", ErrInvalidInputs, len(xs), len(ys))
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("%w: node locations must be strictly increasing", ErrInvalidInputs)
		}
	}
	switch kind {
	case Linear, PiecewiseConstant, DoubleQuadratic:
	case TimeSquare:
		if xs[0] <= 0 {
			return nil, fmt.Errorf("%w: TimeSquare requires positive node locations", ErrInvalidInputs)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported interpolator %q", ErrInvalidInputs, kind)
	}
	switch left {
	case FlatExtrapolation, LinearExtrapolation:
	default:
		return nil, fmt.Errorf("%w: unsupported extrapolator %q", ErrInvalidInputs, left)
	}
	switch right {
	case FlatExtrapolation, LinearExtrapolation:
	default:
		return nil, fmt.Errorf("%w: unsupported extrapolator %q", ErrInvalidInputs, right)
	}
	c := &Curve{kind: kind, xs: append([]float64(nil), xs...), ys: append([]float64(nil), ys...), left: left, right: right}
	return c, nil
}

func (c *Curve) Kind() Kind { return c.kind }

// Xs returns a copy of the node locations.
func (c *Curve) Xs() []float64 { return append([]float64(nil), c.xs...) }

// Ys returns a copy of the node values.
func (c *Curve) Ys() []float64 { return append([]float64(nil), c.ys...) }

func (c *Curve) Len() int { return len(c.xs) }

// WithValues returns a curve with the same nodes and scheme but new values.
func (c *Curve) WithValues(ys []float64) (*Curve, error) {
	if len(ys) != len(c.xs) {
		return nil, fmt.Errorf("%w: expected %d node values, got %d", ErrInvalidInputs, len(c.xs), len(ys))
	}
	return NewCurve(c.kind, c.xs, ys, c.left, c.right)
}

// Value evaluates the curve at x, applying the configured extrapolators
// outside the node range.
func (c *Curve) Value(x float64) float64 {
	n := len(c.xs)
	if n == 1 {
		return c.ys[0]
	}
	if x <= c.xs[0] {
		if c.left == FlatExtrapolation || x == c.xs[0] {
			return c.ys[0]
		}
		return c.linearExtend(0, x)
	}
	if x >= c.xs[n-1] {
		if c.right == FlatExtrapolation || x == c.xs[n-1] {
			return c.ys[n-1]
		}
		return c.linearExtend(n-1, x)
	}
	switch c.kind {
	case PiecewiseConstant:
		return c.ys[c.upperIndex(x)]
	case DoubleQuadratic:
		if n >= 3 {
			v := 0.0
			for j, wj := range c.doubleQuadraticWeights(x) {
				v += wj * c.ys[j]
			}
			return v
		}
		i := c.segment(x)
		a := (c.xs[i+1] - x) / (c.xs[i+1] - c.xs[i])
		return a*c.ys[i] + (1-a)*c.ys[i+1]
	case TimeSquare:
		i := c.segment(x)
		a := (c.xs[i+1] - x) / (c.xs[i+1] - c.xs[i])
		w := a*c.xs[i]*c.ys[i]*c.ys[i] + (1-a)*c.xs[i+1]*c.ys[i+1]*c.ys[i+1]
		return math.Sqrt(w / x)
	default:
		i := c.segment(x)
		a := (c.xs[i+1] - x) / (c.xs[i+1] - c.xs[i])
		return a*c.ys[i] + (1-a)*c.ys[i+1]
	}
}

// NodeWeights returns the partial derivative of Value(x) with respect to each
// node value, evaluated at the current node values.
func (c *Curve) NodeWeights(x float64) []float64 {
	n := len(c.xs)
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1.0
		return w
	}
	if x <= c.xs[0] && (c.left == FlatExtrapolation || x == c.xs[0]) {
		w[0] = 1.0
		return w
	}
	if x < c.xs[0] {
		dx := (x - c.xs[0]) / (c.xs[1] - c.xs[0])
		w[0] = 1.0 - dx
		w[1] = dx
		return w
	}
	if x >= c.xs[n-1] && (c.right == FlatExtrapolation || x == c.xs[n-1]) {
		w[n-1] = 1.0
		return w
	}
	if x > c.xs[n-1] {
		dx := (x - c.xs[n-1]) / (c.xs[n-1] - c.xs[n-2])
		w[n-1] = 1.0 + dx
		w[n-2] = -dx
		return w
	}
	switch c.kind {
	case PiecewiseConstant:
		w[c.upperIndex(x)] = 1.0
	case DoubleQuadratic:
		if n >= 3 {
			return c.doubleQuadraticWeights(x)
		}
		i := c.segment(x)
		a := (c.xs[i+1] - x) / (c.xs[i+1] - c.xs[i])
		w[i] = a
		w[i+1] = 1 - a
	case TimeSquare:
		i := c.segment(x)
		a := (c.xs[i+1] - x) / (c.xs[i+1] - c.xs[i])
		v := c.Value(x)
		if v == 0 {
			return w
		}
		w[i] = a * c.xs[i] * c.ys[i] / (v * x)
		w[i+1] = (1 - a) * c.xs[i+1] * c.ys[i+1] / (v * x)
	default:
		i := c.segment(x)
		a := (c.xs[i+1] - x) / (c.xs[i+1] - c.xs[i])
		w[i] = a
		w[i+1] = 1 - a
	}
	return w
}

// doubleQuadraticWeights returns the node-value weights of the blended
// quadratic interpolant at interior x. The interpolant is linear in the node
// values, so the weights are also the node-value gradient.
func (c *Curve) doubleQuadraticWeights(x float64) []float64 {
	n := len(c.xs)
	w := make([]float64, n)
	i := c.segment(x)

	addQuadratic := func(i0 int, scale float64) {
		x0, x1, x2 := c.xs[i0], c.xs[i0+1], c.xs[i0+2]
		w[i0] += scale * (x - x1) * (x - x2) / ((x0 - x1) * (x0 - x2))
		w[i0+1] += scale * (x - x0) * (x - x2) / ((x1 - x0) * (x1 - x2))
		w[i0+2] += scale * (x - x0) * (x - x1) / ((x2 - x0) * (x2 - x1))
	}

	hasLeft := i >= 1
	hasRight := i+2 <= n-1
	switch {
	case hasLeft && hasRight:
		a := (c.xs[i+1] - x) / (c.xs[i+1] - c.xs[i])
		addQuadratic(i-1, a)
		addQuadratic(i, 1-a)
	case hasLeft:
		addQuadratic(i-1, 1.0)
	default:
		addQuadratic(i, 1.0)
	}
	return w
}

// segment returns i such that xs[i] < x < xs[i+1] for interior x.
func (c *Curve) segment(x float64) int {
	lo, hi := 0, len(c.xs)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if c.xs[mid] < x {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// upperIndex returns the smallest i with xs[i] >= x for interior x.
func (c *Curve) upperIndex(x float64) int {
	i := c.segment(x)
	return i + 1
}

func (c *Curve) linearExtend(i int, x float64) float64 {
	var j int
	if i == 0 {
		j = 1
	} else {
		j = i - 1
	}
	slope := (c.ys[i] - c.ys[j]) / (c.xs[i] - c.xs[j])
	return c.ys[i] + slope*(x-c.xs[i])
}

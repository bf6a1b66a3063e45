package calib

import "math"

// Transform maps a constrained model parameter to an unconstrained surrogate,
// so the optimizer can search all of R while the model only ever sees values
// inside the parameter's domain.
type Transform interface {
	ToUnconstrained(v float64) float64
	FromUnconstrained(u float64) float64
}

// PositiveTransform maps (0, inf) to R via log.
type PositiveTransform struct{}

func (PositiveTransform) ToUnconstrained(v float64) float64   { return math.Log(v) }
func (PositiveTransform) FromUnconstrained(u float64) float64 { return math.Exp(u) }

// IntervalTransform maps (Lower, Upper) to R via a scaled atanh.
type IntervalTransform struct {
	Lower, Upper float64
}

func (tr IntervalTransform) ToUnconstrained(v float64) float64 {
	return math.Atanh(2.0*(v-tr.Lower)/(tr.Upper-tr.Lower) - 1.0)
}

func (tr IntervalTransform) FromUnconstrained(u float64) float64 {
	return tr.Lower + (tr.Upper-tr.Lower)*(math.Tanh(u)+1.0)/2.0
}

// IdentityTransform leaves the parameter unconstrained.
type IdentityTransform struct{}

func (IdentityTransform) ToUnconstrained(v float64) float64   { return v }
func (IdentityTransform) FromUnconstrained(u float64) float64 { return u }

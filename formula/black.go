package formula

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	MaxIterations = 100
	Tolerance     = 1e-9
)

var ErrNoConvergence = errors.New("implied volatility did not converge")

var stdNormal = distuv.Normal{Mu: 0.0, Sigma: 1.0}

// BlackPrice returns the undiscounted Black-76 price of a call or put on a
// forward. Degenerate inputs (zero expiry or volatility) collapse to the
// intrinsic value; out-of-domain inputs propagate NaN, detection of which is
// the consuming pricer's job.
func BlackPrice(f, k, t, vol float64, isCall bool) float64 {
	if t <= 0 || vol <= 0 {
		if isCall {
			return math.Max(f-k, 0)
		}
		return math.Max(k-f, 0)
	}
	sqt := vol * math.Sqrt(t)
	d1 := math.Log(f/k)/sqt + 0.5*sqt
	d2 := d1 - sqt
	if isCall {
		return f*stdNormal.CDF(d1) - k*stdNormal.CDF(d2)
	}
	return k*stdNormal.CDF(-d2) - f*stdNormal.CDF(-d1)
}

// BlackVega returns the undiscounted Black-76 vega, identical for calls and
// puts.
func BlackVega(f, k, t, vol float64) float64 {
	if t <= 0 || vol <= 0 {
		return 0
	}
	sqt := vol * math.Sqrt(t)
	d1 := (math.Log(f/k))/sqt + 0.5*sqt
	return f * stdNormal.Prob(d1) * math.Sqrt(t)
}

// BlackImpliedVol inverts the Black-76 formula for the volatility matching the
// given undiscounted price. Newton steps are taken while they stay inside the
// running bisection bracket, falling back to bisection otherwise.
func BlackImpliedVol(price, f, k, t float64, isCall bool) (float64, error) {
	return impliedVol(price, t, func(vol float64) float64 {
		return BlackPrice(f, k, t, vol, isCall)
	}, func(vol float64) float64 {
		return BlackVega(f, k, t, vol)
	})
}

func impliedVol(price, t float64, priceFn, vegaFn func(float64) float64) (float64, error) {
	if t <= 0 {
		return 0, fmt.Errorf("%w: non-positive expiry %v", ErrNoConvergence, t)
	}
	lo, hi := 1e-9, 10.0
	vol := 0.2
	for i := 0; i < MaxIterations; i++ {
		diff := priceFn(vol) - price
		if math.Abs(diff) < Tolerance {
			return vol, nil
		}
		if diff > 0 {
			hi = vol
		} else {
			lo = vol
		}
		vega := vegaFn(vol)
		next := vol - diff/vega
		if vega <= 0 || math.IsNaN(next) || next <= lo || next >= hi {
			next = 0.5 * (lo + hi)
		}
		vol = next
	}
	return 0, fmt.Errorf("%w after %d iterations", ErrNoConvergence, MaxIterations)
}

package formula

import (
	"math"
)

// NormalPrice returns the undiscounted Bachelier price of a call or put on a
// forward. Strikes and forwards may be negative, which is the point of the
// normal convention for rates.
func NormalPrice(f, k, t, vol float64, isCall bool) float64 {
	if t <= 0 || vol <= 0 {
		if isCall {
			return math.Max(f-k, 0)
		}
		return math.Max(k-f, 0)
	}
	sqt := vol * math.Sqrt(t)
	d := (f - k) / sqt
	if isCall {
		return (f-k)*stdNormal.CDF(d) + sqt*stdNormal.Prob(d)
	}
	return (k-f)*stdNormal.CDF(-d) + sqt*stdNormal.Prob(d)
}

// NormalVega returns the undiscounted Bachelier vega.
func NormalVega(f, k, t, vol float64) float64 {
	if t <= 0 || vol <= 0 {
		return 0
	}
	d := (f - k) / (vol * math.Sqrt(t))
	return stdNormal.Prob(d) * math.Sqrt(t)
}

// NormalImpliedVol inverts the Bachelier formula for the volatility matching
// the given undiscounted price.
func NormalImpliedVol(price, f, k, t float64, isCall bool) (float64, error) {
	return impliedVol(price, t, func(vol float64) float64 {
		return NormalPrice(f, k, t, vol, isCall)
	}, func(vol float64) float64 {
		return NormalVega(f, k, t, vol)
	})
}

// NormalVolFromBlack converts a Black volatility quote to the equivalent
// normal volatility by pricing under Black and inverting Bachelier.
func NormalVolFromBlack(f, k, t, blackVol float64) (float64, error) {
	price := BlackPrice(f, k, t, blackVol, true)
	return NormalImpliedVol(price, f, k, t, true)
}

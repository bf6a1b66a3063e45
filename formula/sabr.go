package formula

import (
	"math"
)

// SABR holds the Hagan lognormal SABR parameters at a single expiry. Shift is
// the displacement added to both forward and strike before evaluation,
// allowing negative rates.
type SABR struct {
	Alpha float64
	Beta  float64
	Rho   float64
	Nu    float64
	Shift float64
}

// SABRGreeks are the partial derivatives of the Hagan implied volatility with
// respect to each model parameter and to the (unshifted) forward and strike.
// Shift is the combined displacement sensitivity, ∂σ/∂F + ∂σ/∂K.
type SABRGreeks struct {
	Alpha   float64
	Beta    float64
	Rho     float64
	Nu      float64
	Forward float64
	Strike  float64
	Shift   float64
}

// Volatility returns the Hagan 2002 lognormal implied volatility at the given
// forward, strike and expiry. Shifted forward and strike must be positive;
// otherwise the math produces NaN, which is surfaced, not repaired.
func (p SABR) Volatility(f, k, t float64) float64 {
	return p.volDual(f, k, t).v
}

// VolatilityAdjoint returns the implied volatility together with its analytic
// parameter gradient.
func (p SABR) VolatilityAdjoint(f, k, t float64) (float64, SABRGreeks) {
	out := p.volDual(f, k, t)
	g := SABRGreeks{
		Alpha:   out.d[0],
		Beta:    out.d[1],
		Rho:     out.d[2],
		Nu:      out.d[3],
		Forward: out.d[4],
		Strike:  out.d[5],
	}
	g.Shift = g.Forward + g.Strike
	return out.v, g
}

// zSeriesCutoff is where z/χ(z) switches to its series expansion; the exact
// expression is 0/0 at z = 0.
const zSeriesCutoff = 1e-6

func (p SABR) volDual(f, k, t float64) dual {
	alpha := dvar(p.Alpha, 0)
	beta := dvar(p.Beta, 1)
	rho := dvar(p.Rho, 2)
	nu := dvar(p.Nu, 3)
	fs := dvar(f, 4).shift(p.Shift)
	ks := dvar(k, 5).shift(p.Shift)

	one := cval(1)
	omb := one.sub(beta)            // 1-β
	lnFK := fs.div(ks).log()        // ln(F/K)
	fk := fs.mul(ks)                // F·K
	fkPow := fk.pow(omb.scale(0.5)) // (FK)^((1-β)/2)
	omb2 := omb.mul(omb)            // (1-β)²
	ln2 := lnFK.mul(lnFK)

	// Denominator series of the leading factor.
	den := one.
		add(omb2.mul(ln2).scale(1.0 / 24.0)).
		add(omb2.mul(omb2).mul(ln2).mul(ln2).scale(1.0 / 1920.0))
	lead := alpha.div(fkPow.mul(den))

	// z/χ(z) smile factor.
	z := nu.div(alpha).mul(fkPow).mul(lnFK)
	var ratio dual
	if math.Abs(z.v) < zSeriesCutoff {
		ratio = one.sub(rho.mul(z).scale(0.5))
	} else {
		s := one.sub(rho.mul(z).scale(2.0)).add(z.mul(z)).sqrt()
		chi := s.add(z).sub(rho).div(one.sub(rho)).log()
		ratio = z.div(chi)
	}

	// Expiry correction.
	corr := one.add(
		omb2.mul(alpha).mul(alpha).div(fkPow.mul(fkPow)).scale(1.0 / 24.0).
			add(rho.mul(beta).mul(nu).mul(alpha).div(fkPow).scale(0.25)).
			add(cval(2).sub(rho.mul(rho).scale(3.0)).mul(nu).mul(nu).scale(1.0 / 24.0)).
			scale(t))

	return lead.mul(ratio).mul(corr)
}

package formula

import "math"

// dual carries a value and its partial derivatives with respect to the six
// SABR inputs (alpha, beta, rho, nu, forward, strike). Propagating duals
// through the Hagan formula yields the exact closed-form gradient without a
// separate hand-derived expression per term.
type dual struct {
	v float64
	d [6]float64
}

func cval(v float64) dual { return dual{v: v} }

func dvar(v float64, i int) dual {
	x := dual{v: v}
	x.d[i] = 1
	return x
}

func (a dual) add(b dual) dual {
	out := dual{v: a.v + b.v}
	for i := range out.d {
		out.d[i] = a.d[i] + b.d[i]
	}
	return out
}

func (a dual) sub(b dual) dual {
	out := dual{v: a.v - b.v}
	for i := range out.d {
		out.d[i] = a.d[i] - b.d[i]
	}
	return out
}

func (a dual) mul(b dual) dual {
	out := dual{v: a.v * b.v}
	for i := range out.d {
		out.d[i] = a.d[i]*b.v + a.v*b.d[i]
	}
	return out
}

func (a dual) div(b dual) dual {
	out := dual{v: a.v / b.v}
	for i := range out.d {
		out.d[i] = (a.d[i]*b.v - a.v*b.d[i]) / (b.v * b.v)
	}
	return out
}

func (a dual) scale(s float64) dual {
	out := dual{v: a.v * s}
	for i := range out.d {
		out.d[i] = a.d[i] * s
	}
	return out
}

func (a dual) shift(s float64) dual {
	a.v += s
	return a
}

func (a dual) log() dual {
	out := dual{v: math.Log(a.v)}
	for i := range out.d {
		out.d[i] = a.d[i] / a.v
	}
	return out
}

func (a dual) exp() dual {
	e := math.Exp(a.v)
	out := dual{v: e}
	for i := range out.d {
		out.d[i] = a.d[i] * e
	}
	return out
}

func (a dual) sqrt() dual {
	r := math.Sqrt(a.v)
	out := dual{v: r}
	for i := range out.d {
		out.d[i] = a.d[i] / (2 * r)
	}
	return out
}

// pow raises a positive base to a dual exponent via exp(b·log a).
func (a dual) pow(b dual) dual {
	return b.mul(a.log()).exp()
}

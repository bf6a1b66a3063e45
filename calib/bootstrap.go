package calib

import (
	"fmt"
	"math"
	"time"

	"github.com/banachtech/capvol/curve"
	"github.com/banachtech/capvol/formula"
	"github.com/banachtech/capvol/interp"
	"github.com/banachtech/capvol/vol"
)

// CalibrateFlat bootstraps a strike-flat volatility curve over expiry.
// Expiries are processed in increasing order; each bucket's node value is
// solved so the cap expiring there reprices its market price exactly,
// holding all earlier nodes fixed. More than one strike in a bucket falls
// back to a scalar least squares over the same node.
func (c *Calibrator) CalibrateFlat(def DirectFlatDefinition, raw RawOptionData, provider curve.Provider, valuation time.Time) (Result, error) {
	if err := def.Validate(); err != nil {
		return Result{}, err
	}
	obj, err := BuildObjective(raw, provider, def.tenor())
	if err != nil {
		return Result{}, err
	}
	isNormal := raw.ValueType() == vol.NormalVolatility

	// Group instruments into expiry buckets, preserving strike order.
	var nodes []float64
	buckets := map[float64][]Instrument{}
	for _, inst := range obj.Instruments {
		if _, ok := buckets[inst.Expiry]; !ok {
			nodes = append(nodes, inst.Expiry)
		}
		buckets[inst.Expiry] = append(buckets[inst.Expiry], inst)
	}

	vols := make([]float64, len(nodes))
	for i := range vols {
		vols[i] = 0.2
	}
	tenor := def.tenor()
	iters := 0

	for i, expiry := range nodes {
		insts := buckets[expiry]
		// Market price of each quoted cap under its own flat quote.
		targets := make([]float64, len(insts))
		for j, inst := range insts {
			targets[j] = capPrice(provider, tenor, inst.Expiry, inst.Strike, func(float64) float64 { return inst.TargetVol }, isNormal)
		}

		// An expiry shorter than two index periods has no caplet fixings, so
		// the price carries no information and the node takes the quote.
		if expiry+1e-9 < 2*tenor {
			sum, wsum := 0.0, 0.0
			for _, inst := range insts {
				sum += inst.Weight * inst.TargetVol
				wsum += inst.Weight
			}
			vols[i] = sum / wsum
			for j := i + 1; j < len(vols); j++ {
				vols[j] = vols[i]
			}
			continue
		}

		priceErr := func(v float64) float64 {
			trial := append([]float64(nil), vols...)
			trial[i] = v
			// Later nodes are unsolved; extend flat so the trial curve is
			// well defined everywhere it is read.
			for j := i + 1; j < len(trial); j++ {
				trial[j] = v
			}
			cv, err := interp.NewCurve(def.Interpolator, nodes, trial, def.ExtrapolatorLeft, def.ExtrapolatorRight)
			if err != nil {
				return math.NaN()
			}
			s := 0.0
			for j, inst := range insts {
				p := capPrice(provider, tenor, inst.Expiry, inst.Strike, cv.Value, isNormal)
				d := inst.Weight * (p - targets[j])
				s += d * d
			}
			return s
		}

		v, n, err := solveBucket(priceErr, c.MaxIterations)
		if err != nil {
			return Result{}, fmt.Errorf("bucket %g: %w", expiry, err)
		}
		vols[i] = v
		iters += n
	}

	cv, err := interp.NewCurve(def.Interpolator, nodes, vols, def.ExtrapolatorLeft, def.ExtrapolatorRight)
	if err != nil {
		return Result{}, err
	}
	m, err := vol.NewFlatCurve(def.Name, valuation, def.DayCount, raw.ValueType(), cv)
	if err != nil {
		return Result{}, err
	}

	// Residual norm over the quoted vols for diagnostics.
	res := make([]float64, len(obj.Instruments))
	for i, inst := range obj.Instruments {
		res[i] = inst.Weight * (m.Volatility(inst.Expiry, inst.Strike, inst.Forward) - inst.TargetVol)
	}
	norm := 0.0
	for _, r := range res {
		norm += r * r
	}
	return Result{Model: m, Converged: true, Iterations: iters, ResidualNorm: math.Sqrt(norm)}, nil
}

// capPrice is the undiscounted-forward sum of caplet prices for a cap
// expiring at capEnd: fixings step by the index tenor, each paying at the end
// of its accrual period, with the volatility read at the fixing time.
func capPrice(provider curve.Provider, tenor, capEnd, strike float64, volAt func(float64) float64, isNormal bool) float64 {
	p := 0.0
	for t := tenor; t+tenor <= capEnd+1e-9; t += tenor {
		fwd := provider.Forward(t, t+tenor)
		df := provider.DiscountFactor(t + tenor)
		v := volAt(t)
		if isNormal {
			p += df * tenor * formula.NormalPrice(fwd, strike, t, v, true)
		} else {
			p += df * tenor * formula.BlackPrice(fwd, strike, t, v, true)
		}
	}
	return p
}

// solveBucket minimizes a scalar squared pricing error by golden section over
// a bracket of admissible volatilities. The objective is smooth and unimodal
// in the node value because caplet prices increase monotonically in
// volatility.
func solveBucket(f func(float64) float64, maxIter int) (float64, int, error) {
	const phi = 0.6180339887498949

	lo, hi := 1e-6, 5.0
	if math.IsNaN(f(lo)) || math.IsNaN(f(hi)) {
		return 0, 0, fmt.Errorf("%w: bucket objective is not finite", ErrInvalidDefinition)
	}
	a, b := lo, hi
	x1 := b - phi*(b-a)
	x2 := a + phi*(b-a)
	f1, f2 := f(x1), f(x2)
	n := 0
	for i := 0; i < maxIter*2; i++ {
		n++
		if b-a < 1e-12 {
			break
		}
		if f1 < f2 {
			b, x2, f2 = x2, x1, f1
			x1 = b - phi*(b-a)
			f1 = f(x1)
		} else {
			a, x1, f1 = x1, x2, f2
			x2 = a + phi*(b-a)
			f2 = f(x2)
		}
	}
	return 0.5 * (a + b), n, nil
}

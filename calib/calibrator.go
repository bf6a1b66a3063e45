package calib

import (
	"fmt"
	"math"
	"time"

	"github.com/banachtech/capvol/curve"
	"github.com/banachtech/capvol/vol"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Method selects the global search strategy.
type Method string

const (
	LevenbergMarquardt Method = "LevenbergMarquardt"
	NelderMead         Method = "NelderMead"
)

// Result is the outcome of one calibration call, immutable once produced.
type Result struct {
	Model        vol.Model
	Converged    bool
	Iterations   int
	ResidualNorm float64
}

// NonConvergenceError reports exhaustion of the iteration limit together
// with the last achieved residual norm. It is a hard failure; a poor fit is
// never silently returned.
type NonConvergenceError struct {
	Iterations   int
	ResidualNorm float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("calibration did not converge after %d iterations (residual norm %.6e)", e.Iterations, e.ResidualNorm)
}

// Calibrator runs nonlinear least squares over the transformed free
// parameters. All optimization state lives inside one Calibrate call; the
// Calibrator itself carries only settings and is safe to reuse.
type Calibrator struct {
	MaxIterations int
	Tolerance     float64
	Method        Method
}

func NewCalibrator() *Calibrator {
	return &Calibrator{MaxIterations: 100, Tolerance: 1e-12, Method: LevenbergMarquardt}
}

// CalibrateSABR fits the definition's free SABR parameter curves to the
// quote grid. The quote grid's iteration order (expiry ascending, strike
// ascending) is the residual order.
func (c *Calibrator) CalibrateSABR(def SABRDefinition, raw RawOptionData, provider curve.Provider, valuation time.Time) (Result, error) {
	if err := def.Validate(); err != nil {
		return Result{}, err
	}
	if _, err := def.CreateMetadata(raw); err != nil {
		return Result{}, err
	}
	obj, err := BuildObjective(raw, provider, def.tenor())
	if err != nil {
		return Result{}, err
	}
	nFree := def.FreeParameterCount()
	if nFree > len(obj.Instruments) && def.Lambda == 0 {
		return Result{}, fmt.Errorf("%w: %d free parameters for %d quotes and no smoothing penalty",
			ErrInvalidDefinition, nFree, len(obj.Instruments))
	}

	transforms := def.FullTransforms()
	u0 := make([]float64, nFree)
	for i, v := range def.FullInitialValues() {
		u0[i] = transforms[i].ToUnconstrained(v)
	}

	template, err := def.model(valuation, def.FullInitialValues())
	if err != nil {
		return Result{}, err
	}

	penalty := def.penaltyRows()
	sqrtLambda := math.Sqrt(def.Lambda)
	nRes := len(obj.Instruments)
	if def.Lambda > 0 && penalty != nil {
		r, _ := penalty.Dims()
		nRes += r
	}

	// residuals maps optimizer-space values back to SABR parameter space and
	// evaluates the weighted quote residuals plus any smoothing rows.
	residuals := func(u, out []float64) error {
		theta := make([]float64, nFree)
		for i := range u {
			theta[i] = transforms[i].FromUnconstrained(u[i])
		}
		m, err := template.WithFreeValues(theta)
		if err != nil {
			return err
		}
		if err := obj.Residuals(m, out[:len(obj.Instruments)]); err != nil {
			return err
		}
		if def.Lambda > 0 && penalty != nil {
			rows, _ := penalty.Dims()
			for i := 0; i < rows; i++ {
				s := 0.0
				for j := 0; j < nFree; j++ {
					s += penalty.At(i, j) * theta[j]
				}
				out[len(obj.Instruments)+i] = sqrtLambda * s
			}
		}
		return nil
	}

	var u []float64
	var iters int
	var norm float64
	switch c.Method {
	case NelderMead:
		u, iters, norm, err = c.nelderMead(residuals, u0, nRes)
	default:
		u, iters, norm, err = c.levenbergMarquardt(residuals, u0, nRes)
	}
	if err != nil {
		return Result{}, err
	}

	theta := make([]float64, nFree)
	for i := range u {
		theta[i] = transforms[i].FromUnconstrained(u[i])
	}
	m, err := template.WithFreeValues(theta)
	if err != nil {
		return Result{}, err
	}
	return Result{Model: m, Converged: true, Iterations: iters, ResidualNorm: norm}, nil
}

// levenbergMarquardt is a damped Gauss-Newton search with a numeric central
// difference Jacobian over the unconstrained surrogate.
func (c *Calibrator) levenbergMarquardt(residuals func(u, out []float64) error, u0 []float64, nRes int) ([]float64, int, float64, error) {
	const jacStep = 1e-7

	n := len(u0)
	u := append([]float64(nil), u0...)
	res := make([]float64, nRes)
	if err := residuals(u, res); err != nil {
		return nil, 0, 0, err
	}
	norm := floats.Norm(res, 2)
	mu := 1e-3

	jac := mat.NewDense(nRes, n, nil)
	up := make([]float64, nRes)
	dn := make([]float64, nRes)
	cand := make([]float64, n)
	candRes := make([]float64, nRes)

	for iter := 1; iter <= c.MaxIterations; iter++ {
		for j := 0; j < n; j++ {
			uj := u[j]
			u[j] = uj + jacStep
			if err := residuals(u, up); err != nil {
				return nil, iter, norm, err
			}
			u[j] = uj - jacStep
			if err := residuals(u, dn); err != nil {
				return nil, iter, norm, err
			}
			u[j] = uj
			for i := 0; i < nRes; i++ {
				jac.Set(i, j, (up[i]-dn[i])/(2*jacStep))
			}
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		rhs := mat.NewVecDense(n, nil)
		rhs.MulVec(jac.T(), mat.NewVecDense(nRes, res))
		for j := 0; j < n; j++ {
			d := jtj.At(j, j)
			if d == 0 {
				d = 1e-12
			}
			jtj.Set(j, j, d*(1.0+mu))
		}

		var step mat.VecDense
		if err := step.SolveVec(&jtj, rhs); err != nil {
			return nil, iter, norm, fmt.Errorf("normal equations solve failed: %w", err)
		}
		for j := 0; j < n; j++ {
			cand[j] = u[j] - step.AtVec(j)
		}
		if err := residuals(cand, candRes); err != nil {
			return nil, iter, norm, err
		}
		candNorm := floats.Norm(candRes, 2)

		if candNorm < norm {
			improvement := norm - candNorm
			copy(u, cand)
			copy(res, candRes)
			norm = candNorm
			mu = math.Max(mu/10.0, 1e-12)
			if improvement < c.Tolerance || floats.Norm(stepSlice(&step), 2) < c.Tolerance {
				return u, iter, norm, nil
			}
		} else {
			mu *= 10.0
			if mu > 1e12 {
				// The damping has collapsed the step to nothing; the current
				// point is the minimum to within numerical resolution.
				return u, iter, norm, nil
			}
		}
	}
	return nil, c.MaxIterations, norm, &NonConvergenceError{Iterations: c.MaxIterations, ResidualNorm: norm}
}

func stepSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// nelderMead minimizes the sum of squared residuals with gonum's simplex
// search. Slower than Levenberg-Marquardt but derivative-free.
func (c *Calibrator) nelderMead(residuals func(u, out []float64) error, u0 []float64, nRes int) ([]float64, int, float64, error) {
	scratch := make([]float64, nRes)
	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			if err := residuals(u, scratch); err != nil {
				return math.Inf(1)
			}
			s := 0.0
			for _, r := range scratch {
				s += r * r
			}
			return s
		},
	}
	settings := &optimize.Settings{MajorIterations: c.MaxIterations * 50}
	result, err := optimize.Minimize(problem, append([]float64(nil), u0...), settings, &optimize.NelderMead{})
	if err != nil {
		if result != nil {
			return nil, result.MajorIterations, math.Sqrt(result.F), &NonConvergenceError{Iterations: result.MajorIterations, ResidualNorm: math.Sqrt(result.F)}
		}
		return nil, 0, 0, err
	}
	return result.X, result.MajorIterations, math.Sqrt(result.F), nil
}

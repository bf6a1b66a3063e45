package calib

import (
	"fmt"
	"time"

	"github.com/banachtech/capvol/daycount"
	"github.com/banachtech/capvol/interp"
	"github.com/banachtech/capvol/vol"
	"gonum.org/v1/gonum/mat"
)

// SurfaceMetadata describes the surface a calibration will produce, chosen
// from the quote value type.
type SurfaceMetadata struct {
	Name      string
	DayCount  daycount.Convention
	ValueType vol.ValueType
}

// SABRInitial holds the scalar initial guesses per parameter family; each is
// expanded flat across that family's knots.
type SABRInitial struct {
	Alpha float64
	Beta  float64
	Rho   float64
	Nu    float64
}

// SABRDefinition is the recipe for a global SABR calibration: knot locations
// per free parameter family, the fixed family curve, interpolation, and the
// smoothing penalty weight. Exactly one of beta and rho is fixed; calibrating
// all four families node-by-node is not well identified. That rule is a
// compatibility policy, not a SABR requirement.
type SABRDefinition struct {
	Name         string
	Index        string
	IndexTenor   float64
	DayCount     daycount.Convention
	Interpolator interp.Kind

	AlphaKnots []float64
	BetaKnots  []float64
	RhoKnots   []float64
	NuKnots    []float64

	FixedBeta *interp.Curve
	FixedRho  *interp.Curve
	Shift     *interp.Curve

	Initial SABRInitial
	Lambda  float64
}

// Validate checks the structural preconditions before any numerical work.
func (d SABRDefinition) Validate() error {
	if (d.FixedBeta == nil) == (d.FixedRho == nil) {
		return fmt.Errorf("%w: exactly one of beta and rho must be fixed", ErrInvalidDefinition)
	}
	if len(d.AlphaKnots) == 0 || len(d.NuKnots) == 0 {
		return fmt.Errorf("%w: alpha and nu need at least one knot", ErrInvalidDefinition)
	}
	if d.FixedBeta != nil {
		if len(d.BetaKnots) != 0 {
			return fmt.Errorf("%w: fixed beta must have no knots", ErrInvalidDefinition)
		}
		if len(d.RhoKnots) == 0 {
			return fmt.Errorf("%w: free rho needs knots", ErrInvalidDefinition)
		}
	} else {
		if len(d.RhoKnots) != 0 {
			return fmt.Errorf("%w: fixed rho must have no knots", ErrInvalidDefinition)
		}
		if len(d.BetaKnots) == 0 {
			return fmt.Errorf("%w: free beta needs knots", ErrInvalidDefinition)
		}
	}
	if d.Lambda < 0 {
		return fmt.Errorf("%w: negative penalty weight", ErrInvalidDefinition)
	}
	return nil
}

// tenor returns the index accrual period, defaulting to 3M.
func (d SABRDefinition) tenor() float64 {
	if d.IndexTenor > 0 {
		return d.IndexTenor
	}
	return 0.25
}

// FreeFamilies lists the calibrated families in vector order.
func (d SABRDefinition) FreeFamilies() []vol.ParameterKind {
	free := []vol.ParameterKind{vol.KindAlpha}
	if d.FixedBeta != nil {
		free = append(free, vol.KindRho)
	} else {
		free = append(free, vol.KindBeta)
	}
	return append(free, vol.KindNu)
}

func (d SABRDefinition) knotsFor(kind vol.ParameterKind) []float64 {
	switch kind {
	case vol.KindAlpha:
		return d.AlphaKnots
	case vol.KindBeta:
		return d.BetaKnots
	case vol.KindRho:
		return d.RhoKnots
	default:
		return d.NuKnots
	}
}

// FreeParameterCount is the total number of free knots across families.
func (d SABRDefinition) FreeParameterCount() int {
	n := 0
	for _, kind := range d.FreeFamilies() {
		n += len(d.knotsFor(kind))
	}
	return n
}

// CreateMetadata chooses Black or Normal expiry-strike metadata from the
// quote value type, rejecting anything else.
func (d SABRDefinition) CreateMetadata(raw RawOptionData) (SurfaceMetadata, error) {
	switch raw.ValueType() {
	case vol.BlackVolatility, vol.NormalVolatility:
		return SurfaceMetadata{Name: d.Name, DayCount: d.DayCount, ValueType: raw.ValueType()}, nil
	default:
		return SurfaceMetadata{}, fmt.Errorf("%w: unsupported quote value type %q", ErrInvalidDefinition, raw.ValueType())
	}
}

// canonicalTransform returns the domain transform for one parameter family:
// alpha >= 0, beta in [0,1], rho in (-1,1), nu > 0.
func canonicalTransform(kind vol.ParameterKind) Transform {
	switch kind {
	case vol.KindBeta:
		return IntervalTransform{Lower: 0.0, Upper: 1.0}
	case vol.KindRho:
		return IntervalTransform{Lower: -1.0, Upper: 1.0}
	default:
		return PositiveTransform{}
	}
}

// FullTransforms expands the canonical per-family transforms into one
// transform per free knot. Fixed families are omitted entirely, not given an
// identity slot.
func (d SABRDefinition) FullTransforms() []Transform {
	var out []Transform
	for _, kind := range d.FreeFamilies() {
		tr := canonicalTransform(kind)
		for range d.knotsFor(kind) {
			out = append(out, tr)
		}
	}
	return out
}

// FullInitialValues expands the scalar initial guesses flat across each free
// family's knots.
func (d SABRDefinition) FullInitialValues() []float64 {
	initial := map[vol.ParameterKind]float64{
		vol.KindAlpha: d.Initial.Alpha,
		vol.KindBeta:  d.Initial.Beta,
		vol.KindRho:   d.Initial.Rho,
		vol.KindNu:    d.Initial.Nu,
	}
	var out []float64
	for _, kind := range d.FreeFamilies() {
		for range d.knotsFor(kind) {
			out = append(out, initial[kind])
		}
	}
	return out
}

// model assembles the SABR model for this definition with the given free knot
// values.
func (d SABRDefinition) model(valuation time.Time, values []float64) (*vol.SABR, error) {
	free := d.FreeFamilies()
	curves := map[vol.ParameterKind]*interp.Curve{}
	off := 0
	for _, kind := range free {
		knots := d.knotsFor(kind)
		c, err := interp.NewCurve(d.Interpolator, knots, values[off:off+len(knots)], interp.FlatExtrapolation, interp.FlatExtrapolation)
		if err != nil {
			return nil, fmt.Errorf("%s curve: %w", kind, err)
		}
		curves[kind] = c
		off += len(knots)
	}
	if d.FixedBeta != nil {
		curves[vol.KindBeta] = d.FixedBeta
	} else {
		curves[vol.KindRho] = d.FixedRho
	}
	return vol.NewSABR(d.Name, valuation, d.DayCount,
		curves[vol.KindAlpha], curves[vol.KindBeta], curves[vol.KindRho], curves[vol.KindNu],
		d.Shift, free)
}

// ComputePenaltyMatrix builds the discrete second-derivative roughness
// penalty lambda·DᵀD over one family's knots. A second difference needs at
// least three points.
func ComputePenaltyMatrix(nodes []float64, lambda float64) (*mat.SymDense, error) {
	dm, err := secondDifference(nodes)
	if err != nil {
		return nil, err
	}
	n := len(nodes)
	out := mat.NewSymDense(n, nil)
	rows, _ := dm.Dims()
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			s := 0.0
			for r := 0; r < rows; r++ {
				s += dm.At(r, a) * dm.At(r, b)
			}
			out.SetSym(a, b, lambda*s)
		}
	}
	return out, nil
}

// secondDifference builds the (n-2)*n second-difference operator over
// non-uniform node spacing.
func secondDifference(nodes []float64) (*mat.Dense, error) {
	n := len(nodes)
	if n < 3 {
		return nil, fmt.Errorf("%w: a curvature penalty needs at least 3 knots, got %d", ErrInvalidDefinition, n)
	}
	dm := mat.NewDense(n-2, n, nil)
	for i := 0; i < n-2; i++ {
		h1 := nodes[i+1] - nodes[i]
		h2 := nodes[i+2] - nodes[i+1]
		dm.Set(i, i, 2.0/(h1*(h1+h2)))
		dm.Set(i, i+1, -2.0/(h1*h2))
		dm.Set(i, i+2, 2.0/(h2*(h1+h2)))
	}
	return dm, nil
}

// penaltyRows stacks per-family second-difference blocks over the full free
// parameter vector. Families with fewer than three knots carry no curvature
// and contribute no rows.
func (d SABRDefinition) penaltyRows() *mat.Dense {
	free := d.FreeFamilies()
	total := d.FreeParameterCount()
	var blocks []*mat.Dense
	var offsets []int
	rows := 0
	off := 0
	for _, kind := range free {
		knots := d.knotsFor(kind)
		if len(knots) >= 3 {
			dm, err := secondDifference(knots)
			if err == nil {
				blocks = append(blocks, dm)
				offsets = append(offsets, off)
				r, _ := dm.Dims()
				rows += r
			}
		}
		off += len(knots)
	}
	if rows == 0 {
		return nil
	}
	out := mat.NewDense(rows, total, nil)
	r0 := 0
	for bi, dm := range blocks {
		r, c := dm.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				out.Set(r0+i, offsets[bi]+j, dm.At(i, j))
			}
		}
		r0 += r
	}
	return out
}

// DirectFlatDefinition is the recipe for a direct, strike-flat bootstrap
// calibration of a volatility curve over expiry. Extrapolation defaults to
// flat on both sides.
type DirectFlatDefinition struct {
	Name              string               `json:"name"`
	Index             string               `json:"index"`
	IndexTenor        float64              `json:"index_tenor"`
	DayCount          daycount.Convention  `json:"day_count"`
	Interpolator      interp.Kind          `json:"interpolator"`
	ExtrapolatorLeft  interp.Extrapolation `json:"extrapolator_left"`
	ExtrapolatorRight interp.Extrapolation `json:"extrapolator_right"`
	Lambda            float64              `json:"lambda"`
}

// NewDirectFlatDefinition builds a definition with the default flat/flat
// extrapolators.
func NewDirectFlatDefinition(name, index string, dc daycount.Convention, interpolator interp.Kind, lambda float64) DirectFlatDefinition {
	return DirectFlatDefinition{
		Name:              name,
		Index:             index,
		DayCount:          dc,
		Interpolator:      interpolator,
		ExtrapolatorLeft:  interp.FlatExtrapolation,
		ExtrapolatorRight: interp.FlatExtrapolation,
		Lambda:            lambda,
	}
}

func (d DirectFlatDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}
	if d.Lambda < 0 {
		return fmt.Errorf("%w: negative penalty weight", ErrInvalidDefinition)
	}
	return nil
}

func (d DirectFlatDefinition) tenor() float64 {
	if d.IndexTenor > 0 {
		return d.IndexTenor
	}
	return 0.25
}

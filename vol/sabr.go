package vol

import (
	"fmt"
	"strings"
	"time"

	"github.com/banachtech/capvol/daycount"
	"github.com/banachtech/capvol/formula"
	"github.com/banachtech/capvol/interp"
)

// SABR is a calibrated SABR model: four per-expiry parameter curves plus an
// optional shift curve, each independently interpolated, evaluated through
// the Hagan lognormal formula. Free families (in the order alpha,
// beta-or-rho, nu) define the free parameter vector; the remaining family and
// the shift are fixed inputs.
type SABR struct {
	name      string
	valuation time.Time
	dc        daycount.Convention
	curves    map[ParameterKind]*interp.Curve
	shift     *interp.Curve
	free      []ParameterKind
}

var sabrFamilyOrder = []ParameterKind{KindAlpha, KindBeta, KindRho, KindNu}

// NewSABR builds a SABR model. All four parameter curves are required; shift
// may be nil. free lists the calibrated families and fixes the sensitivity
// vector layout.
func NewSABR(name string, valuation time.Time, dc daycount.Convention, alpha, beta, rho, nu, shift *interp.Curve, free []ParameterKind) (*SABR, error) {
	curves := map[ParameterKind]*interp.Curve{
		KindAlpha: alpha,
		KindBeta:  beta,
		KindRho:   rho,
		KindNu:    nu,
	}
	for kind, c := range curves {
		if c == nil {
			return nil, fmt.Errorf("%w: missing %s curve", interp.ErrInvalidInputs, strings.ToLower(string(kind)))
		}
	}
	if len(free) == 0 {
		return nil, fmt.Errorf("%w: a SABR model needs at least one free parameter family", interp.ErrInvalidInputs)
	}
	seen := map[ParameterKind]bool{}
	for _, kind := range free {
		if _, ok := curves[kind]; !ok {
			return nil, fmt.Errorf("%w: %q is not a calibratable SABR family", interp.ErrInvalidInputs, kind)
		}
		if seen[kind] {
			return nil, fmt.Errorf("%w: duplicate free family %q", interp.ErrInvalidInputs, kind)
		}
		seen[kind] = true
	}
	// Keep the canonical family order regardless of the order supplied.
	ordered := make([]ParameterKind, 0, len(free))
	for _, kind := range sabrFamilyOrder {
		if seen[kind] {
			ordered = append(ordered, kind)
		}
	}
	return &SABR{name: name, valuation: valuation, dc: dc, curves: curves, shift: shift, free: ordered}, nil
}

func (m *SABR) Name() string                  { return m.name }
func (m *SABR) ValuationTime() time.Time      { return m.valuation }
func (m *SABR) DayCount() daycount.Convention { return m.dc }

// FreeFamilies returns the calibrated families in vector order.
func (m *SABR) FreeFamilies() []ParameterKind {
	return append([]ParameterKind(nil), m.free...)
}

func (m *SABR) RelativeTime(t time.Time) float64 {
	return daycount.RelativeTime(m.valuation, t, m.dc)
}

// ParamsAt interpolates the SABR parameters at an expiry.
func (m *SABR) ParamsAt(expiry float64) formula.SABR {
	p := formula.SABR{
		Alpha: m.curves[KindAlpha].Value(expiry),
		Beta:  m.curves[KindBeta].Value(expiry),
		Rho:   m.curves[KindRho].Value(expiry),
		Nu:    m.curves[KindNu].Value(expiry),
	}
	if m.shift != nil {
		p.Shift = m.shift.Value(expiry)
	}
	return p
}

func (m *SABR) Volatility(expiry, strike, forward float64) float64 {
	return m.ParamsAt(expiry).Volatility(forward, strike, expiry)
}

func (m *SABR) ParameterNames() []string {
	var names []string
	for _, kind := range m.free {
		for _, x := range m.curves[kind].Xs() {
			names = append(names, fmt.Sprintf("%s-%s-%g", m.name, strings.ToLower(string(kind)), x))
		}
	}
	return names
}

// ParameterCount is the total number of free knots.
func (m *SABR) ParameterCount() int {
	n := 0
	for _, kind := range m.free {
		n += m.curves[kind].Len()
	}
	return n
}

// ParameterSensitivity maps each point through the analytic Hagan partials
// and the relevant curve's node weights. A point tagged with a fixed family
// contributes nothing; fixed parameters are not in the vector.
func (m *SABR) ParameterSensitivity(pts ...PointSensitivity) []float64 {
	out := make([]float64, m.ParameterCount())
	for _, pt := range pts {
		switch pt.Kind {
		case KindNode:
			_, g := m.ParamsAt(pt.Expiry).VolatilityAdjoint(pt.Forward, pt.Strike, pt.Expiry)
			partials := map[ParameterKind]float64{
				KindAlpha: g.Alpha,
				KindBeta:  g.Beta,
				KindRho:   g.Rho,
				KindNu:    g.Nu,
			}
			off := 0
			for _, kind := range m.free {
				c := m.curves[kind]
				w := c.NodeWeights(pt.Expiry)
				for j := range w {
					out[off+j] += pt.Amount * partials[kind] * w[j]
				}
				off += c.Len()
			}
		case KindAlpha, KindBeta, KindRho, KindNu:
			off := 0
			for _, kind := range m.free {
				c := m.curves[kind]
				if kind == pt.Kind {
					w := c.NodeWeights(pt.Expiry)
					for j := range w {
						out[off+j] += pt.Amount * w[j]
					}
				}
				off += c.Len()
			}
		case KindShift:
			// The shift curve is always a fixed input here.
		}
	}
	return out
}

// Curve looks up a parameter curve by family name (alpha, beta, rho, nu,
// shift). Unknown names and a missing shift report ok=false.
func (m *SABR) Curve(name string) (*interp.Curve, bool) {
	switch strings.ToLower(name) {
	case "alpha":
		return m.curves[KindAlpha], true
	case "beta":
		return m.curves[KindBeta], true
	case "rho":
		return m.curves[KindRho], true
	case "nu":
		return m.curves[KindNu], true
	case "shift":
		if m.shift == nil {
			return nil, false
		}
		return m.shift, true
	}
	return nil, false
}

// FreeValues returns the free knot values in vector order.
func (m *SABR) FreeValues() []float64 {
	var out []float64
	for _, kind := range m.free {
		out = append(out, m.curves[kind].Ys()...)
	}
	return out
}

// WithFreeValues returns a model with the free knot values replaced, in the
// same vector order. Fixed curves and the shift are shared.
func (m *SABR) WithFreeValues(vals []float64) (*SABR, error) {
	if len(vals) != m.ParameterCount() {
		return nil, fmt.Errorf("%w: expected %d free values, got %d", interp.ErrInvalidInputs, m.ParameterCount(), len(vals))
	}
	curves := map[ParameterKind]*interp.Curve{}
	for kind, c := range m.curves {
		curves[kind] = c
	}
	off := 0
	for _, kind := range m.free {
		n := curves[kind].Len()
		c, err := curves[kind].WithValues(vals[off : off+n])
		if err != nil {
			return nil, err
		}
		curves[kind] = c
		off += n
	}
	return &SABR{
		name:      m.name,
		valuation: m.valuation,
		dc:        m.dc,
		curves:    curves,
		shift:     m.shift,
		free:      m.free,
	}, nil
}

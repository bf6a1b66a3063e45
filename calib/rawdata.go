package calib

import (
	"errors"
	"fmt"
	"math"

	"github.com/banachtech/capvol/vol"
)

var ErrInvalidDefinition = errors.New("invalid calibration definition")

// RawOptionData is a grid of market cap/floor quotes: ordered expiries times
// ordered strikes with a matrix of quoted volatilities. NaN marks a missing
// observation and is skipped during calibration, never treated as zero.
type RawOptionData struct {
	expiries  []float64
	strikes   []float64
	values    [][]float64
	errors    [][]float64
	valueType vol.ValueType
}

// NewRawOptionData validates grid dimensions and orderings. An empty strike
// list is allowed and marks a strike-independent ("flat") quote set with one
// value per expiry.
func NewRawOptionData(expiries, strikes []float64, values [][]float64, valueType vol.ValueType) (RawOptionData, error) {
	switch valueType {
	case vol.BlackVolatility, vol.NormalVolatility:
	default:
		return RawOptionData{}, fmt.Errorf("%w: unsupported quote value type %q", ErrInvalidDefinition, valueType)
	}
	if len(expiries) == 0 {
		return RawOptionData{}, fmt.Errorf("%w: no expiries", ErrInvalidDefinition)
	}
	for i := 1; i < len(expiries); i++ {
		if expiries[i] <= expiries[i-1] {
			return RawOptionData{}, fmt.Errorf("%w: expiries must be strictly increasing", ErrInvalidDefinition)
		}
	}
	for j := 1; j < len(strikes); j++ {
		if strikes[j] <= strikes[j-1] {
			return RawOptionData{}, fmt.Errorf("%w: strikes must be strictly increasing", ErrInvalidDefinition)
		}
	}
	if len(values) != len(expiries) {
		return RawOptionData{}, fmt.Errorf("%w: %d value rows for %d expiries", ErrInvalidDefinition, len(values), len(expiries))
	}
	cols := len(strikes)
	if cols == 0 {
		cols = 1
	}
	for i, row := range values {
		if len(row) != cols {
			return RawOptionData{}, fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidDefinition, i, len(row), cols)
		}
	}
	r := RawOptionData{
		expiries:  append([]float64(nil), expiries...),
		strikes:   append([]float64(nil), strikes...),
		valueType: valueType,
	}
	r.values = make([][]float64, len(values))
	for i, row := range values {
		r.values[i] = append([]float64(nil), row...)
	}
	return r, nil
}

// WithErrors attaches a per-point error matrix; calibration weights become
// the reciprocal of each error.
func (r RawOptionData) WithErrors(errs [][]float64) (RawOptionData, error) {
	if len(errs) != len(r.values) {
		return RawOptionData{}, fmt.Errorf("%w: %d error rows for %d value rows", ErrInvalidDefinition, len(errs), len(r.values))
	}
	out := r
	out.errors = make([][]float64, len(errs))
	for i, row := range errs {
		if len(row) != len(r.values[i]) {
			return RawOptionData{}, fmt.Errorf("%w: error row %d has %d entries, want %d", ErrInvalidDefinition, i, len(row), len(r.values[i]))
		}
		for _, e := range row {
			if e <= 0 {
				return RawOptionData{}, fmt.Errorf("%w: errors must be positive", ErrInvalidDefinition)
			}
		}
		out.errors[i] = append([]float64(nil), row...)
	}
	return out, nil
}

func (r RawOptionData) Expiries() []float64      { return append([]float64(nil), r.expiries...) }
func (r RawOptionData) Strikes() []float64       { return append([]float64(nil), r.strikes...) }
func (r RawOptionData) ValueType() vol.ValueType { return r.valueType }

// Value returns the quote at (expiry i, strike j); NaN when missing.
func (r RawOptionData) Value(i, j int) float64 { return r.values[i][j] }

// Weight returns the calibration weight at (i, j): 1 without an error matrix,
// 1/error with one.
func (r RawOptionData) Weight(i, j int) float64 {
	if r.errors == nil {
		return 1.0
	}
	return 1.0 / r.errors[i][j]
}

// QuoteCount is the number of present (non-NaN) observations.
func (r RawOptionData) QuoteCount() int {
	n := 0
	for _, row := range r.values {
		for _, v := range row {
			if !math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

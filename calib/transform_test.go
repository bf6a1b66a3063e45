package calib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransformRoundTrips(t *testing.T) {
	tests := []struct {
		name   string
		tr     Transform
		values []float64
	}{
		{"positive", PositiveTransform{}, []float64{1e-6, 0.04, 0.5, 3.0}},
		{"beta interval", IntervalTransform{Lower: 0.0, Upper: 1.0}, []float64{0.01, 0.5, 0.99}},
		{"rho interval", IntervalTransform{Lower: -1.0, Upper: 1.0}, []float64{-0.95, -0.3, 0.0, 0.7}},
		{"identity", IdentityTransform{}, []float64{-2.0, 0.0, 5.0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, v := range tc.values {
				u := tc.tr.ToUnconstrained(v)
				require.InDelta(t, v, tc.tr.FromUnconstrained(u), 1e-12)
			}
		})
	}
}

func TestIntervalTransformStaysInDomain(t *testing.T) {
	tr := IntervalTransform{Lower: -1.0, Upper: 1.0}
	for _, u := range []float64{-50.0, -1.0, 0.0, 3.0, 50.0} {
		v := tr.FromUnconstrained(u)
		require.Greater(t, v, -1.0)
		require.Less(t, v, 1.0)
	}
}

func TestPositiveTransformStaysPositive(t *testing.T) {
	tr := PositiveTransform{}
	for _, u := range []float64{-30.0, -1.0, 0.0, 2.0} {
		require.Greater(t, tr.FromUnconstrained(u), 0.0)
	}
}

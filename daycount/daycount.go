package daycount

import (
	"time"
)

// Convention identifies a day count convention for year fraction calculations.
type Convention string

const (
	ActActISDA Convention = "ACT/ACT"
	Act365F    Convention = "ACT/365F"
	Act360     Convention = "ACT/360"
	Thirty360E Convention = "30E/360"
)

// YearFraction computes the year fraction between two instants under the given
// convention. A negative fraction is returned when end precedes start, so the
// result is antisymmetric in its arguments.
func YearFraction(start, end time.Time, convention Convention) float64 {
	if end.Before(start) {
		return -YearFraction(end, start, convention)
	}
	switch convention {
	case Act360:
		return end.Sub(start).Hours() / 24.0 / 360.0
	case Thirty360E:
		// 30E/360 Eurobond basis: day-of-month capped at 30 on both legs.
		d1 := start.Day()
		if d1 > 30 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 > 30 {
			d2 = 30
		}
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	case ActActISDA:
		return actActISDA(start, end)
	default:
		// ACT/365F is the curve time axis convention used by QuantLib and
		// Bloomberg, and the fallback here.
		return end.Sub(start).Hours() / 24.0 / 365.0
	}
}

// RelativeTime is the year fraction from the valuation instant to t. It is
// exactly zero at the valuation instant and changes sign across it.
func RelativeTime(valuation, t time.Time, convention Convention) float64 {
	if t.Equal(valuation) {
		return 0.0
	}
	return YearFraction(valuation, t, convention)
}

// actActISDA splits the accrual period at calendar year boundaries and accrues
// each slice over the actual length of its year (365 or 366 days).
func actActISDA(start, end time.Time) float64 {
	y1, y2 := start.Year(), end.Year()
	if y1 == y2 {
		return end.Sub(start).Hours() / 24.0 / yearDays(y1)
	}
	firstEnd := time.Date(y1+1, time.January, 1, 0, 0, 0, 0, start.Location())
	lastStart := time.Date(y2, time.January, 1, 0, 0, 0, 0, end.Location())
	out := firstEnd.Sub(start).Hours() / 24.0 / yearDays(y1)
	out += float64(y2 - y1 - 1)
	out += end.Sub(lastStart).Hours() / 24.0 / yearDays(y2)
	return out
}

func yearDays(y int) float64 {
	if (y%4 == 0 && y%100 != 0) || y%400 == 0 {
		return 366.0
	}
	return 365.0
}

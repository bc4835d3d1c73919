package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// Interval periodicity of deposits and DCA buys.
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// ParseInterval accepts the long names as well as the short 1d/1w/1mn/1y forms.
func ParseInterval(s string) (Interval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "1d", "day":
		return IntervalDaily, nil
	case "weekly", "1w", "week":
		return IntervalWeekly, nil
	case "monthly", "1mn", "1m", "month":
		return IntervalMonthly, nil
	case "yearly", "1y", "year":
		return IntervalYearly, nil
	default:
		return "", errors.Wrapf(ErrInvalidInterval, "%q", s)
	}
}

// Days returns the approximate length of the interval in days.
func (i Interval) Days() int {
	switch i {
	case IntervalWeekly:
		return 7
	case IntervalMonthly:
		return 30
	case IntervalYearly:
		return 365
	default:
		return 1
	}
}

// Valid reports whether i is one of the known intervals.
func (i Interval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}

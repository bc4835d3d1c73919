package sweep

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dcabench/internal/domain"
)

const day = 24 * time.Hour

// Window backtest date range, both ends inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// RandomWindow picks a window of the given length uniformly inside [start, end].
func RandomWindow(start, end time.Time, days int, rnd *rand.Rand) (Window, error) {
	if !start.Before(end) {
		return Window{}, errors.Wrap(domain.ErrInvalidRange, "start must be before end")
	}
	if days <= 0 {
		return Window{}, errors.Wrapf(domain.ErrInvalidRange, "window length must be positive, got %d days", days)
	}

	length := time.Duration(days) * day
	maxStart := end.Add(-length)
	if maxStart.Before(start) {
		return Window{}, errors.Wrapf(domain.ErrInvalidRange, "window of %d days does not fit between %s and %s",
			days, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	offset := time.Duration(rnd.Int63n(int64(maxStart.Sub(start)) + 1))
	from := start.Add(offset)
	return Window{Start: from, End: from.Add(length)}, nil
}

// RandomWindows returns n random windows.
func RandomWindows(start, end time.Time, days, n int, rnd *rand.Rand) ([]Window, error) {
	windows := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		w, err := RandomWindow(start, end, days, rnd)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// Package marketdata loads historical candles and annotates them for backtests.
package marketdata

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dcabench/internal/domain"
)

// Source provides daily candles for a pair.
type Source interface {
	// Klines returns candles with open time in [start, end], in any order.
	Klines(ctx context.Context, pair domain.Pair, start, end time.Time) ([]domain.PriceTick, error)
}

// LoadSeries fetches [start-lookbackDays, end] from src and annotates it.
// Candles before start become prefetch ticks.
func LoadSeries(ctx context.Context, src Source, pair domain.Pair, start, end time.Time, lookbackDays int) (*domain.Series, error) {
	if !start.Before(end) {
		return nil, errors.Wrapf(domain.ErrInvalidRange, "start %s is not before end %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	if lookbackDays < 0 {
		lookbackDays = 0
	}

	from := start.AddDate(0, 0, -lookbackDays)
	ticks, err := src.Klines(ctx, pair, from, end)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load candles for %s", pair)
	}
	if len(ticks) == 0 {
		return nil, errors.Errorf("no candles for %s between %s and %s",
			pair, from.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	return domain.NewSeries(Annotate(ticks, start)), nil
}

// Annotate sorts ticks by time and sets the periodicity flags: a tick opens
// a day, ISO week, month or year when the previous tick belongs to another
// one. Ticks before start are marked as prefetch. Times are compared in UTC.
func Annotate(ticks []domain.PriceTick, start time.Time) []domain.PriceTick {
	out := make([]domain.PriceTick, len(ticks))
	copy(out, ticks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	for i := range out {
		cur := out[i].Time.UTC()
		out[i].IsPrefetch = cur.Before(start)

		if i == 0 {
			out[i].IsDaily, out[i].IsWeekly, out[i].IsMonthly, out[i].IsYearly = true, true, true, true
			continue
		}

		prev := out[i-1].Time.UTC()
		py, pw := prev.ISOWeek()
		cy, cw := cur.ISOWeek()

		out[i].IsYearly = cur.Year() != prev.Year()
		out[i].IsMonthly = out[i].IsYearly || cur.Month() != prev.Month()
		out[i].IsWeekly = cy != py || cw != pw
		out[i].IsDaily = out[i].IsMonthly || cur.YearDay() != prev.YearDay()
	}

	return out
}

func filterWindow(ticks []domain.PriceTick, start, end time.Time) []domain.PriceTick {
	out := make([]domain.PriceTick, 0, len(ticks))
	for _, t := range ticks {
		if t.Time.Before(start) || t.Time.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out
}

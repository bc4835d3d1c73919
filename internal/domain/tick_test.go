package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func ticks(closes ...string) []PriceTick {
	out := make([]PriceTick, len(closes))
	for i, c := range closes {
		out[i] = PriceTick{Time: day(i), Open: d(c), High: d(c), Low: d(c), Close: d(c), IsDaily: true}
	}
	return out
}

func TestPriceTick_Matches(t *testing.T) {
	tick := PriceTick{IsDaily: true, IsMonthly: true}
	assert.True(t, tick.Matches(IntervalDaily))
	assert.False(t, tick.Matches(IntervalWeekly))
	assert.True(t, tick.Matches(IntervalMonthly))
	assert.False(t, tick.Matches(IntervalYearly))
	assert.False(t, tick.Matches(Interval("hourly")))
}

func TestSeries_CopiesInput(t *testing.T) {
	in := ticks("1", "2")
	s := NewSeries(in)
	in[0].Close = d("100")

	assert.True(t, s.Ticks()[0].Close.Equal(d("1")))
	assert.Equal(t, 2, s.Len())
}

func TestSeries_Fingerprint(t *testing.T) {
	a := NewSeries(ticks("1", "2", "3"))
	b := NewSeries(ticks("1", "2", "3"))
	c := NewSeries(ticks("1", "2", "4"))

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	prefetched := ticks("1", "2", "3")
	prefetched[0].IsPrefetch = true
	assert.NotEqual(t, a.Fingerprint(), NewSeries(prefetched).Fingerprint())

	var empty *Series
	assert.Equal(t, "series:0:0", empty.Fingerprint())
	assert.Equal(t, 0, empty.Len())
}

func TestSeries_Last(t *testing.T) {
	in := ticks("1", "2", "3")
	in[0].IsPrefetch = true
	s := NewSeries(in)

	tick, ok := s.Last(day(1).Add(time.Hour))
	require.True(t, ok)
	assert.True(t, tick.Close.Equal(d("2")))

	_, ok = s.Last(day(0))
	assert.False(t, ok, "prefetch ticks are never the last price")

	tick, ok = s.Last(day(10))
	require.True(t, ok)
	assert.True(t, tick.Close.Equal(d("3")))
}

func TestSeries_Window(t *testing.T) {
	s := NewSeries(ticks("1", "2", "3", "4", "5", "6"))

	w := s.Window(day(3), day(4), 2)
	require.Equal(t, 4, w.Len())
	assert.True(t, w.Ticks()[0].IsPrefetch)
	assert.True(t, w.Ticks()[1].IsPrefetch)
	assert.False(t, w.Ticks()[2].IsPrefetch)
	assert.True(t, w.Ticks()[3].Close.Equal(d("5")))

	start, end, ok := w.Bounds()
	require.True(t, ok)
	assert.Equal(t, day(3), start)
	assert.Equal(t, day(4), end)

	assert.False(t, s.Ticks()[1].IsPrefetch, "source series is not modified")

	w = s.Window(day(1), day(2), 10)
	assert.Equal(t, 3, w.Len())

	w = s.Window(day(20), day(30), 2)
	_, _, ok = w.Bounds()
	assert.False(t, ok)
}

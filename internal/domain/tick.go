package domain

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// PriceTick candlestick annotated with periodicity flags.
type PriceTick struct {
	Time  time.Time
	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal

	IsDaily   bool
	IsWeekly  bool
	IsMonthly bool
	IsYearly  bool
	// IsPrefetch marks lookback candles: they feed read-only calculations
	// and never trigger deposits, buys or sells.
	IsPrefetch bool
}

// Matches reports whether the tick opens a period of the given interval.
func (t PriceTick) Matches(interval Interval) bool {
	switch interval {
	case IntervalDaily:
		return t.IsDaily
	case IntervalWeekly:
		return t.IsWeekly
	case IntervalMonthly:
		return t.IsMonthly
	case IntervalYearly:
		return t.IsYearly
	default:
		return false
	}
}

// Series ordered, immutable price ticks with a content fingerprint.
type Series struct {
	ticks       []PriceTick
	fingerprint uint64
}

// NewSeries copies ticks and fingerprints them once.
func NewSeries(ticks []PriceTick) *Series {
	copied := make([]PriceTick, len(ticks))
	copy(copied, ticks)

	h := xxhash.New()
	var buf [8]byte
	for _, t := range copied {
		binary.LittleEndian.PutUint64(buf[:], uint64(t.Time.UnixMilli()))
		_, _ = h.Write(buf[:])
		_, _ = h.WriteString(t.Open.String())
		_, _ = h.WriteString(t.High.String())
		_, _ = h.WriteString(t.Low.String())
		_, _ = h.WriteString(t.Close.String())
		flags := byte(0)
		for i, f := range []bool{t.IsDaily, t.IsWeekly, t.IsMonthly, t.IsYearly, t.IsPrefetch} {
			if f {
				flags |= 1 << i
			}
		}
		_, _ = h.Write([]byte{flags})
	}

	return &Series{ticks: copied, fingerprint: h.Sum64()}
}

// Ticks returns the ticks. Callers must not modify the slice.
func (s *Series) Ticks() []PriceTick {
	if s == nil {
		return nil
	}
	return s.ticks
}

// Len returns the number of ticks.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ticks)
}

// Fingerprint identifies the series content in cache keys.
func (s *Series) Fingerprint() string {
	if s == nil {
		return "series:0:0"
	}
	return fmt.Sprintf("series:%d:%x", len(s.ticks), s.fingerprint)
}

// Last returns the latest tick that is not a prefetch tick and is not after asOf.
func (s *Series) Last(asOf time.Time) (PriceTick, bool) {
	for i := s.Len() - 1; i >= 0; i-- {
		t := s.ticks[i]
		if t.IsPrefetch || t.Time.After(asOf) {
			continue
		}
		return t, true
	}
	return PriceTick{}, false
}

// Window returns the ticks between start and end inclusive, preceded by at most
// lookback earlier ticks re-marked as prefetch.
func (s *Series) Window(start, end time.Time, lookback int) *Series {
	ticks := s.Ticks()
	first := len(ticks)
	for i, t := range ticks {
		if !t.Time.Before(start) {
			first = i
			break
		}
	}

	from := first - lookback
	if from < 0 {
		from = 0
	}

	out := make([]PriceTick, 0, len(ticks)-from)
	for i := from; i < len(ticks); i++ {
		t := ticks[i]
		if t.Time.After(end) {
			break
		}
		if i < first {
			t.IsPrefetch = true
		}
		out = append(out, t)
	}
	return NewSeries(out)
}

// Bounds returns the time of the first and last non-prefetch ticks.
func (s *Series) Bounds() (start, end time.Time, ok bool) {
	for _, t := range s.Ticks() {
		if t.IsPrefetch {
			continue
		}
		if !ok {
			start = t.Time
			ok = true
		}
		end = t.Time
	}
	return start, end, ok
}

package sweep

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
	"github.com/vadiminshakov/dcabench/internal/services/cache"
	"github.com/vadiminshakov/dcabench/internal/services/marketdata"
	"github.com/vadiminshakov/dcabench/internal/services/portfolio"
	"github.com/vadiminshakov/dcabench/internal/services/strategy"
	"github.com/vadiminshakov/dcabench/internal/services/strategy/dca"
	"github.com/vadiminshakov/dcabench/internal/services/strategy/improved"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func flatSeries(days int, price string) *domain.Series {
	ticks := make([]domain.PriceTick, days)
	p := decimal.RequireFromString(price)
	for i := range ticks {
		ticks[i] = domain.PriceTick{Time: t0.AddDate(0, 0, i), Open: p, High: p, Low: p, Close: p}
	}
	return domain.NewSeries(marketdata.Annotate(ticks, t0))
}

func baseLedger(t *testing.T) *ledger.Context {
	t.Helper()
	lc, err := ledger.New(ledger.Settings{
		Pair:            domain.Pair{From: "BTC", To: "USD"},
		Fee:             decimal.Zero,
		DepositValue:    decimal.NewFromInt(100),
		DepositInterval: domain.IntervalDaily,
		DCAInterval:     domain.IntervalDaily,
	})
	require.NoError(t, err)
	return lc
}

func TestRandomWindow(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	start, end := t0, t0.AddDate(0, 0, 100)

	for i := 0; i < 50; i++ {
		w, err := RandomWindow(start, end, 30, rnd)
		require.NoError(t, err)
		assert.False(t, w.Start.Before(start))
		assert.False(t, w.End.After(end))
		assert.Equal(t, 30*day, w.End.Sub(w.Start))
	}

	w, err := RandomWindow(start, end, 100, rnd)
	require.NoError(t, err)
	assert.Equal(t, start, w.Start)
}

func TestRandomWindow_Errors(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	_, err := RandomWindow(t0, t0, 1, rnd)
	require.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = RandomWindow(t0, t0.AddDate(0, 0, 10), 11, rnd)
	require.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = RandomWindow(t0, t0.AddDate(0, 0, 10), 0, rnd)
	require.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestSweeper_Run(t *testing.T) {
	q := portfolio.NewQueries(cache.New(), 0)
	series := flatSeries(60, "100")
	base := baseLedger(t)

	windows, err := RandomWindows(t0.AddDate(0, 0, 5), t0.AddDate(0, 0, 59), 10, 6, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	var finished atomic.Int64
	s := New(q, WithBatchSize(4), WithLookback(3), WithProgress(func() { finished.Add(1) }))

	outcomes, err := s.Run(context.Background(), dca.New(q, nil), base, series, windows)
	require.NoError(t, err)
	require.Len(t, outcomes, len(windows))
	assert.Equal(t, int64(len(windows)), finished.Load())

	for i, o := range outcomes {
		assert.Equal(t, windows[i], o.Window)
		assert.Positive(t, o.Metrics.BuyCount)
		assert.True(t, o.Metrics.DepositedUSD.Equal(decimal.NewFromInt(int64(100*o.Metrics.BuyCount))))
		assert.True(t, o.Metrics.ProfitUSD.IsZero())
	}

	assert.Empty(t, base.Activities())
	assert.Zero(t, q.Cache().Len())
}

func TestSweeper_RunWindowWithoutData(t *testing.T) {
	q := portfolio.NewQueries(cache.New(), 0)
	s := New(q)

	windows := []Window{{Start: t0.AddDate(1, 0, 0), End: t0.AddDate(1, 0, 10)}}
	_, err := s.Run(context.Background(), dca.New(q, nil), baseLedger(t), flatSeries(10, "100"), windows)
	require.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestSummarize(t *testing.T) {
	outcomes := []Outcome{
		{Metrics: portfolio.Metrics{ProfitUSD: decimal.NewFromInt(10), BuyCount: 1}},
		{Metrics: portfolio.Metrics{ProfitUSD: decimal.NewFromInt(30), BuyCount: 2}},
	}

	sum := Summarize(outcomes)
	assert.Equal(t, 2, sum.Runs)
	assert.True(t, sum.ProfitUSD.Equal(decimal.NewFromInt(20)))
	assert.True(t, sum.BuyCount.Equal(decimal.RequireFromString("1.5")))

	assert.Zero(t, Summarize(nil).Runs)
}

func TestSweeper_Compare(t *testing.T) {
	q := portfolio.NewQueries(cache.New(), 0)
	series := flatSeries(40, "100")
	windows, err := RandomWindows(t0, t0.AddDate(0, 0, 39), 7, 3, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	challenger, err := improved.New(domain.DefaultStrategyParams(), q, nil)
	require.NoError(t, err)

	cmp, err := New(q, WithLookback(0)).Compare(context.Background(), dca.New(q, nil), challenger, baseLedger(t), series, windows)
	require.NoError(t, err)
	assert.Equal(t, dca.Name, cmp.BaselineName)
	assert.Equal(t, improved.Name, cmp.ChallengerName)
	assert.Equal(t, 3, cmp.Baseline.Runs)
	assert.Equal(t, 3, cmp.Challenger.Runs)
	assert.True(t, cmp.Baseline.DepositedUSD.Equal(cmp.Challenger.DepositedUSD))
}

func TestSweeper_Search(t *testing.T) {
	q := portfolio.NewQueries(cache.New(), 0)
	series := flatSeries(40, "100")
	factory := func(p domain.StrategyParams) (strategy.Runner, error) {
		return improved.New(p, q, nil)
	}

	cfg := SearchConfig{
		Iterations:       3,
		RunsPerIteration: 2,
		Days:             10,
		Start:            t0,
		End:              t0.AddDate(0, 0, 39),
		Rand:             rand.New(rand.NewSource(11)),
	}
	candidates, err := New(q).Search(context.Background(), cfg, factory, baseLedger(t), series)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	for i := 1; i < len(candidates); i++ {
		assert.True(t, candidates[i-1].Summary.ProfitUSD.GreaterThanOrEqual(candidates[i].Summary.ProfitUSD))
	}

	cfg.Iterations = 0
	_, err = New(q).Search(context.Background(), cfg, factory, baseLedger(t), series)
	require.Error(t, err)
}

func TestRandomParams_Valid(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		p := RandomParams(rnd, decimal.NewFromInt(100))
		require.NoError(t, p.Validate())
		assert.True(t, p.RatioUnderToBuy.GreaterThanOrEqual(p.RatioOverToSell))
	}
}

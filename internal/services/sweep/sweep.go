// Package sweep runs a strategy over many date windows in parallel and
// aggregates the outcome.
package sweep

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
	"github.com/vadiminshakov/dcabench/internal/services/portfolio"
	"github.com/vadiminshakov/dcabench/internal/services/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize = 8
	defaultLookback  = 30
	defaultCacheTTL  = 10 * time.Minute
)

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithBatchSize sets how many runs execute concurrently.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLookback sets the number of prefetch ticks prepended to every window.
func WithLookback(n int) Option {
	return func(s *Sweeper) {
		if n >= 0 {
			s.lookback = n
		}
	}
}

// WithCacheTTL sets the age after which cached results are purged between batches.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Sweeper) {
		s.cacheTTL = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.l = l
		}
	}
}

// WithProgress registers a callback invoked after every finished run.
func WithProgress(fn func()) Option {
	return func(s *Sweeper) {
		s.progress = fn
	}
}

// Sweeper runs strategies on clones of a base ledger.
type Sweeper struct {
	q         *portfolio.Queries
	l         *zap.Logger
	batchSize int
	lookback  int
	cacheTTL  time.Duration
	progress  func()
}

// New creates a sweeper sharing q between runs.
func New(q *portfolio.Queries, opts ...Option) *Sweeper {
	s := &Sweeper{
		q:         q,
		l:         zap.NewNop(),
		batchSize: defaultBatchSize,
		lookback:  defaultLookback,
		cacheTTL:  defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome metrics of one run.
type Outcome struct {
	Window  Window
	Metrics portfolio.Metrics
}

// Run executes runner on every window, each on its own clone of base.
// Outcomes keep the order of windows.
func (s *Sweeper) Run(ctx context.Context, runner strategy.Runner, base *ledger.Context, series *domain.Series, windows []Window) ([]Outcome, error) {
	outcomes := make([]Outcome, len(windows))

	for from := 0; from < len(windows); from += s.batchSize {
		to := min(from+s.batchSize, len(windows))

		g, gctx := errgroup.WithContext(ctx)
		for i := from; i < to; i++ {
			g.Go(func() error {
				out, err := s.runOne(gctx, runner, base, series, windows[i])
				if err != nil {
					return errors.Wrapf(err, "%s run %d", runner.Name(), i)
				}
				outcomes[i] = out
				if s.progress != nil {
					s.progress()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		purged := s.q.Cache().ClearExpired(s.cacheTTL)
		s.l.Debug("batch finished",
			zap.String("strategy", runner.Name()),
			zap.Int("runs", to-from),
			zap.Int("purged_cache_entries", purged))
	}

	return outcomes, nil
}

func (s *Sweeper) runOne(ctx context.Context, runner strategy.Runner, base *ledger.Context, series *domain.Series, w Window) (Outcome, error) {
	sub := series.Window(w.Start, w.End, s.lookback)
	_, end, ok := sub.Bounds()
	if !ok {
		return Outcome{}, errors.Wrapf(domain.ErrInvalidRange, "no candles between %s and %s",
			w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
	}

	lc := base.Clone()
	res, err := runner.Run(ctx, lc, sub)
	if err != nil {
		return Outcome{}, err
	}

	metrics := portfolio.ComputeMetrics(s.q, res.Context, res.Series, end)
	s.q.Invalidate(res.Context)

	return Outcome{Window: w, Metrics: metrics}, nil
}

// Summary averaged metrics of several runs.
type Summary struct {
	Runs          int
	BalanceUSD    decimal.Decimal
	DepositedUSD  decimal.Decimal
	FeesUSD       decimal.Decimal
	AssetToUSD    decimal.Decimal
	TotalUSD      decimal.Decimal
	ProfitUSD     decimal.Decimal
	ProfitPercent decimal.Decimal
	BuyCount      decimal.Decimal
	SellCount     decimal.Decimal
	Drawdown      decimal.Decimal
	ActualPrice   decimal.Decimal
}

// Summarize averages outcomes. An empty input gives a zero summary.
func Summarize(outcomes []Outcome) Summary {
	sum := Summary{Runs: len(outcomes)}
	if len(outcomes) == 0 {
		return sum
	}

	for _, o := range outcomes {
		m := o.Metrics
		sum.BalanceUSD = sum.BalanceUSD.Add(m.BalanceUSD)
		sum.DepositedUSD = sum.DepositedUSD.Add(m.DepositedUSD)
		sum.FeesUSD = sum.FeesUSD.Add(m.FeesUSD)
		sum.AssetToUSD = sum.AssetToUSD.Add(m.AssetToUSD)
		sum.TotalUSD = sum.TotalUSD.Add(m.TotalUSD)
		sum.ProfitUSD = sum.ProfitUSD.Add(m.ProfitUSD)
		sum.ProfitPercent = sum.ProfitPercent.Add(m.ProfitPercent)
		sum.BuyCount = sum.BuyCount.Add(decimal.NewFromInt(int64(m.BuyCount)))
		sum.SellCount = sum.SellCount.Add(decimal.NewFromInt(int64(m.SellCount)))
		sum.Drawdown = sum.Drawdown.Add(m.Drawdown)
		sum.ActualPrice = sum.ActualPrice.Add(m.ActualPrice)
	}

	n := decimal.NewFromInt(int64(len(outcomes)))
	for _, f := range []*decimal.Decimal{
		&sum.BalanceUSD, &sum.DepositedUSD, &sum.FeesUSD, &sum.AssetToUSD, &sum.TotalUSD,
		&sum.ProfitUSD, &sum.ProfitPercent, &sum.BuyCount, &sum.SellCount, &sum.Drawdown, &sum.ActualPrice,
	} {
		*f = f.Div(n)
	}

	return sum
}

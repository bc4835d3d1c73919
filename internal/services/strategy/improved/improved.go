// Package improved implements DCA Improved: streak-sized buys under the cost
// basis and staged sells above it.
package improved

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
	"github.com/vadiminshakov/dcabench/internal/services/portfolio"
	"github.com/vadiminshakov/dcabench/internal/services/strategy"
	"github.com/vadiminshakov/dcabench/pkg/indicators"
	"go.uber.org/zap"
)

// Name strategy name used in reports.
const Name = "dca_improved"

// Strategy DCA Improved.
type Strategy struct {
	params domain.StrategyParams
	q      *portfolio.Queries
	l      *zap.Logger
}

// New validates params and returns the strategy.
func New(params domain.StrategyParams, q *portfolio.Queries, l *zap.Logger) (*Strategy, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid strategy params")
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Strategy{params: params, q: q, l: l}, nil
}

// Name returns the strategy name.
func (s *Strategy) Name() string {
	return Name
}

// Params returns the strategy parameters.
func (s *Strategy) Params() domain.StrategyParams {
	return s.params
}

// Run replays series against lc. Prefetch ticks only feed the trend filter.
func (s *Strategy) Run(ctx context.Context, lc *ledger.Context, series *domain.Series) (strategy.Result, error) {
	release := s.q.Watch(lc)
	defer release()

	settings := lc.Settings()
	ticks := series.Ticks()

	closes := make([]decimal.Decimal, len(ticks))
	for i, t := range ticks {
		closes[i] = t.Close
	}

	var (
		trend   []decimal.Decimal
		trendOK []bool
	)
	if s.params.TrendPeriod > 0 {
		var err error
		trend, trendOK, err = indicators.AlignedEMA(closes, s.params.TrendPeriod)
		if err != nil {
			return strategy.Result{}, errors.Wrap(err, "trend filter")
		}
	}

	for i, tick := range ticks {
		if err := ctx.Err(); err != nil {
			return strategy.Result{}, err
		}
		if tick.IsPrefetch {
			continue
		}

		if tick.Matches(settings.DepositInterval) {
			if _, err := lc.Apply(domain.DepositIntent(settings.DepositValue, tick.Time)); err != nil {
				return strategy.Result{}, errors.Wrapf(err, "deposit at %s", tick.Time)
			}
		}

		state := s.state(lc, tick)
		if trend != nil {
			state.Trend, state.HasTrend = trend[i], trendOK[i]
		}

		decision := Decide(state, s.params)
		if decision.Intent == nil {
			continue
		}

		executed, err := lc.Apply(*decision.Intent)
		if errors.Is(err, domain.ErrTradeTooSmall) {
			s.l.Debug("decision skipped, trade below asset precision",
				zap.String("context_id", lc.ID()),
				zap.Time("time", tick.Time),
				zap.String("intent", decision.Intent.String()))
			continue
		}
		if err != nil {
			return strategy.Result{}, errors.Wrapf(err, "%s at %s", decision.Intent.Kind, tick.Time)
		}

		s.l.Debug("decision executed",
			zap.String("context_id", lc.ID()),
			zap.Time("time", tick.Time),
			zap.String("intent", executed.String()),
			zap.String("avg_cost", state.AverageCost.String()),
			zap.String("buy_threshold", decision.BuyThreshold.String()),
			zap.String("sell_threshold", decision.SellThreshold.String()),
			zap.Int("buy_streak", state.BuyStreak),
			zap.Int("sell_streak", state.SellStreak),
			zap.String("variation", indicators.TrailingVariation(closes, i, s.params.TrendPeriod).String()))
	}

	s.l.Debug("dca improved run finished",
		zap.String("context_id", lc.ID()),
		zap.Int("transactions", len(lc.Transactions())),
		zap.Int("activities", len(lc.Activities())))

	return strategy.Result{Context: lc, Series: series}, nil
}

func (s *Strategy) state(lc *ledger.Context, tick domain.PriceTick) State {
	at := tick.Time
	buys, sells := s.q.Streaks(lc, at)
	lastSell, hasLastSell := s.q.LastTransaction(lc, at, domain.Sell)

	return State{
		Tick:          tick,
		DCATick:       tick.Matches(lc.Settings().DCAInterval),
		AverageCost:   s.q.AverageCost(lc, at),
		Holdings:      s.q.AssetHoldings(lc, at),
		Balance:       s.q.USDBalance(lc, at),
		BuyStreak:     buys,
		SellStreak:    sells,
		LastSellPrice: lastSell.Price,
		HasLastSell:   hasLastSell,
	}
}

// Package dca implements plain Dollar-Cost Averaging: deposit on schedule and
// spend the whole cash balance on every DCA tick.
package dca

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
	"github.com/vadiminshakov/dcabench/internal/services/portfolio"
	"github.com/vadiminshakov/dcabench/internal/services/strategy"
	"go.uber.org/zap"
)

// Name strategy name used in reports.
const Name = "dca"

// Strategy plain DCA.
type Strategy struct {
	q *portfolio.Queries
	l *zap.Logger
}

// New returns a plain DCA strategy.
func New(q *portfolio.Queries, l *zap.Logger) *Strategy {
	if l == nil {
		l = zap.NewNop()
	}
	return &Strategy{q: q, l: l}
}

// Name returns the strategy name.
func (s *Strategy) Name() string {
	return Name
}

// Run replays series against lc. Prefetch ticks are skipped.
func (s *Strategy) Run(ctx context.Context, lc *ledger.Context, series *domain.Series) (strategy.Result, error) {
	release := s.q.Watch(lc)
	defer release()

	settings := lc.Settings()

	for _, tick := range series.Ticks() {
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

		if !tick.Matches(settings.DCAInterval) {
			continue
		}

		balance := s.q.USDBalance(lc, tick.Time)
		if !balance.IsPositive() {
			s.l.Debug("dca tick skipped, no balance",
				zap.String("context_id", lc.ID()),
				zap.Time("time", tick.Time))
			continue
		}

		_, err := lc.Apply(domain.BuyIntent(balance, tick.Close, tick.Time, "dca_interval"))
		if errors.Is(err, domain.ErrTradeTooSmall) {
			s.l.Debug("dca tick skipped, balance below asset precision",
				zap.String("context_id", lc.ID()),
				zap.Time("time", tick.Time),
				zap.String("balance", balance.String()))
			continue
		}
		if err != nil {
			return strategy.Result{}, errors.Wrapf(err, "buy at %s", tick.Time)
		}
	}

	s.l.Debug("dca run finished",
		zap.String("context_id", lc.ID()),
		zap.Int("transactions", len(lc.Transactions())),
		zap.Int("activities", len(lc.Activities())))

	return strategy.Result{Context: lc, Series: series}, nil
}

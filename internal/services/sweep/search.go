package sweep

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
	"github.com/vadiminshakov/dcabench/internal/services/strategy"
	"go.uber.org/zap"
)

// RunnerFactory builds a strategy for a parameter set.
type RunnerFactory func(params domain.StrategyParams) (strategy.Runner, error)

// SearchConfig random parameter search settings.
type SearchConfig struct {
	Iterations       int
	RunsPerIteration int
	Days             int
	Start, End       time.Time
	Rand             *rand.Rand
}

// Candidate parameter set with its average outcome.
type Candidate struct {
	Params  domain.StrategyParams
	Summary Summary
}

// Search evaluates random parameter sets, each on its own random windows,
// and returns candidates sorted by average profit, best first.
func (s *Sweeper) Search(ctx context.Context, cfg SearchConfig, factory RunnerFactory, base *ledger.Context, series *domain.Series) ([]Candidate, error) {
	if cfg.Iterations <= 0 || cfg.RunsPerIteration <= 0 {
		return nil, errors.Errorf("iterations and runs per iteration must be positive, got %d and %d",
			cfg.Iterations, cfg.RunsPerIteration)
	}
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	candidates := make([]Candidate, 0, cfg.Iterations)
	for i := 0; i < cfg.Iterations; i++ {
		params := RandomParams(rnd, base.Settings().DepositValue)

		runner, err := factory(params)
		if err != nil {
			return nil, errors.Wrapf(err, "iteration %d", i)
		}

		windows, err := RandomWindows(cfg.Start, cfg.End, cfg.Days, cfg.RunsPerIteration, rnd)
		if err != nil {
			return nil, err
		}

		outcomes, err := s.Run(ctx, runner, base, series, windows)
		if err != nil {
			return nil, errors.Wrapf(err, "iteration %d", i)
		}

		c := Candidate{Params: params, Summary: Summarize(outcomes)}
		candidates = append(candidates, c)

		s.l.Info("search iteration finished",
			zap.Int("iteration", i),
			zap.String("ratio_under_to_buy", params.RatioUnderToBuy.StringFixed(3)),
			zap.String("ratio_over_to_sell", params.RatioOverToSell.StringFixed(3)),
			zap.String("average_profit_usd", c.Summary.ProfitUSD.StringFixed(2)))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Summary.ProfitUSD.GreaterThan(candidates[j].Summary.ProfitUSD)
	})

	return candidates, nil
}

// RandomParams draws a parameter set: ratioOverToSell in [1,3),
// ratioUnderToBuy in [max(1, ratioOverToSell), +4), a fixed sell ratio in
// [0.01,1) and a scaled buy ratio base in [0.05,2.5), step in [1,3), floored
// at minBuyUSD.
func RandomParams(rnd *rand.Rand, minBuyUSD decimal.Decimal) domain.StrategyParams {
	over := rnd.Float64()*2 + 1
	under := rnd.Float64()*4 + max(1, over)
	sellRatio := rnd.Float64()*0.99 + 0.01
	buyBase := rnd.Float64()*2.45 + 0.05
	buyStep := rnd.Float64()*2 + 1

	return domain.StrategyParams{
		RatioUnderToBuy:   decimal.NewFromFloat(under),
		RatioOverToSell:   decimal.NewFromFloat(over),
		RatioBetweenSells: decimal.Zero,
		BuySizing: domain.SizingPolicy{
			Kind: domain.SizingScaled,
			Base: decimal.NewFromFloat(buyBase),
			Step: decimal.NewFromFloat(buyStep),
		},
		SellSizing: domain.FixedSizing(decimal.NewFromFloat(sellRatio)),
		MinBuyUSD:  minBuyUSD,
	}
}

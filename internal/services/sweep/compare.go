package sweep

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
	"github.com/vadiminshakov/dcabench/internal/services/strategy"
	"go.uber.org/zap"
)

// Comparison averaged outcomes of two strategies on the same windows.
type Comparison struct {
	BaselineName   string
	ChallengerName string
	Baseline       Summary
	Challenger     Summary
	Windows        []Window
}

// Compare runs baseline and challenger on identical windows.
func (s *Sweeper) Compare(ctx context.Context, baseline, challenger strategy.Runner, base *ledger.Context, series *domain.Series, windows []Window) (Comparison, error) {
	baseOut, err := s.Run(ctx, baseline, base, series, windows)
	if err != nil {
		return Comparison{}, errors.Wrapf(err, "run %s", baseline.Name())
	}
	challengeOut, err := s.Run(ctx, challenger, base, series, windows)
	if err != nil {
		return Comparison{}, errors.Wrapf(err, "run %s", challenger.Name())
	}

	cmp := Comparison{
		BaselineName:   baseline.Name(),
		ChallengerName: challenger.Name(),
		Baseline:       Summarize(baseOut),
		Challenger:     Summarize(challengeOut),
		Windows:        windows,
	}

	s.l.Info("comparison finished",
		zap.String("baseline", cmp.BaselineName),
		zap.String("challenger", cmp.ChallengerName),
		zap.Int("runs", len(windows)),
		zap.String("baseline_profit_percent", cmp.Baseline.ProfitPercent.StringFixed(2)),
		zap.String("challenger_profit_percent", cmp.Challenger.ProfitPercent.StringFixed(2)))

	return cmp, nil
}

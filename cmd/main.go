// Command dcabench backtests plain DCA and DCA Improved on daily candles.
//
// Usage:
//
//	dcabench --config config.yaml --mode dca|improved|compare|search
//	dcabench --mode setup
//
// Candles are read from a CSV file or fetched from Binance, Bybit or Hyperliquid.
// BINANCE_API_KEY and BINANCE_API_SECRET are optional for the public klines endpoint.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/vadiminshakov/dcabench/config"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
	"github.com/vadiminshakov/dcabench/internal/report"
	"github.com/vadiminshakov/dcabench/internal/services/cache"
	"github.com/vadiminshakov/dcabench/internal/services/marketdata"
	"github.com/vadiminshakov/dcabench/internal/services/portfolio"
	"github.com/vadiminshakov/dcabench/internal/services/strategy"
	"github.com/vadiminshakov/dcabench/internal/services/strategy/dca"
	"github.com/vadiminshakov/dcabench/internal/services/strategy/improved"
	"github.com/vadiminshakov/dcabench/internal/services/sweep"
	"github.com/vadiminshakov/dcabench/internal/setup"
	"github.com/vadiminshakov/dcabench/internal/storage/journal"
	"go.uber.org/zap"
)

const (
	cacheTTL      = 10 * time.Minute
	topCandidates = 10
)

func main() {
	cfg, opts, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if opts.Mode == config.ModeSetup {
		if err := setup.RunTUI(setup.DefaultPath); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Fatal("backtest failed", zap.Error(err))
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newSource(ctx context.Context, cfg config.Config, logger *zap.Logger) (marketdata.Source, error) {
	switch cfg.Source {
	case config.SourceBinance:
		return marketdata.NewBinanceSource(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"), logger), nil
	case config.SourceBybit:
		return marketdata.NewBybitSource(logger), nil
	case config.SourceHyperliquid:
		return marketdata.NewHyperliquidSource(ctx, marketdata.HyperliquidMainnetURL, logger)
	default:
		return marketdata.CSVSource{Path: cfg.DataFile}, nil
	}
}

func run(ctx context.Context, cfg config.Config, opts config.Options, logger *zap.Logger) error {
	src, err := newSource(ctx, cfg, logger)
	if err != nil {
		return err
	}

	series, err := marketdata.LoadSeries(ctx, src, cfg.Pair, cfg.Start, cfg.End, cfg.LookbackDays)
	if err != nil {
		return err
	}
	logger.Info("candles loaded",
		zap.String("pair", cfg.Pair.String()),
		zap.Int("ticks", series.Len()),
		zap.String("fingerprint", series.Fingerprint()))

	ledgerOpts := []ledger.Option{ledger.WithLogger(logger)}
	if cfg.JournalDir != "" {
		store, err := journal.NewWALStore(cfg.JournalDir)
		if err != nil {
			return err
		}
		defer store.Close()
		ledgerOpts = append(ledgerOpts, ledger.WithRecorder(store))
	}

	base, err := ledger.New(cfg.LedgerSettings(), ledgerOpts...)
	if err != nil {
		return err
	}

	q := portfolio.NewQueries(cache.New(), cacheTTL)

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))
	logger.Info("starting backtest", zap.String("mode", opts.Mode), zap.Int64("seed", seed))

	switch opts.Mode {
	case config.ModeDCA:
		return single(ctx, dca.New(q, logger), q, base, series)
	case config.ModeImproved:
		runner, err := improved.New(cfg.Strategy, q, logger)
		if err != nil {
			return err
		}
		return single(ctx, runner, q, base, series)
	case config.ModeCompare:
		return compare(ctx, cfg, opts, rnd, q, base, series, logger)
	case config.ModeSearch:
		return search(ctx, cfg, opts, rnd, q, base, series, logger)
	default:
		return fmt.Errorf("unsupported mode %q", opts.Mode)
	}
}

func single(ctx context.Context, runner strategy.Runner, q *portfolio.Queries, lc *ledger.Context, series *domain.Series) error {
	res, err := runner.Run(ctx, lc, series)
	if err != nil {
		return errors.Wrapf(err, "run %s", runner.Name())
	}

	_, end, ok := res.Series.Bounds()
	if !ok {
		return errors.Wrap(domain.ErrInvalidRange, "no candles in the configured range")
	}

	m := portfolio.ComputeMetrics(q, res.Context, res.Series, end)
	return report.Metrics(os.Stdout, fmt.Sprintf("%s %s", runner.Name(), lc.Settings().Pair), m)
}

func windowDays(cfg config.Config, opts config.Options) int {
	if opts.Days > 0 {
		return opts.Days
	}
	return int(cfg.End.Sub(cfg.Start) / (24 * time.Hour))
}

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func newSweeper(cfg config.Config, opts config.Options, q *portfolio.Queries, bar *progressbar.ProgressBar, logger *zap.Logger) *sweep.Sweeper {
	return sweep.New(q,
		sweep.WithBatchSize(opts.Batch),
		sweep.WithLookback(cfg.LookbackDays),
		sweep.WithCacheTTL(cacheTTL),
		sweep.WithLogger(logger),
		sweep.WithProgress(func() { _ = bar.Add(1) }))
}

func compare(ctx context.Context, cfg config.Config, opts config.Options, rnd *rand.Rand,
	q *portfolio.Queries, base *ledger.Context, series *domain.Series, logger *zap.Logger) error {
	windows, err := sweep.RandomWindows(cfg.Start, cfg.End, windowDays(cfg, opts), opts.Runs, rnd)
	if err != nil {
		return err
	}

	challenger, err := improved.New(cfg.Strategy, q, logger)
	if err != nil {
		return err
	}

	bar := newBar(2*len(windows), "Comparing strategies...")
	cmp, err := newSweeper(cfg, opts, q, bar, logger).Compare(ctx, dca.New(q, logger), challenger, base, series, windows)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	return report.Comparison(os.Stdout, cmp)
}

func search(ctx context.Context, cfg config.Config, opts config.Options, rnd *rand.Rand,
	q *portfolio.Queries, base *ledger.Context, series *domain.Series, logger *zap.Logger) error {
	factory := func(params domain.StrategyParams) (strategy.Runner, error) {
		params.TrendPeriod = cfg.Strategy.TrendPeriod
		return improved.New(params, q, logger)
	}

	bar := newBar(opts.Iterations*opts.Runs, "Searching parameters...")
	candidates, err := newSweeper(cfg, opts, q, bar, logger).Search(ctx, sweep.SearchConfig{
		Iterations:       opts.Iterations,
		RunsPerIteration: opts.Runs,
		Days:             windowDays(cfg, opts),
		Start:            cfg.Start,
		End:              cfg.End,
		Rand:             rnd,
	}, factory, base, series)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	return report.Candidates(os.Stdout, candidates, topCandidates)
}

// Package config loads backtest settings from a YAML file and command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
	"gopkg.in/yaml.v3"
)

// Candle sources.
const (
	SourceCSV         = "csv"
	SourceBinance     = "binance"
	SourceBybit       = "bybit"
	SourceHyperliquid = "hyperliquid"
)

// Run modes.
const (
	ModeDCA      = "dca"
	ModeImproved = "improved"
	ModeCompare  = "compare"
	ModeSearch   = "search"
	ModeSetup    = "setup"
)

const dateLayout = time.DateOnly

// Config validated backtest configuration.
type Config struct {
	Pair            domain.Pair
	Fee             decimal.Decimal
	DepositValue    decimal.Decimal
	DepositInterval domain.Interval
	DCAInterval     domain.Interval
	Strict          bool

	Start        time.Time
	End          time.Time
	LookbackDays int

	Source   string
	DataFile string
	// JournalDir enables the ledger journal when set.
	JournalDir string

	Strategy domain.StrategyParams
}

// LedgerSettings returns the account settings of a run.
func (c Config) LedgerSettings() ledger.Settings {
	return ledger.Settings{
		Pair:            c.Pair,
		Fee:             c.Fee,
		DepositValue:    c.DepositValue,
		DepositInterval: c.DepositInterval,
		DCAInterval:     c.DCAInterval,
		Strict:          c.Strict,
	}
}

// ConfigTmp raw YAML representation, decimals are kept as strings.
type ConfigTmp struct {
	Pair            string      `yaml:"pair"`
	Fee             string      `yaml:"fee,omitempty"`
	DepositValue    string      `yaml:"deposit_value,omitempty"`
	DepositInterval string      `yaml:"deposit_interval,omitempty"`
	DCAInterval     string      `yaml:"dca_interval,omitempty"`
	Strict          bool        `yaml:"strict,omitempty"`
	StartDate       string      `yaml:"start_date"`
	EndDate         string      `yaml:"end_date"`
	LookbackDays    *int        `yaml:"lookback_days,omitempty"`
	Source          string      `yaml:"source,omitempty"`
	DataFile        string      `yaml:"data_file,omitempty"`
	JournalDir      string      `yaml:"journal_dir,omitempty"`
	Strategy        StrategyTmp `yaml:"strategy,omitempty"`
}

// StrategyTmp raw DCA Improved parameters.
type StrategyTmp struct {
	RatioUnderToBuy   string     `yaml:"ratio_under_to_buy,omitempty"`
	RatioOverToSell   string     `yaml:"ratio_over_to_sell,omitempty"`
	RatioBetweenSells string     `yaml:"ratio_between_sells,omitempty"`
	MinBuyUSD         string     `yaml:"min_buy_usd,omitempty"`
	TrendPeriod       int        `yaml:"trend_period,omitempty"`
	BuySizing         *SizingTmp `yaml:"buy_sizing,omitempty"`
	SellSizing        *SizingTmp `yaml:"sell_sizing,omitempty"`
}

// SizingTmp raw sizing policy.
type SizingTmp struct {
	Kind   string   `yaml:"kind"`
	Base   string   `yaml:"base,omitempty"`
	Step   string   `yaml:"step,omitempty"`
	Ratios []string `yaml:"ratios,omitempty"`
}

// Options command-line options.
type Options struct {
	ConfigPath string
	Mode       string
	Runs       int
	Days       int
	Iterations int
	Batch      int
	Seed       int64
	Verbose    bool
}

// Get parses os.Args and loads the referenced config file.
// In setup mode the config is not loaded and a zero Config is returned.
func Get() (Config, Options, error) {
	opts, err := ParseFlags(os.Args[1:])
	if err != nil {
		return Config{}, Options{}, err
	}
	if opts.Mode == ModeSetup {
		return Config{}, opts, nil
	}

	cfg, err := Load(opts.ConfigPath)
	if err != nil {
		return Config{}, Options{}, err
	}
	return cfg, opts, nil
}

// ParseFlags parses command-line arguments.
func ParseFlags(args []string) (Options, error) {
	fs := flag.NewFlagSet("dcabench", flag.ContinueOnError)

	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "config.yaml", "path to yaml config")
	fs.StringVar(&opts.Mode, "mode", ModeDCA, "run mode: dca, improved, compare, search or setup")
	fs.IntVar(&opts.Runs, "runs", 1, "random windows per strategy (compare) or per iteration (search)")
	fs.IntVar(&opts.Days, "days", 0, "random window length in days, 0 means the whole configured range")
	fs.IntVar(&opts.Iterations, "iterations", 10, "parameter sets evaluated in search mode")
	fs.IntVar(&opts.Batch, "batch", 8, "runs executed in parallel")
	fs.Int64Var(&opts.Seed, "seed", 0, "random seed, 0 picks one from the clock")
	fs.BoolVar(&opts.Verbose, "verbose", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	switch opts.Mode {
	case ModeDCA, ModeImproved, ModeCompare, ModeSearch, ModeSetup:
	default:
		return Options{}, fmt.Errorf("invalid --mode provided, --mode=%s", opts.Mode)
	}
	if opts.Runs <= 0 {
		return Options{}, fmt.Errorf("invalid --runs provided, --runs=%d", opts.Runs)
	}
	if opts.Days < 0 {
		return Options{}, fmt.Errorf("invalid --days provided, --days=%d", opts.Days)
	}
	if opts.Iterations <= 0 {
		return Options{}, fmt.Errorf("invalid --iterations provided, --iterations=%d", opts.Iterations)
	}
	if opts.Batch <= 0 {
		return Options{}, fmt.Errorf("invalid --batch provided, --batch=%d", opts.Batch)
	}

	return opts, nil
}

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}

	return tmp.Config()
}

// Save writes a raw config as YAML.
func Save(path string, tmp ConfigTmp) error {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// Config converts the raw representation, applying defaults.
func (c ConfigTmp) Config() (Config, error) {
	pair, err := domain.ParsePair(c.Pair)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'pair' param in yaml config: %s, error: %w", c.Pair, err)
	}

	fee, err := decimalOr(c.Fee, decimal.RequireFromString("0.001"))
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'fee' param in yaml config (must be a decimal, e.g. 0.001), error: %w", err)
	}
	depositValue, err := decimalOr(c.DepositValue, decimal.NewFromInt(10))
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'deposit_value' param in yaml config (must be a decimal), error: %w", err)
	}
	depositInterval, err := intervalOr(c.DepositInterval, domain.IntervalDaily)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'deposit_interval' param in yaml config, error: %w", err)
	}
	dcaInterval, err := intervalOr(c.DCAInterval, domain.IntervalDaily)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'dca_interval' param in yaml config, error: %w", err)
	}

	start, err := time.Parse(dateLayout, c.StartDate)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'start_date' param in yaml config (format is 2006-01-02), error: %w", err)
	}
	end, err := time.Parse(dateLayout, c.EndDate)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'end_date' param in yaml config (format is 2006-01-02), error: %w", err)
	}
	if !start.Before(end) {
		return Config{}, errors.Wrapf(domain.ErrInvalidRange, "start_date %s must be before end_date %s", c.StartDate, c.EndDate)
	}

	lookback := 30
	if c.LookbackDays != nil {
		lookback = *c.LookbackDays
	}
	if lookback < 0 {
		return Config{}, fmt.Errorf("incorrect 'lookback_days' param in yaml config, must not be negative, got %d", lookback)
	}

	source := strings.ToLower(c.Source)
	if source == "" {
		source = SourceCSV
	}
	switch source {
	case SourceCSV:
		if c.DataFile == "" {
			return Config{}, fmt.Errorf("'data_file' param is required for the csv source")
		}
	case SourceBinance, SourceBybit, SourceHyperliquid:
	default:
		return Config{}, fmt.Errorf("incorrect 'source' param in yaml config: %s (csv, binance, bybit or hyperliquid)", c.Source)
	}

	params, err := c.Strategy.params()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Pair:            pair,
		Fee:             fee,
		DepositValue:    depositValue,
		DepositInterval: depositInterval,
		DCAInterval:     dcaInterval,
		Strict:          c.Strict,
		Start:           start,
		End:             end,
		LookbackDays:    lookback,
		Source:          source,
		DataFile:        c.DataFile,
		JournalDir:      c.JournalDir,
		Strategy:        params,
	}
	if err := cfg.LedgerSettings().Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid account settings")
	}

	return cfg, nil
}

func (s StrategyTmp) params() (domain.StrategyParams, error) {
	params := domain.DefaultStrategyParams()

	var err error
	if params.RatioUnderToBuy, err = decimalOr(s.RatioUnderToBuy, params.RatioUnderToBuy); err != nil {
		return domain.StrategyParams{}, fmt.Errorf("incorrect 'ratio_under_to_buy' param in yaml config (must be a decimal), error: %w", err)
	}
	if params.RatioOverToSell, err = decimalOr(s.RatioOverToSell, params.RatioOverToSell); err != nil {
		return domain.StrategyParams{}, fmt.Errorf("incorrect 'ratio_over_to_sell' param in yaml config (must be a decimal), error: %w", err)
	}
	if params.RatioBetweenSells, err = decimalOr(s.RatioBetweenSells, params.RatioBetweenSells); err != nil {
		return domain.StrategyParams{}, fmt.Errorf("incorrect 'ratio_between_sells' param in yaml config (must be a decimal), error: %w", err)
	}
	if params.MinBuyUSD, err = decimalOr(s.MinBuyUSD, params.MinBuyUSD); err != nil {
		return domain.StrategyParams{}, fmt.Errorf("incorrect 'min_buy_usd' param in yaml config (must be a decimal), error: %w", err)
	}
	params.TrendPeriod = s.TrendPeriod

	if s.BuySizing != nil {
		if params.BuySizing, err = s.BuySizing.policy(); err != nil {
			return domain.StrategyParams{}, fmt.Errorf("incorrect 'buy_sizing' param in yaml config, error: %w", err)
		}
	}
	if s.SellSizing != nil {
		if params.SellSizing, err = s.SellSizing.policy(); err != nil {
			return domain.StrategyParams{}, fmt.Errorf("incorrect 'sell_sizing' param in yaml config, error: %w", err)
		}
	}

	if err := params.Validate(); err != nil {
		return domain.StrategyParams{}, errors.Wrap(err, "invalid strategy params")
	}
	return params, nil
}

func (s SizingTmp) policy() (domain.SizingPolicy, error) {
	base, err := decimalOr(s.Base, decimal.Zero)
	if err != nil {
		return domain.SizingPolicy{}, errors.Wrap(err, "base")
	}
	step, err := decimalOr(s.Step, decimal.Zero)
	if err != nil {
		return domain.SizingPolicy{}, errors.Wrap(err, "step")
	}

	ratios := make([]decimal.Decimal, 0, len(s.Ratios))
	for i, r := range s.Ratios {
		v, err := decimal.NewFromString(r)
		if err != nil {
			return domain.SizingPolicy{}, errors.Wrapf(err, "ratio %d", i)
		}
		ratios = append(ratios, v)
	}

	policy := domain.SizingPolicy{
		Kind:   domain.SizingKind(strings.ToLower(s.Kind)),
		Base:   base,
		Step:   step,
		Ratios: ratios,
	}
	return policy, policy.Validate()
}

// Tmp returns the raw representation of c.
func (c Config) Tmp() ConfigTmp {
	lookback := c.LookbackDays
	return ConfigTmp{
		Pair:            c.Pair.String(),
		Fee:             c.Fee.String(),
		DepositValue:    c.DepositValue.String(),
		DepositInterval: string(c.DepositInterval),
		DCAInterval:     string(c.DCAInterval),
		Strict:          c.Strict,
		StartDate:       c.Start.Format(dateLayout),
		EndDate:         c.End.Format(dateLayout),
		LookbackDays:    &lookback,
		Source:          c.Source,
		DataFile:        c.DataFile,
		JournalDir:      c.JournalDir,
		Strategy: StrategyTmp{
			RatioUnderToBuy:   c.Strategy.RatioUnderToBuy.String(),
			RatioOverToSell:   c.Strategy.RatioOverToSell.String(),
			RatioBetweenSells: c.Strategy.RatioBetweenSells.String(),
			MinBuyUSD:         c.Strategy.MinBuyUSD.String(),
			TrendPeriod:       c.Strategy.TrendPeriod,
			BuySizing:         sizingTmp(c.Strategy.BuySizing),
			SellSizing:        sizingTmp(c.Strategy.SellSizing),
		},
	}
}

func sizingTmp(p domain.SizingPolicy) *SizingTmp {
	t := &SizingTmp{Kind: string(p.Kind)}
	if p.Kind != domain.SizingTable {
		t.Base = p.Base.String()
		t.Step = p.Step.String()
	}
	for _, r := range p.Ratios {
		t.Ratios = append(t.Ratios, r.String())
	}
	return t
}

func decimalOr(s string, def decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

func intervalOr(s string, def domain.Interval) (domain.Interval, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return domain.ParseInterval(s)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dcabench/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
pair: BTC_USD
start_date: 2021-01-01
end_date: 2022-01-01
data_file: btc.csv
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, domain.Pair{From: "BTC", To: "USD"}, cfg.Pair)
	assert.True(t, cfg.Fee.Equal(decimal.RequireFromString("0.001")))
	assert.True(t, cfg.DepositValue.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, domain.IntervalDaily, cfg.DepositInterval)
	assert.Equal(t, domain.IntervalDaily, cfg.DCAInterval)
	assert.Equal(t, 30, cfg.LookbackDays)
	assert.Equal(t, SourceCSV, cfg.Source)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Start)
	assert.False(t, cfg.Strict)
	assert.Empty(t, cfg.JournalDir)

	def := domain.DefaultStrategyParams()
	assert.True(t, cfg.Strategy.RatioUnderToBuy.Equal(def.RatioUnderToBuy))
	assert.True(t, cfg.Strategy.RatioOverToSell.Equal(def.RatioOverToSell))
	assert.Equal(t, domain.SizingTable, cfg.Strategy.SellSizing.Kind)
}

func TestLoad_Full(t *testing.T) {
	path := writeConfig(t, `
pair: eth
fee: "0.002"
deposit_value: "25"
deposit_interval: weekly
dca_interval: 1mn
strict: true
start_date: 2020-03-01
end_date: 2020-09-01
lookback_days: 0
source: binance
journal_dir: ./wal
strategy:
  ratio_under_to_buy: "1.1"
  ratio_over_to_sell: "1.8"
  ratio_between_sells: "0.05"
  min_buy_usd: "25"
  trend_period: 20
  buy_sizing:
    kind: linear
    base: "0.1"
    step: "0.05"
  sell_sizing:
    kind: table
    ratios: ["0.1", "0.2"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ETH_USD", cfg.Pair.String())
	assert.True(t, cfg.Fee.Equal(decimal.RequireFromString("0.002")))
	assert.Equal(t, domain.IntervalWeekly, cfg.DepositInterval)
	assert.Equal(t, domain.IntervalMonthly, cfg.DCAInterval)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 0, cfg.LookbackDays)
	assert.Equal(t, SourceBinance, cfg.Source)
	assert.Equal(t, "./wal", cfg.JournalDir)

	p := cfg.Strategy
	assert.True(t, p.RatioUnderToBuy.Equal(decimal.RequireFromString("1.1")))
	assert.True(t, p.MinBuyUSD.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 20, p.TrendPeriod)
	assert.Equal(t, domain.SizingLinear, p.BuySizing.Kind)
	assert.True(t, p.BuySizing.Ratio(2).Equal(decimal.RequireFromString("0.2")))
	assert.Len(t, p.SellSizing.Ratios, 2)

	settings := cfg.LedgerSettings()
	assert.True(t, settings.Strict)
	assert.True(t, settings.DepositValue.Equal(decimal.NewFromInt(25)))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad pair", "pair: A_B_C\nstart_date: 2021-01-01\nend_date: 2021-02-01\ndata_file: x.csv\n"},
		{"bad fee", "pair: BTC\nfee: abc\nstart_date: 2021-01-01\nend_date: 2021-02-01\ndata_file: x.csv\n"},
		{"fee out of range", "pair: BTC\nfee: \"1.5\"\nstart_date: 2021-01-01\nend_date: 2021-02-01\ndata_file: x.csv\n"},
		{"bad interval", "pair: BTC\ndca_interval: hourly\nstart_date: 2021-01-01\nend_date: 2021-02-01\ndata_file: x.csv\n"},
		{"missing dates", "pair: BTC\ndata_file: x.csv\n"},
		{"reversed dates", "pair: BTC\nstart_date: 2021-02-01\nend_date: 2021-01-01\ndata_file: x.csv\n"},
		{"csv without file", "pair: BTC\nstart_date: 2021-01-01\nend_date: 2021-02-01\n"},
		{"unknown source", "pair: BTC\nsource: ftp\nstart_date: 2021-01-01\nend_date: 2021-02-01\n"},
		{"bad sizing", "pair: BTC\nstart_date: 2021-01-01\nend_date: 2021-02-01\ndata_file: x.csv\nstrategy:\n  buy_sizing:\n    kind: random\n"},
		{"negative ratio", "pair: BTC\nstart_date: 2021-01-01\nend_date: 2021-02-01\ndata_file: x.csv\nstrategy:\n  ratio_over_to_sell: \"-1\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_NetworkSourcesNeedNoFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "pair: SOL_USDT\nsource: Bybit\nstart_date: 2023-01-01\nend_date: 2023-06-01\n"))
	require.NoError(t, err)
	assert.Equal(t, SourceBybit, cfg.Source)
	assert.Empty(t, cfg.DataFile)

	cfg, err = Load(writeConfig(t, "pair: BTC\nsource: hyperliquid\nstart_date: 2023-01-01\nend_date: 2023-06-01\n"))
	require.NoError(t, err)
	assert.Equal(t, SourceHyperliquid, cfg.Source)
}

func TestSave_RoundTrip(t *testing.T) {
	path := writeConfig(t, `
pair: BTC_USD
deposit_interval: weekly
start_date: 2021-01-01
end_date: 2022-01-01
data_file: btc.csv
strategy:
  trend_period: 14
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(out, cfg.Tmp()))

	again, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, cfg.Pair, again.Pair)
	assert.Equal(t, cfg.DepositInterval, again.DepositInterval)
	assert.Equal(t, cfg.Start, again.Start)
	assert.Equal(t, cfg.End, again.End)
	assert.Equal(t, 14, again.Strategy.TrendPeriod)
	assert.Equal(t, cfg.Strategy.SellSizing.Kind, again.Strategy.SellSizing.Kind)
	assert.Len(t, again.Strategy.SellSizing.Ratios, len(domain.DefaultSellRatios))
}

func TestParseFlags(t *testing.T) {
	opts, err := ParseFlags([]string{"--config", "c.yaml", "--mode", "search", "--runs", "3", "--iterations", "5", "--seed", "42"})
	require.NoError(t, err)
	assert.Equal(t, "c.yaml", opts.ConfigPath)
	assert.Equal(t, ModeSearch, opts.Mode)
	assert.Equal(t, 3, opts.Runs)
	assert.Equal(t, 5, opts.Iterations)
	assert.Equal(t, int64(42), opts.Seed)
	assert.Equal(t, 8, opts.Batch)

	opts, err = ParseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, ModeDCA, opts.Mode)
	assert.Equal(t, "config.yaml", opts.ConfigPath)

	_, err = ParseFlags([]string{"--mode", "live"})
	require.Error(t, err)
	_, err = ParseFlags([]string{"--runs", "0"})
	require.Error(t, err)
	_, err = ParseFlags([]string{"--batch", "-1"})
	require.Error(t, err)
}

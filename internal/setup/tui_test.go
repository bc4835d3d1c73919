package setup

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dcabench/config"
	"github.com/vadiminshakov/dcabench/internal/domain"
)

func TestAnswers_ConfigTmp(t *testing.T) {
	a := defaultAnswers()
	a.dataFile = "btc.csv"
	a.depositInterval = string(domain.IntervalWeekly)
	a.trendPeriod = "21"

	tmp, err := a.configTmp()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, config.Save(path, tmp))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "BTC_USD", cfg.Pair.String())
	assert.Equal(t, domain.IntervalWeekly, cfg.DepositInterval)
	assert.Equal(t, 21, cfg.Strategy.TrendPeriod)
	assert.Equal(t, "btc.csv", cfg.DataFile)
}

func TestAnswers_BinanceDropsDataFile(t *testing.T) {
	a := defaultAnswers()
	a.source = config.SourceBinance
	a.dataFile = "ignored.csv"

	tmp, err := a.configTmp()
	require.NoError(t, err)
	assert.Empty(t, tmp.DataFile)
}

func TestAnswers_Invalid(t *testing.T) {
	a := defaultAnswers()
	_, err := a.configTmp()
	require.Error(t, err, "csv source requires a data file")

	a.dataFile = "btc.csv"
	a.trendPeriod = "x"
	_, err = a.configTmp()
	require.Error(t, err)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateFee("0.001"))
	assert.Error(t, validateFee("1"))
	assert.Error(t, validateFee("abc"))
	assert.NoError(t, validatePositive("2.5"))
	assert.Error(t, validatePositive("0"))
	assert.NoError(t, validateNonNegative("0"))
	assert.Error(t, validateNonNegative("-0.1"))
	assert.NoError(t, validateDate("2021-01-01"))
	assert.Error(t, validateDate("01/01/2021"))
	assert.Error(t, notEmpty(""))
}

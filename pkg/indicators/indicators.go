// Package indicators computes trend indicators over decimal price series.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
)

// CalculateEMA calculates the Exponential Moving Average for the given period.
// The result omits the warmup period.
func CalculateEMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if period <= 0 {
		return nil, fmt.Errorf("EMA period must be positive, got %d", period)
	}
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	ema := trend.NewEmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(closesFloat)
	outputChan := ema.Compute(inputChan)
	emaFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(emaFloat), nil
}

// AlignedEMA returns one EMA value per close, aligned to the end of closes.
// Positions inside the warmup period hold zero and ok[i] is false for them.
func AlignedEMA(closes []decimal.Decimal, period int) (values []decimal.Decimal, ok []bool, err error) {
	values = make([]decimal.Decimal, len(closes))
	ok = make([]bool, len(closes))
	if len(closes) < period {
		return values, ok, nil
	}

	ema, err := CalculateEMA(closes, period)
	if err != nil {
		return nil, nil, err
	}

	offset := len(closes) - len(ema)
	for i, v := range ema {
		values[offset+i] = v
		ok[offset+i] = true
	}
	return values, ok, nil
}

// TrailingVariation returns the relative change between closes[i-period] and closes[i].
// It is zero when there is not enough history or the base price is zero.
func TrailingVariation(closes []decimal.Decimal, i, period int) decimal.Decimal {
	if period <= 0 || i < period || i >= len(closes) {
		return decimal.Zero
	}
	base := closes[i-period]
	if base.IsZero() {
		return decimal.Zero
	}
	return closes[i].Sub(base).Div(base)
}

func decimalsToFloat64(decimals []decimal.Decimal) []float64 {
	result := make([]float64, len(decimals))
	for i, d := range decimals {
		result[i], _ = d.Float64()
	}
	return result
}

func float64ToDecimals(floats []float64) []decimal.Decimal {
	result := make([]decimal.Decimal, len(floats))
	for i, f := range floats {
		result[i] = decimal.NewFromFloat(f)
	}
	return result
}

package indicators

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closes(vs ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func TestCalculateEMA_NotEnoughData(t *testing.T) {
	_, err := CalculateEMA(closes(1, 2), 3)
	require.Error(t, err)

	_, err = CalculateEMA(closes(1, 2), 0)
	require.Error(t, err)
}

func TestCalculateEMA_ConstantSeries(t *testing.T) {
	ema, err := CalculateEMA(closes(100, 100, 100, 100, 100, 100), 3)
	require.NoError(t, err)
	require.NotEmpty(t, ema)
	for _, v := range ema {
		assert.InDelta(t, 100, v.InexactFloat64(), 1e-9)
	}
}

func TestAlignedEMA(t *testing.T) {
	in := closes(10, 20, 30, 40, 50, 60, 70, 80)
	values, ok, err := AlignedEMA(in, 3)
	require.NoError(t, err)
	require.Len(t, values, len(in))
	require.Len(t, ok, len(in))

	assert.False(t, ok[0])
	assert.True(t, ok[len(in)-1])
	last := values[len(in)-1].InexactFloat64()
	assert.Greater(t, last, 60.0)
	assert.Less(t, last, 80.0)
}

func TestAlignedEMA_ShortInput(t *testing.T) {
	values, ok, err := AlignedEMA(closes(1, 2), 5)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.False(t, ok[0])
	assert.False(t, ok[1])
}

func TestTrailingVariation(t *testing.T) {
	in := closes(100, 110, 150)
	assert.True(t, TrailingVariation(in, 2, 2).Equal(decimal.RequireFromString("0.5")))
	assert.True(t, TrailingVariation(in, 1, 2).IsZero())
	assert.True(t, TrailingVariation(closes(0, 1), 1, 1).IsZero())
}

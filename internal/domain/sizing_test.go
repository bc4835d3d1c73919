package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSizingPolicy_Ratio(t *testing.T) {
	tests := []struct {
		name   string
		policy SizingPolicy
		streak int
		want   string
	}{
		{"fixed", FixedSizing(d("0.3")), 5, "0.3"},
		{"linear first", SizingPolicy{Kind: SizingLinear, Base: d("0.1"), Step: d("0.2")}, 0, "0.1"},
		{"linear third", SizingPolicy{Kind: SizingLinear, Base: d("0.1"), Step: d("0.2")}, 2, "0.5"},
		{"linear clamped", SizingPolicy{Kind: SizingLinear, Base: d("0.1"), Step: d("0.2")}, 10, "1"},
		{"scaled zero streak", SizingPolicy{Kind: SizingScaled, Base: d("0.5"), Step: d("2")}, 0, "0"},
		{"scaled", SizingPolicy{Kind: SizingScaled, Base: d("0.1"), Step: d("1.5")}, 2, "0.3"},
		{"table", TableSizing(DefaultSellRatios), 4, "0.15"},
		{"table past end", TableSizing(DefaultSellRatios), 100, "0.25"},
		{"negative streak", TableSizing(DefaultSellRatios), -3, "0.05"},
		{"negative ratio", FixedSizing(d("-1")), 0, "0"},
		{"unknown kind", SizingPolicy{Kind: "random", Base: d("0.5")}, 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.Ratio(tt.streak)
			assert.True(t, got.Equal(d(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestSizingPolicy_Validate(t *testing.T) {
	require.NoError(t, FixedSizing(d("1")).Validate())
	require.NoError(t, TableSizing(DefaultSellRatios).Validate())
	require.Error(t, FixedSizing(d("-0.1")).Validate())
	require.Error(t, TableSizing(nil).Validate())
	require.Error(t, TableSizing([]decimal.Decimal{d("0.1"), d("-0.1")}).Validate())
	require.Error(t, SizingPolicy{Kind: "random"}.Validate())
}

func TestStrategyParams_Validate(t *testing.T) {
	require.NoError(t, DefaultStrategyParams().Validate())

	p := DefaultStrategyParams()
	p.RatioUnderToBuy = decimal.Zero
	require.Error(t, p.Validate())

	p = DefaultStrategyParams()
	p.RatioBetweenSells = d("-0.1")
	require.Error(t, p.Validate())

	p = DefaultStrategyParams()
	p.TrendPeriod = -1
	require.Error(t, p.Validate())

	p = DefaultStrategyParams()
	p.SellSizing = TableSizing(nil)
	require.Error(t, p.Validate())
}

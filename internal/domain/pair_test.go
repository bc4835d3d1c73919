package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	tests := []struct {
		in      string
		want    Pair
		wantErr bool
	}{
		{in: "BTC_USD", want: Pair{From: "BTC", To: "USD"}},
		{in: " eth_usdt ", want: Pair{From: "ETH", To: "USDT"}},
		{in: "sol", want: Pair{From: "SOL", To: DefaultQuote}},
		{in: "", wantErr: true},
		{in: "_USD", wantErr: true},
		{in: "A_B_C", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePair(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPair_Format(t *testing.T) {
	p := Pair{From: "BTC", To: "USD"}
	assert.Equal(t, "BTC_USD", p.String())
	assert.Equal(t, "BTCUSD", p.Symbol())
}

func TestParseInterval(t *testing.T) {
	for in, want := range map[string]Interval{
		"daily": IntervalDaily, "1d": IntervalDaily,
		"Weekly": IntervalWeekly, "1w": IntervalWeekly,
		"1mn": IntervalMonthly, "month": IntervalMonthly,
		"1y": IntervalYearly, "yearly": IntervalYearly,
	} {
		got, err := ParseInterval(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.True(t, got.Valid())
	}

	_, err := ParseInterval("hourly")
	require.ErrorIs(t, err, ErrInvalidInterval)
	assert.False(t, Interval("hourly").Valid())
	assert.Equal(t, 7, IntervalWeekly.Days())
	assert.Equal(t, 1, IntervalDaily.Days())
}

package improved

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/domain"
)

// Decision reasons.
const (
	ReasonPrefetch       = "prefetch"
	ReasonBootstrapBuy   = "no_cost_basis"
	ReasonBelowBuyLevel  = "price_below_buy_threshold"
	ReasonNoBalance      = "no_balance"
	ReasonTrendFilter    = "price_above_trend"
	ReasonAboveSellLevel = "price_above_sell_threshold"
	ReasonTooCloseToSell = "last_sell_price_too_high"
	ReasonNothingToSell  = "sell_amount_zero"
	ReasonNoSignal       = "no_signal"
)

// State what the decision engine knows at one tick.
type State struct {
	Tick domain.PriceTick
	// DCATick is true when the tick matches the DCA interval.
	DCATick     bool
	AverageCost decimal.Decimal
	Holdings    decimal.Decimal
	Balance     decimal.Decimal
	BuyStreak   int
	SellStreak  int

	LastSellPrice decimal.Decimal
	HasLastSell   bool

	// Trend EMA of closes, valid when HasTrend.
	Trend    decimal.Decimal
	HasTrend bool
}

// Decision outcome of Decide. Intent is nil when holding.
type Decision struct {
	Intent        *domain.Intent
	Reason        string
	BuyThreshold  decimal.Decimal
	SellThreshold decimal.Decimal
}

// Decide applies the DCA Improved rules to a single tick. It buys when the
// close is under avgCost*RatioUnderToBuy (or nothing is held at cost) on DCA
// ticks, otherwise sells a streak-sized share of holdings when the close is
// over avgCost*RatioOverToSell. It never does both.
func Decide(s State, p domain.StrategyParams) Decision {
	if s.Tick.IsPrefetch {
		return Decision{Reason: ReasonPrefetch}
	}

	closePrice := s.Tick.Close
	dec := Decision{
		BuyThreshold:  s.AverageCost.Mul(p.RatioUnderToBuy),
		SellThreshold: s.AverageCost.Mul(p.RatioOverToSell),
	}

	bootstrap := s.AverageCost.IsZero()
	if (bootstrap || closePrice.LessThan(dec.BuyThreshold)) && s.DCATick {
		if !bootstrap && p.TrendPeriod > 0 && s.HasTrend && closePrice.GreaterThan(s.Trend) {
			dec.Reason = ReasonTrendFilter
			return dec
		}

		spend := decimal.Max(s.Balance.Mul(p.BuySizing.Ratio(s.BuyStreak)), p.MinBuyUSD)
		spend = decimal.Min(spend, s.Balance)
		if !spend.IsPositive() {
			dec.Reason = ReasonNoBalance
			return dec
		}

		reason := ReasonBelowBuyLevel
		if bootstrap {
			reason = ReasonBootstrapBuy
		}
		intent := domain.BuyIntent(spend, closePrice, s.Tick.Time, reason)
		dec.Intent = &intent
		dec.Reason = reason
		return dec
	}

	if s.Holdings.IsPositive() && closePrice.GreaterThan(dec.SellThreshold) {
		floor := closePrice.Mul(decimal.NewFromInt(1).Add(p.RatioBetweenSells))
		if s.HasLastSell && s.LastSellPrice.GreaterThan(floor) {
			dec.Reason = ReasonTooCloseToSell
			return dec
		}

		amount := s.Holdings.Mul(p.SellSizing.Ratio(s.SellStreak))
		if !amount.IsPositive() {
			dec.Reason = ReasonNothingToSell
			return dec
		}

		intent := domain.SellIntent(amount, closePrice, s.Tick.Time, ReasonAboveSellLevel)
		dec.Intent = &intent
		dec.Reason = ReasonAboveSellLevel
		return dec
	}

	dec.Reason = ReasonNoSignal
	return dec
}

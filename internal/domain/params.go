package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StrategyParams parameters of the DCA Improved strategy.
type StrategyParams struct {
	// RatioUnderToBuy buy while close < avgCost*RatioUnderToBuy.
	RatioUnderToBuy decimal.Decimal
	// RatioOverToSell sell while close > avgCost*RatioOverToSell.
	RatioOverToSell decimal.Decimal
	// RatioBetweenSells skips a sell when the last sell price exceeds close*(1+RatioBetweenSells).
	RatioBetweenSells decimal.Decimal
	BuySizing         SizingPolicy
	SellSizing        SizingPolicy
	// MinBuyUSD lower bound of a buy, still capped by the balance. 0 disables it.
	MinBuyUSD decimal.Decimal
	// TrendPeriod EMA period of the optional buy trend filter, 0 disables it.
	TrendPeriod int
}

// DefaultStrategyParams returns the reference parameters.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		RatioUnderToBuy:   decimal.NewFromInt(2),
		RatioOverToSell:   decimal.RequireFromString("2.5"),
		RatioBetweenSells: decimal.Zero,
		BuySizing:         FixedSizing(decimal.NewFromInt(1)),
		SellSizing:        TableSizing(DefaultSellRatios),
	}
}

// Validate checks the parameters.
func (p StrategyParams) Validate() error {
	if p.RatioUnderToBuy.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("ratioUnderToBuy must be positive, got %s", p.RatioUnderToBuy.String())
	}
	if p.RatioOverToSell.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("ratioOverToSell must be positive, got %s", p.RatioOverToSell.String())
	}
	if p.RatioBetweenSells.IsNegative() {
		return fmt.Errorf("ratioBetweenSells must not be negative, got %s", p.RatioBetweenSells.String())
	}
	if p.MinBuyUSD.IsNegative() {
		return fmt.Errorf("minBuyUSD must not be negative, got %s", p.MinBuyUSD.String())
	}
	if p.TrendPeriod < 0 {
		return fmt.Errorf("trendPeriod must not be negative, got %d", p.TrendPeriod)
	}
	if err := p.BuySizing.Validate(); err != nil {
		return fmt.Errorf("buy sizing: %w", err)
	}
	if err := p.SellSizing.Validate(); err != nil {
		return fmt.Errorf("sell sizing: %w", err)
	}
	return nil
}

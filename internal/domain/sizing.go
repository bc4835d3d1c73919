package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SizingKind names a streak-based sizing formula.
type SizingKind string

const (
	// SizingFixed always returns Base.
	SizingFixed SizingKind = "fixed"
	// SizingLinear returns Base + Step*streak.
	SizingLinear SizingKind = "linear"
	// SizingScaled returns Base * Step * streak.
	SizingScaled SizingKind = "scaled"
	// SizingTable returns Ratios[streak], or the last ratio past the end.
	SizingTable SizingKind = "table"
)

// DefaultSellRatios sell ratio per consecutive sell.
var DefaultSellRatios = []decimal.Decimal{
	decimal.RequireFromString("0.05"), decimal.RequireFromString("0.05"),
	decimal.RequireFromString("0.05"), decimal.RequireFromString("0.05"),
	decimal.RequireFromString("0.15"), decimal.RequireFromString("0.15"),
	decimal.RequireFromString("0.15"),
	decimal.RequireFromString("0.2"), decimal.RequireFromString("0.2"),
	decimal.RequireFromString("0.2"), decimal.RequireFromString("0.2"),
	decimal.RequireFromString("0.25"), decimal.RequireFromString("0.25"),
	decimal.RequireFromString("0.25"),
}

// SizingPolicy maps a buy or sell streak to the fraction of balance (buys)
// or holdings (sells) to trade.
type SizingPolicy struct {
	Kind   SizingKind        `json:"kind"`
	Base   decimal.Decimal   `json:"base"`
	Step   decimal.Decimal   `json:"step"`
	Ratios []decimal.Decimal `json:"ratios"`
}

// FixedSizing returns a policy with a constant ratio.
func FixedSizing(ratio decimal.Decimal) SizingPolicy {
	return SizingPolicy{Kind: SizingFixed, Base: ratio}
}

// TableSizing returns a policy reading ratios by streak.
func TableSizing(ratios []decimal.Decimal) SizingPolicy {
	return SizingPolicy{Kind: SizingTable, Ratios: ratios}
}

// Validate checks the policy parameters.
func (p SizingPolicy) Validate() error {
	switch p.Kind {
	case SizingFixed, SizingLinear, SizingScaled:
		if p.Base.IsNegative() {
			return fmt.Errorf("%s sizing base must not be negative, got %s", p.Kind, p.Base.String())
		}
	case SizingTable:
		if len(p.Ratios) == 0 {
			return fmt.Errorf("table sizing requires at least one ratio")
		}
		for i, r := range p.Ratios {
			if r.IsNegative() {
				return fmt.Errorf("table sizing ratio %d must not be negative, got %s", i, r.String())
			}
		}
	default:
		return fmt.Errorf("unknown sizing kind %q", p.Kind)
	}
	return nil
}

// Ratio returns the fraction for the given streak, clamped to [0,1].
func (p SizingPolicy) Ratio(streak int) decimal.Decimal {
	if streak < 0 {
		streak = 0
	}
	n := decimal.NewFromInt(int64(streak))

	var ratio decimal.Decimal
	switch p.Kind {
	case SizingFixed:
		ratio = p.Base
	case SizingLinear:
		ratio = p.Base.Add(p.Step.Mul(n))
	case SizingScaled:
		ratio = p.Base.Mul(p.Step.Mul(n))
	case SizingTable:
		if len(p.Ratios) == 0 {
			return decimal.Zero
		}
		if streak < len(p.Ratios) {
			ratio = p.Ratios[streak]
		} else {
			ratio = p.Ratios[len(p.Ratios)-1]
		}
	default:
		return decimal.Zero
	}

	return clampUnit(ratio)
}

func clampUnit(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return v
}

package accounting

import "github.com/shopspring/decimal"

// DrawdownResult worst drawdown of a value series and the extrema behind it.
type DrawdownResult struct {
	// Drawdown is a non-positive fraction.
	Drawdown    decimal.Decimal
	Peak        decimal.Decimal
	PeakIndex   int
	Trough      decimal.Decimal
	TroughIndex int
}

// Drawdown tracks the running maximum and the running minimum independently and
// keeps the worst (trough-peak)/peak seen. Because the trough may precede the
// peak, the result is a lower bound of the classical peak-to-later-trough figure.
// A non-positive peak contributes nothing.
func Drawdown(values []decimal.Decimal) DrawdownResult {
	var res DrawdownResult
	if len(values) == 0 {
		return res
	}

	res.Peak = values[0]
	res.Trough = values[0]
	worst := decimal.Zero

	for i, v := range values {
		if v.GreaterThan(res.Peak) {
			res.Peak = v
			res.PeakIndex = i
		}
		if v.LessThan(res.Trough) {
			res.Trough = v
			res.TroughIndex = i
		}

		if res.Peak.IsPositive() {
			dd := res.Trough.Sub(res.Peak).Div(res.Peak)
			if dd.LessThan(worst) {
				worst = dd
			}
		}
	}

	res.Drawdown = worst
	return res
}

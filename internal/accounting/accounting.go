// Package accounting computes point-in-time figures from ledger entries.
//
// Every function only considers entries whose time is not after asOf, so for a
// fixed ledger the result depends on asOf alone.
package accounting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/domain"
)

const percentageMultiplier = 100

func included(t, asOf time.Time) bool {
	return !t.After(asOf)
}

// AssetHoldings returns bought minus sold units.
func AssetHoldings(txs []domain.Transaction, asOf time.Time) decimal.Decimal {
	holdings := decimal.Zero
	for _, t := range txs {
		if !included(t.Time, asOf) {
			continue
		}
		switch t.Kind {
		case domain.Buy:
			holdings = holdings.Add(t.Amount)
		case domain.Sell:
			holdings = holdings.Sub(t.Amount)
		}
	}
	return holdings
}

// USDBalance returns deposits minus withdrawals, plus sell proceeds net of fees,
// minus buy cost including fees.
func USDBalance(txs []domain.Transaction, acts []domain.AccountActivity, asOf time.Time) decimal.Decimal {
	balance := DepositedUSD(acts, asOf).Sub(WithdrawnUSD(acts, asOf))
	for _, t := range txs {
		if !included(t.Time, asOf) {
			continue
		}
		switch t.Kind {
		case domain.Buy:
			balance = balance.Sub(t.Notional().Add(t.FeeUSD))
		case domain.Sell:
			balance = balance.Add(t.Notional().Sub(t.FeeUSD))
		}
	}
	return balance
}

// DepositedUSD returns the sum of deposits.
func DepositedUSD(acts []domain.AccountActivity, asOf time.Time) decimal.Decimal {
	return sumActivities(acts, asOf, domain.Deposit)
}

// WithdrawnUSD returns the sum of withdrawals.
func WithdrawnUSD(acts []domain.AccountActivity, asOf time.Time) decimal.Decimal {
	return sumActivities(acts, asOf, domain.Withdraw)
}

func sumActivities(acts []domain.AccountActivity, asOf time.Time, kind domain.ActivityKind) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range acts {
		if a.Kind == kind && included(a.Time, asOf) {
			sum = sum.Add(a.AmountUSD)
		}
	}
	return sum
}

// FeesUSD returns the fees paid by buys and sells.
func FeesUSD(txs []domain.Transaction, asOf time.Time) decimal.Decimal {
	fees := decimal.Zero
	for _, t := range txs {
		if included(t.Time, asOf) {
			fees = fees.Add(t.FeeUSD)
		}
	}
	return fees
}

// BuyCount returns the number of buys.
func BuyCount(txs []domain.Transaction, asOf time.Time) int {
	return count(txs, asOf, domain.Buy)
}

// SellCount returns the number of sells.
func SellCount(txs []domain.Transaction, asOf time.Time) int {
	return count(txs, asOf, domain.Sell)
}

func count(txs []domain.Transaction, asOf time.Time, kind domain.TransactionKind) int {
	n := 0
	for _, t := range txs {
		if t.Kind == kind && included(t.Time, asOf) {
			n++
		}
	}
	return n
}

// ProfitUSD returns balance + holdings*price - deposited - fees.
func ProfitUSD(txs []domain.Transaction, acts []domain.AccountActivity, asOf time.Time, price decimal.Decimal) decimal.Decimal {
	return USDBalance(txs, acts, asOf).
		Add(AssetHoldings(txs, asOf).Mul(price)).
		Sub(DepositedUSD(acts, asOf)).
		Sub(FeesUSD(txs, asOf))
}

// ProfitPercent returns profit relative to deposits, 0 when nothing was deposited.
func ProfitPercent(txs []domain.Transaction, acts []domain.AccountActivity, asOf time.Time, price decimal.Decimal) decimal.Decimal {
	deposited := DepositedUSD(acts, asOf)
	if deposited.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return ProfitUSD(txs, acts, asOf, price).Div(deposited).Mul(decimal.NewFromInt(percentageMultiplier))
}

// Lot remaining quantity of a single buy.
type Lot struct {
	Amount decimal.Decimal
	Price  decimal.Decimal
	FeeUSD decimal.Decimal
	Time   time.Time
}

// OpenLots attributes every sold unit to the cheapest buys first and returns the
// lots that still hold units, cheapest first.
func OpenLots(txs []domain.Transaction, asOf time.Time) []Lot {
	lots := make([]Lot, 0, len(txs))
	sold := decimal.Zero
	for _, t := range txs {
		if !included(t.Time, asOf) {
			continue
		}
		switch t.Kind {
		case domain.Buy:
			lots = append(lots, Lot{Amount: t.Amount, Price: t.Price, FeeUSD: t.FeeUSD, Time: t.Time})
		case domain.Sell:
			sold = sold.Add(t.Amount)
		}
	}

	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].Price.LessThan(lots[j].Price)
	})

	open := lots[:0]
	for _, lot := range lots {
		if sold.IsPositive() {
			if lot.Amount.LessThanOrEqual(sold) {
				sold = sold.Sub(lot.Amount)
				continue
			}
			lot.Amount = lot.Amount.Sub(sold)
			sold = decimal.Zero
		}
		open = append(open, lot)
	}

	return open
}

// AverageCost returns Σ(amount*price+fee)/Σ(amount) over the open lots, 0 when
// nothing is held. A partially consumed lot keeps its whole fee.
func AverageCost(txs []domain.Transaction, asOf time.Time) decimal.Decimal {
	cost := decimal.Zero
	units := decimal.Zero
	for _, lot := range OpenLots(txs, asOf) {
		cost = cost.Add(lot.Amount.Mul(lot.Price).Add(lot.FeeUSD))
		units = units.Add(lot.Amount)
	}
	if !units.IsPositive() {
		return decimal.Zero
	}
	return cost.Div(units)
}

// Streaks counts the consecutive buys and sells that happened last, newest first.
// At most one of the two is non-zero.
func Streaks(txs []domain.Transaction, asOf time.Time) (buys, sells int) {
	recent := make([]domain.Transaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		if included(txs[i].Time, asOf) {
			recent = append(recent, txs[i])
		}
	}
	if len(recent) == 0 {
		return 0, 0
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Time.After(recent[j].Time)
	})

	kind := recent[0].Kind
	n := 0
	for _, t := range recent {
		if t.Kind != kind {
			break
		}
		n++
	}

	if kind == domain.Buy {
		return n, 0
	}
	return 0, n
}

// LastTransaction returns the most recent transaction of the given kind.
func LastTransaction(txs []domain.Transaction, asOf time.Time, kind domain.TransactionKind) (domain.Transaction, bool) {
	var (
		last  domain.Transaction
		found bool
	)
	for _, t := range txs {
		if t.Kind != kind || !included(t.Time, asOf) {
			continue
		}
		if !found || !t.Time.Before(last.Time) {
			last = t
			found = true
		}
	}
	return last, found
}

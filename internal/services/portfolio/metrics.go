package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/accounting"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
	"github.com/vadiminshakov/dcabench/internal/services/cache"
)

// Metrics summary of a run at a point in time.
type Metrics struct {
	BalanceUSD    decimal.Decimal `json:"balance_usd"`
	DepositedUSD  decimal.Decimal `json:"deposited_usd"`
	FeesUSD       decimal.Decimal `json:"fees_usd"`
	AssetToUSD    decimal.Decimal `json:"asset_to_usd"`
	TotalUSD      decimal.Decimal `json:"total_usd"`
	ProfitUSD     decimal.Decimal `json:"profit_usd"`
	ProfitPercent decimal.Decimal `json:"profit_percent"`
	BuyCount      int             `json:"buy_count"`
	SellCount     int             `json:"sell_count"`
	// Drawdown fraction, <= 0.
	Drawdown    decimal.Decimal `json:"drawdown"`
	AverageCost decimal.Decimal `json:"average_cost"`
	ActualPrice decimal.Decimal `json:"actual_price"`
}

// ComputeMetrics evaluates the ledger at asOf, valuing holdings at the
// last non-prefetch close not after asOf.
func ComputeMetrics(q *Queries, lc *ledger.Context, series *domain.Series, asOf time.Time) Metrics {
	price := decimal.Zero
	if tick, ok := series.Last(asOf); ok {
		price = tick.Close
	}

	balance := q.USDBalance(lc, asOf)
	assetToUSD := q.AssetHoldings(lc, asOf).Mul(price)

	return Metrics{
		BalanceUSD:    balance,
		DepositedUSD:  q.DepositedUSD(lc, asOf),
		FeesUSD:       q.FeesUSD(lc, asOf),
		AssetToUSD:    assetToUSD,
		TotalUSD:      balance.Add(assetToUSD),
		ProfitUSD:     q.ProfitUSD(lc, asOf, price),
		ProfitPercent: q.ProfitPercent(lc, asOf, price),
		BuyCount:      q.BuyCount(lc, asOf),
		SellCount:     q.SellCount(lc, asOf),
		Drawdown:      q.Drawdown(lc, series, asOf).Drawdown,
		AverageCost:   q.AverageCost(lc, asOf),
		ActualPrice:   price,
	}
}

// Drawdown runs over the total portfolio value at each non-prefetch tick up to asOf.
func (q *Queries) Drawdown(lc *ledger.Context, series *domain.Series, asOf time.Time) accounting.DrawdownResult {
	return cache.Memoize(q.cache, cache.NewKey(lc.ID(), "drawdown", series, asOf), func() accounting.DrawdownResult {
		return accounting.Drawdown(PortfolioValues(lc, series, asOf))
	}, q.ttl)
}

// PortfolioValues returns balance + holdings*close for every non-prefetch tick up to asOf.
func PortfolioValues(lc *ledger.Context, series *domain.Series, asOf time.Time) []decimal.Decimal {
	txs, acts := lc.Transactions(), lc.Activities()

	values := make([]decimal.Decimal, 0, series.Len())
	for _, tick := range series.Ticks() {
		if tick.IsPrefetch {
			continue
		}
		if tick.Time.After(asOf) {
			break
		}
		balance := accounting.USDBalance(txs, acts, tick.Time)
		holdings := accounting.AssetHoldings(txs, tick.Time)
		values = append(values, balance.Add(holdings.Mul(tick.Close)))
	}
	return values
}

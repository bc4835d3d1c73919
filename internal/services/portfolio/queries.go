// Package portfolio answers memoized point-in-time questions about a ledger.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/accounting"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
	"github.com/vadiminshakov/dcabench/internal/services/cache"
)

// Queries memoizes accounting queries in a shared cache, namespaced by
// context id. Results stay stale until Invalidate is called for the context.
type Queries struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewQueries creates queries backed by c. A zero ttl keeps entries until invalidated.
func NewQueries(c *cache.Cache, ttl time.Duration) *Queries {
	if c == nil {
		c = cache.New()
	}
	return &Queries{cache: c, ttl: ttl}
}

// Cache returns the backing cache.
func (q *Queries) Cache() *cache.Cache {
	return q.cache
}

// Invalidate drops every cached result of the context.
func (q *Queries) Invalidate(lc *ledger.Context) {
	q.cache.InvalidateNamespace(lc.ID())
}

// Watch invalidates the context namespace after every ledger mutation until
// release is called. release unregisters the listener and drops the namespace
// once more.
func (q *Queries) Watch(lc *ledger.Context) (release func()) {
	remove := lc.OnMutation(func(id string) {
		q.cache.InvalidateNamespace(id)
	})

	return func() {
		remove()
		q.Invalidate(lc)
	}
}

// AssetHoldings units held at asOf.
func (q *Queries) AssetHoldings(lc *ledger.Context, asOf time.Time) decimal.Decimal {
	return cache.Memoize(q.cache, cache.NewKey(lc.ID(), "assetHoldings", asOf), func() decimal.Decimal {
		return accounting.AssetHoldings(lc.Transactions(), asOf)
	}, q.ttl)
}

// USDBalance cash left at asOf after deposits, withdrawals and trades.
func (q *Queries) USDBalance(lc *ledger.Context, asOf time.Time) decimal.Decimal {
	return cache.Memoize(q.cache, cache.NewKey(lc.ID(), "usdBalance", asOf), func() decimal.Decimal {
		return accounting.USDBalance(lc.Transactions(), lc.Activities(), asOf)
	}, q.ttl)
}

// DepositedUSD net USD deposited up to asOf.
func (q *Queries) DepositedUSD(lc *ledger.Context, asOf time.Time) decimal.Decimal {
	return cache.Memoize(q.cache, cache.NewKey(lc.ID(), "depositedUSD", asOf), func() decimal.Decimal {
		return accounting.DepositedUSD(lc.Activities(), asOf)
	}, q.ttl)
}

// FeesUSD total fees paid up to asOf.
func (q *Queries) FeesUSD(lc *ledger.Context, asOf time.Time) decimal.Decimal {
	return cache.Memoize(q.cache, cache.NewKey(lc.ID(), "feesUSD", asOf), func() decimal.Decimal {
		return accounting.FeesUSD(lc.Transactions(), asOf)
	}, q.ttl)
}

// ProfitUSD portfolio value at price minus net deposits.
func (q *Queries) ProfitUSD(lc *ledger.Context, asOf time.Time, price decimal.Decimal) decimal.Decimal {
	return cache.Memoize(q.cache, cache.NewKey(lc.ID(), "profitUSD", asOf, price), func() decimal.Decimal {
		return accounting.ProfitUSD(lc.Transactions(), lc.Activities(), asOf, price)
	}, q.ttl)
}

// ProfitPercent ProfitUSD as a percentage of net deposits.
func (q *Queries) ProfitPercent(lc *ledger.Context, asOf time.Time, price decimal.Decimal) decimal.Decimal {
	return cache.Memoize(q.cache, cache.NewKey(lc.ID(), "profitPercent", asOf, price), func() decimal.Decimal {
		return accounting.ProfitPercent(lc.Transactions(), lc.Activities(), asOf, price)
	}, q.ttl)
}

// BuyCount number of buys up to asOf.
func (q *Queries) BuyCount(lc *ledger.Context, asOf time.Time) int {
	return cache.Memoize(q.cache, cache.NewKey(lc.ID(), "buyCount", asOf), func() int {
		return accounting.BuyCount(lc.Transactions(), asOf)
	}, q.ttl)
}

// SellCount number of sells up to asOf.
func (q *Queries) SellCount(lc *ledger.Context, asOf time.Time) int {
	return cache.Memoize(q.cache, cache.NewKey(lc.ID(), "sellCount", asOf), func() int {
		return accounting.SellCount(lc.Transactions(), asOf)
	}, q.ttl)
}

// AverageCost cost per unit of the lots still held, see accounting.AverageCost.
func (q *Queries) AverageCost(lc *ledger.Context, asOf time.Time) decimal.Decimal {
	return cache.Memoize(q.cache, cache.NewKey(lc.ID(), "averageCost", asOf), func() decimal.Decimal {
		return accounting.AverageCost(lc.Transactions(), asOf)
	}, q.ttl)
}

type streaks struct {
	buys, sells int
}

// Streaks returns the lengths of the most recent run of buys and of sells.
func (q *Queries) Streaks(lc *ledger.Context, asOf time.Time) (buys, sells int) {
	s := cache.Memoize(q.cache, cache.NewKey(lc.ID(), "streaks", asOf), func() streaks {
		b, s := accounting.Streaks(lc.Transactions(), asOf)
		return streaks{buys: b, sells: s}
	}, q.ttl)
	return s.buys, s.sells
}

type lastTx struct {
	tx domain.Transaction
	ok bool
}

// LastTransaction returns the latest trade of the given kind.
func (q *Queries) LastTransaction(lc *ledger.Context, asOf time.Time, kind domain.TransactionKind) (domain.Transaction, bool) {
	r := cache.Memoize(q.cache, cache.NewKey(lc.ID(), "lastTransaction", asOf, kind.String()), func() lastTx {
		tx, ok := accounting.LastTransaction(lc.Transactions(), asOf, kind)
		return lastTx{tx: tx, ok: ok}
	}, q.ttl)
	return r.tx, r.ok
}

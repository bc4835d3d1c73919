package journal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/dcabench/internal/accounting"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func settings() ledger.Settings {
	return ledger.Settings{
		Pair:            domain.Pair{From: "BTC", To: "USD"},
		Fee:             d("0.01"),
		DepositValue:    d("1000"),
		DepositInterval: domain.IntervalWeekly,
		DCAInterval:     domain.IntervalDaily,
		Strict:          true,
	}
}

func TestWALStore_ReplayRebuildsLedger(t *testing.T) {
	dir := t.TempDir()
	store, err := NewWALStore(dir)
	require.NoError(t, err)

	lc, err := ledger.New(settings(), ledger.WithRecorder(store))
	require.NoError(t, err)

	_, err = lc.Apply(domain.DepositIntent(d("1000"), t0))
	require.NoError(t, err)
	_, err = lc.Apply(domain.BuyIntent(d("1000"), d("100"), t0, "test"))
	require.NoError(t, err)
	_, err = lc.Apply(domain.SellIntent(d("5"), d("200"), t0.Add(24*time.Hour), "test"))
	require.NoError(t, err)

	require.NoError(t, store.Close())

	store, err = NewWALStore(dir)
	require.NoError(t, err)
	defer store.Close()

	ids, err := store.ContextIDs()
	require.NoError(t, err)
	require.Equal(t, []string{lc.ID()}, ids)

	replayed, err := store.Replay(lc.ID())
	require.NoError(t, err)
	require.Equal(t, lc.ID(), replayed.ID())
	require.Len(t, replayed.Transactions(), 2)
	require.Len(t, replayed.Activities(), 1)
	assert.Equal(t, domain.IntervalWeekly, replayed.Settings().DepositInterval)
	assert.True(t, replayed.Settings().Strict)

	end := t0.Add(24 * time.Hour)
	assert.True(t, accounting.AssetHoldings(replayed.Transactions(), end).Equal(d("4.9")))
	assert.True(t, accounting.USDBalance(replayed.Transactions(), replayed.Activities(), end).
		Equal(accounting.USDBalance(lc.Transactions(), lc.Activities(), end)))
}

func TestWALStore_ClonesAreJournaledSeparately(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	base, err := ledger.New(settings(), ledger.WithRecorder(store))
	require.NoError(t, err)
	_, err = base.Apply(domain.DepositIntent(d("10"), t0))
	require.NoError(t, err)

	clone := base.Clone()
	_, err = clone.Apply(domain.DepositIntent(d("20"), t0))
	require.NoError(t, err)

	ids, err := store.ContextIDs()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{base.ID(), clone.ID()}, ids)

	replayed, err := store.Replay(clone.ID())
	require.NoError(t, err)
	require.Len(t, replayed.Activities(), 2)
	require.True(t, accounting.DepositedUSD(replayed.Activities(), t0).Equal(d("30")))

	replayed, err = store.Replay(base.ID())
	require.NoError(t, err)
	require.Len(t, replayed.Activities(), 1)
}

func TestWALStore_ReplayUnknownContext(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Replay("missing")
	require.Error(t, err)
	require.Zero(t, store.CurrentIndex())
}

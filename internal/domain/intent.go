package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// IntentKind type of ledger change requested by a strategy.
type IntentKind int

const (
	IntentDeposit IntentKind = iota
	IntentWithdraw
	IntentBuy
	IntentSell
)

// String returns the string representation of the intent kind.
func (k IntentKind) String() string {
	switch k {
	case IntentDeposit:
		return "deposit"
	case IntentWithdraw:
		return "withdraw"
	case IntentBuy:
		return "buy"
	case IntentSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Intent ledger change decided by a strategy and committed by the ledger.
type Intent struct {
	Kind IntentKind
	// AmountUSD is used by deposits, withdrawals and buys (gross USD spent).
	AmountUSD decimal.Decimal
	// AmountAsset is used by sells.
	AmountAsset decimal.Decimal
	Price       decimal.Decimal
	Time        time.Time
	Reason      string
}

// DepositIntent creates a deposit intent.
func DepositIntent(amountUSD decimal.Decimal, at time.Time) Intent {
	return Intent{Kind: IntentDeposit, AmountUSD: amountUSD, Time: at, Reason: "scheduled_deposit"}
}

// BuyIntent creates a buy of amountUSD (fee included) at price.
func BuyIntent(amountUSD, price decimal.Decimal, at time.Time, reason string) Intent {
	return Intent{Kind: IntentBuy, AmountUSD: amountUSD, Price: price, Time: at, Reason: reason}
}

// SellIntent creates a sell of amountAsset units at price.
func SellIntent(amountAsset, price decimal.Decimal, at time.Time, reason string) Intent {
	return Intent{Kind: IntentSell, AmountAsset: amountAsset, Price: price, Time: at, Reason: reason}
}

// String returns a human-readable string representation.
func (i Intent) String() string {
	switch i.Kind {
	case IntentSell:
		return fmt.Sprintf("%s %s units at %s (%s)", i.Kind, i.AmountAsset.String(), i.Price.String(), i.Reason)
	case IntentBuy:
		return fmt.Sprintf("%s %s USD at %s (%s)", i.Kind, i.AmountUSD.String(), i.Price.String(), i.Reason)
	default:
		return fmt.Sprintf("%s %s USD (%s)", i.Kind, i.AmountUSD.String(), i.Reason)
	}
}

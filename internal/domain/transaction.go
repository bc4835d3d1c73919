package domain

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TransactionKind trade direction.
type TransactionKind int

const (
	Buy TransactionKind = iota
	Sell
)

// String returns the string representation of the kind.
func (k TransactionKind) String() string {
	switch k {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Transaction trade event, immutable once appended to a ledger.
type Transaction struct {
	Kind TransactionKind `json:"kind"`
	// Amount asset quantity. For buys it is net of the fee, which is paid in USD.
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
	Time   time.Time       `json:"time"`
	// FeeUSD for sells is deducted from the proceeds.
	FeeUSD decimal.Decimal `json:"fee_usd"`
}

// Validate checks amounts and prices.
func (t Transaction) Validate() error {
	if t.Kind != Buy && t.Kind != Sell {
		return fmt.Errorf("unknown transaction kind %d", t.Kind)
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrInvalidAmount, "%s amount %s", t.Kind, t.Amount.String())
	}
	if t.Price.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrInvalidPrice, "%s price %s", t.Kind, t.Price.String())
	}
	if t.FeeUSD.IsNegative() {
		return errors.Wrapf(ErrInvalidFee, "%s fee %s", t.Kind, t.FeeUSD.String())
	}
	return nil
}

// Notional returns amount*price.
func (t Transaction) Notional() decimal.Decimal {
	return t.Amount.Mul(t.Price)
}

// String returns a human-readable string representation.
func (t Transaction) String() string {
	return fmt.Sprintf("%s amount: %s price: %s fee: %s at %s",
		t.Kind, t.Amount.String(), t.Price.String(), t.FeeUSD.String(), t.Time.Format(time.RFC3339))
}

// ActivityKind cash movement direction.
type ActivityKind int

const (
	Deposit ActivityKind = iota
	Withdraw
)

// String returns the string representation of the kind.
func (k ActivityKind) String() string {
	switch k {
	case Deposit:
		return "deposit"
	case Withdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

// AccountActivity cash movement, immutable once appended to a ledger.
type AccountActivity struct {
	Kind      ActivityKind    `json:"kind"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
	Time      time.Time       `json:"time"`
}

// Validate checks the amount.
func (a AccountActivity) Validate() error {
	if a.Kind != Deposit && a.Kind != Withdraw {
		return fmt.Errorf("unknown activity kind %d", a.Kind)
	}
	if a.AmountUSD.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrInvalidAmount, "%s amount %s", a.Kind, a.AmountUSD.String())
	}
	return nil
}

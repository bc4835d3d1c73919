package ledger

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"go.uber.org/zap"
)

// AssetPrecision decimal places of bought asset amounts.
const AssetPrecision = 16

// Apply commits a strategy intent, charging the configured fee on trades.
// Buys spend AmountUSD including the fee; sells charge the fee on the proceeds.
// The bought amount is truncated to AssetPrecision so a buy never costs more
// than AmountUSD. A buy too small to yield any asset returns ErrTradeTooSmall
// and leaves the ledger untouched.
func (c *Context) Apply(intent domain.Intent) (domain.Intent, error) {
	switch intent.Kind {
	case domain.IntentDeposit, domain.IntentWithdraw:
		kind := domain.Deposit
		if intent.Kind == domain.IntentWithdraw {
			kind = domain.Withdraw
		}
		if err := c.AppendActivity(domain.AccountActivity{Kind: kind, AmountUSD: intent.AmountUSD, Time: intent.Time}); err != nil {
			return intent, errors.Wrapf(err, "apply %s", intent.Kind)
		}

	case domain.IntentBuy:
		if !intent.Price.IsPositive() {
			return intent, errors.Wrapf(domain.ErrInvalidPrice, "buy at %s", intent.Price.String())
		}
		if !intent.AmountUSD.IsPositive() {
			return intent, errors.Wrapf(domain.ErrInvalidAmount, "buy of %s USD", intent.AmountUSD.String())
		}
		fee := intent.AmountUSD.Mul(c.settings.Fee)
		amount, _ := intent.AmountUSD.Sub(fee).QuoRem(intent.Price, AssetPrecision)
		if !amount.IsPositive() {
			return intent, errors.Wrapf(domain.ErrTradeTooSmall, "buy of %s USD at %s",
				intent.AmountUSD.String(), intent.Price.String())
		}
		tx := domain.Transaction{Kind: domain.Buy, Amount: amount, Price: intent.Price, Time: intent.Time, FeeUSD: fee}
		if err := c.appendTransaction(tx, intent.AmountUSD); err != nil {
			return intent, errors.Wrapf(err, "apply buy of %s USD", intent.AmountUSD.String())
		}
		intent.AmountAsset = amount
		c.l.Debug("buy executed",
			zap.String("context_id", c.ID()),
			zap.String("amount_usd", intent.AmountUSD.String()),
			zap.String("amount", amount.String()),
			zap.String("price", intent.Price.String()),
			zap.String("fee_usd", fee.String()),
			zap.String("reason", intent.Reason))

	case domain.IntentSell:
		fee := intent.AmountAsset.Mul(intent.Price).Mul(c.settings.Fee)
		tx := domain.Transaction{Kind: domain.Sell, Amount: intent.AmountAsset, Price: intent.Price, Time: intent.Time, FeeUSD: fee}
		if err := c.AppendTransaction(tx); err != nil {
			return intent, errors.Wrapf(err, "apply sell of %s %s", intent.AmountAsset.String(), c.settings.Pair.From)
		}
		intent.AmountUSD = tx.Notional().Sub(fee)
		c.l.Debug("sell executed",
			zap.String("context_id", c.ID()),
			zap.String("amount", intent.AmountAsset.String()),
			zap.String("amount_usd", intent.AmountUSD.String()),
			zap.String("price", intent.Price.String()),
			zap.String("fee_usd", fee.String()),
			zap.String("reason", intent.Reason))

	default:
		return intent, fmt.Errorf("unknown intent kind %d", intent.Kind)
	}

	return intent, nil
}

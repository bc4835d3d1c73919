// Package ledger holds the append-only trade and cash logs of one simulated run.
package ledger

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/accounting"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"go.uber.org/zap"
)

// Settings static parameters of a simulated account.
type Settings struct {
	Pair            domain.Pair
	Fee             decimal.Decimal
	DepositValue    decimal.Decimal
	DepositInterval domain.Interval
	DCAInterval     domain.Interval
	// Strict rejects overspending and overselling instead of logging a warning.
	Strict bool
}

// Validate checks fee range, deposit value and intervals.
func (s Settings) Validate() error {
	if s.Fee.IsNegative() || s.Fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.Wrapf(domain.ErrInvalidFee, "fee must be in [0,1), got %s", s.Fee.String())
	}
	if s.DepositValue.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(domain.ErrInvalidAmount, "deposit value %s", s.DepositValue.String())
	}
	if !s.DepositInterval.Valid() {
		return errors.Wrapf(domain.ErrInvalidInterval, "deposit interval %q", s.DepositInterval)
	}
	if !s.DCAInterval.Valid() {
		return errors.Wrapf(domain.ErrInvalidInterval, "dca interval %q", s.DCAInterval)
	}
	return nil
}

// Recorder persists entries before they are appended. RecordSettings is
// called once per context, before its first entry.
type Recorder interface {
	RecordSettings(contextID string, settings Settings) error
	RecordTransaction(contextID string, tx domain.Transaction) error
	RecordActivity(contextID string, activity domain.AccountActivity) error
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.l = l
		}
	}
}

// WithRecorder journals every appended entry.
func WithRecorder(r Recorder) Option {
	return func(c *Context) {
		c.recorder = r
	}
}

// WithID restores a known context id, e.g. when replaying a journal.
func WithID(id string) Option {
	return func(c *Context) {
		c.id = id
	}
}

// Context owns the ledger of one simulated run.
//
// Two contexts must never share an id: cached query results are namespaced by
// it. A Context is not safe for concurrent mutation.
type Context struct {
	idOnce sync.Once
	id     string

	settings     Settings
	transactions []domain.Transaction
	activities   []domain.AccountActivity

	l         *zap.Logger
	recorder  Recorder
	recorded  bool
	listeners []*listener
}

type listener struct {
	fn func(contextID string)
}

// New returns an empty ledger.
func New(settings Settings, opts ...Option) (*Context, error) {
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid ledger settings")
	}

	c := &Context{
		settings: settings,
		l:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ID returns the context id, generating it on first use.
func (c *Context) ID() string {
	c.idOnce.Do(func() {
		if c.id == "" {
			c.id = uuid.New().String()
		}
	})
	return c.id
}

// Settings returns the account settings.
func (c *Context) Settings() Settings {
	return c.settings
}

// Transactions returns the trade log. The returned slice must not be modified.
func (c *Context) Transactions() []domain.Transaction {
	return c.transactions[:len(c.transactions):len(c.transactions)]
}

// Activities returns the cash log. The returned slice must not be modified.
func (c *Context) Activities() []domain.AccountActivity {
	return c.activities[:len(c.activities):len(c.activities)]
}

// Clone copies the logs into an independent context with a fresh id.
// Mutation listeners are not copied.
func (c *Context) Clone() *Context {
	clone := &Context{
		settings:     c.settings,
		transactions: append([]domain.Transaction(nil), c.transactions...),
		activities:   append([]domain.AccountActivity(nil), c.activities...),
		l:            c.l,
		recorder:     c.recorder,
	}
	return clone
}

// WithSettings returns a clone using other settings.
func (c *Context) WithSettings(settings Settings) (*Context, error) {
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid ledger settings")
	}
	clone := c.Clone()
	clone.settings = settings
	return clone, nil
}

// OnMutation registers fn to be called after every appended entry. The
// returned func unregisters it and may be called more than once.
func (c *Context) OnMutation(fn func(contextID string)) (remove func()) {
	ln := &listener{fn: fn}
	c.listeners = append(c.listeners, ln)

	return func() {
		for i, other := range c.listeners {
			if other == ln {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// AppendTransaction validates and appends a trade.
func (c *Context) AppendTransaction(tx domain.Transaction) error {
	return c.appendTransaction(tx, tx.Notional().Add(tx.FeeUSD))
}

// appendTransaction appends tx, checking buys against cost instead of
// recomputing it from the rounded amount.
func (c *Context) appendTransaction(tx domain.Transaction, cost decimal.Decimal) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	if err := c.checkTransaction(tx, cost); err != nil {
		if c.settings.Strict {
			return err
		}
		c.l.Warn("ledger check failed, appending anyway",
			zap.String("context_id", c.ID()),
			zap.String("transaction", tx.String()),
			zap.Error(err))
	}

	if c.recorder != nil {
		if err := c.recordSettings(); err != nil {
			return err
		}
		if err := c.recorder.RecordTransaction(c.ID(), tx); err != nil {
			return errors.Wrap(err, "failed to journal transaction")
		}
	}

	c.transactions = append(c.transactions, tx)
	c.notify()

	return nil
}

// AppendActivity validates and appends a cash movement.
func (c *Context) AppendActivity(a domain.AccountActivity) error {
	if err := a.Validate(); err != nil {
		return err
	}

	if a.Kind == domain.Withdraw {
		balance := accounting.USDBalance(c.transactions, c.activities, a.Time)
		if balance.LessThan(a.AmountUSD) {
			err := errors.Wrapf(domain.ErrInsufficientFunds, "withdraw %s with balance %s",
				a.AmountUSD.String(), balance.String())
			if c.settings.Strict {
				return err
			}
			c.l.Warn("ledger check failed, appending anyway",
				zap.String("context_id", c.ID()),
				zap.Error(err))
		}
	}

	if c.recorder != nil {
		if err := c.recordSettings(); err != nil {
			return err
		}
		if err := c.recorder.RecordActivity(c.ID(), a); err != nil {
			return errors.Wrap(err, "failed to journal activity")
		}
	}

	c.activities = append(c.activities, a)
	c.notify()

	return nil
}

// recordSettings journals the settings and, for clones, the inherited entries.
func (c *Context) recordSettings() error {
	if c.recorded {
		return nil
	}
	if err := c.recorder.RecordSettings(c.ID(), c.settings); err != nil {
		return errors.Wrap(err, "failed to journal settings")
	}
	for _, a := range c.activities {
		if err := c.recorder.RecordActivity(c.ID(), a); err != nil {
			return errors.Wrap(err, "failed to journal inherited activity")
		}
	}
	for _, tx := range c.transactions {
		if err := c.recorder.RecordTransaction(c.ID(), tx); err != nil {
			return errors.Wrap(err, "failed to journal inherited transaction")
		}
	}
	c.recorded = true
	return nil
}

func (c *Context) checkTransaction(tx domain.Transaction, cost decimal.Decimal) error {
	switch tx.Kind {
	case domain.Buy:
		balance := accounting.USDBalance(c.transactions, c.activities, tx.Time)
		if balance.LessThan(cost) {
			return errors.Wrapf(domain.ErrInsufficientFunds, "buy costs %s with balance %s",
				cost.String(), balance.String())
		}
	case domain.Sell:
		holdings := accounting.AssetHoldings(c.transactions, tx.Time)
		if holdings.LessThan(tx.Amount) {
			return errors.Wrapf(domain.ErrInsufficientHoldings, "sell %s %s with holdings %s",
				tx.Amount.String(), c.settings.Pair.From, holdings.String())
		}
	}
	return nil
}

func (c *Context) notify() {
	id := c.ID()
	for _, ln := range c.listeners {
		ln.fn(id)
	}
}

// Package journal persists simulation ledgers in a write-ahead log so that a
// run can be inspected or rebuilt after the process exits.
package journal

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
	"github.com/vadiminshakov/gowal"
)

const (
	DefaultDir = "./wal/journal"

	segmentThreshold = 1000
	maxSegments      = 1000
	dirPermissions   = 0o755

	settingsKeyPrefix    = "settings_"
	transactionKeyPrefix = "tx_"
	activityKeyPrefix    = "activity_"
)

// WALStore journals ledger entries keyed by context id.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens or creates the journal in dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure journal directory %s", dir)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

type settingsRecord struct {
	Pair            string `json:"pair"`
	Fee             string `json:"fee"`
	DepositValue    string `json:"deposit_value"`
	DepositInterval string `json:"deposit_interval"`
	DCAInterval     string `json:"dca_interval"`
	Strict          bool   `json:"strict"`
}

// RecordSettings implements ledger.Recorder.
func (s *WALStore) RecordSettings(contextID string, settings ledger.Settings) error {
	return s.write(settingsKeyPrefix+contextID, settingsRecord{
		Pair:            settings.Pair.String(),
		Fee:             settings.Fee.String(),
		DepositValue:    settings.DepositValue.String(),
		DepositInterval: string(settings.DepositInterval),
		DCAInterval:     string(settings.DCAInterval),
		Strict:          settings.Strict,
	})
}

// RecordTransaction implements ledger.Recorder.
func (s *WALStore) RecordTransaction(contextID string, tx domain.Transaction) error {
	return s.write(transactionKeyPrefix+contextID, tx)
}

// RecordActivity implements ledger.Recorder.
func (s *WALStore) RecordActivity(contextID string, activity domain.AccountActivity) error {
	return s.write(activityKeyPrefix+contextID, activity)
}

func (s *WALStore) write(key string, v any) error {
	if s == nil || s.wal == nil {
		return errors.New("journal is not initialized")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// ContextIDs lists journaled contexts in the order they were first recorded.
func (s *WALStore) ContextIDs() ([]string, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for msg := range s.wal.Iterator() {
		id := contextIDFromKey(msg.Key)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// Replay rebuilds a context from its journaled settings and entries.
// The returned context keeps contextID and has no recorder attached.
func (s *WALStore) Replay(contextID string, opts ...ledger.Option) (*ledger.Context, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		lc      *ledger.Context
		pending []func(*ledger.Context) error
	)

	for msg := range s.wal.Iterator() {
		switch msg.Key {
		case settingsKeyPrefix + contextID:
			var rec settingsRecord
			if err := json.Unmarshal(msg.Value, &rec); err != nil {
				return nil, errors.Wrap(err, "decode journaled settings")
			}
			settings, err := rec.toSettings()
			if err != nil {
				return nil, err
			}
			ctxOpts := append([]ledger.Option{}, opts...)
			lc, err = ledger.New(settings, append(ctxOpts, ledger.WithID(contextID))...)
			if err != nil {
				return nil, err
			}

		case transactionKeyPrefix + contextID:
			var tx domain.Transaction
			if err := json.Unmarshal(msg.Value, &tx); err != nil {
				return nil, errors.Wrap(err, "decode journaled transaction")
			}
			pending = append(pending, func(c *ledger.Context) error { return c.AppendTransaction(tx) })

		case activityKeyPrefix + contextID:
			var a domain.AccountActivity
			if err := json.Unmarshal(msg.Value, &a); err != nil {
				return nil, errors.Wrap(err, "decode journaled activity")
			}
			pending = append(pending, func(c *ledger.Context) error { return c.AppendActivity(a) })
		}
	}

	if lc == nil {
		return nil, errors.Errorf("no journaled settings for context %s", contextID)
	}

	for _, apply := range pending {
		if err := apply(lc); err != nil {
			return nil, errors.Wrapf(err, "replay context %s", contextID)
		}
	}

	return lc, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

func (r settingsRecord) toSettings() (ledger.Settings, error) {
	pair, err := domain.ParsePair(r.Pair)
	if err != nil {
		return ledger.Settings{}, errors.Wrap(err, "decode journaled pair")
	}
	fee, err := decimal.NewFromString(r.Fee)
	if err != nil {
		return ledger.Settings{}, errors.Wrap(err, "decode journaled fee")
	}
	deposit, err := decimal.NewFromString(r.DepositValue)
	if err != nil {
		return ledger.Settings{}, errors.Wrap(err, "decode journaled deposit value")
	}

	return ledger.Settings{
		Pair:            pair,
		Fee:             fee,
		DepositValue:    deposit,
		DepositInterval: domain.Interval(r.DepositInterval),
		DCAInterval:     domain.Interval(r.DCAInterval),
		Strict:          r.Strict,
	}, nil
}

func contextIDFromKey(key string) string {
	for _, prefix := range []string{settingsKeyPrefix, transactionKeyPrefix, activityKeyPrefix} {
		if strings.HasPrefix(key, prefix) {
			return strings.TrimPrefix(key, prefix)
		}
	}
	return ""
}

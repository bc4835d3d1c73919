// Package strategy holds what DCA strategies have in common.
package strategy

import (
	"context"

	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/internal/ledger"
)

// Result ledger and series of a finished run.
type Result struct {
	Context *ledger.Context
	Series  *domain.Series
}

// Runner replays a series against a ledger.
type Runner interface {
	Name() string
	Run(ctx context.Context, lc *ledger.Context, series *domain.Series) (Result, error)
}

package marketdata

import (
	"context"
	"sort"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/pkg/retrier"
	"go.uber.org/zap"
)

const (
	bybitInterval = "D"
	bybitLimit    = 1000
	bybitRetries  = 4
)

// BybitSource downloads daily spot klines from Bybit public market data.
type BybitSource struct {
	client  *bybit.Client
	retrier *retrier.Retrier
	l       *zap.Logger
}

// NewBybitSource creates an unauthenticated source.
func NewBybitSource(l *zap.Logger) *BybitSource {
	if l == nil {
		l = zap.NewNop()
	}
	return &BybitSource{
		client: bybit.NewClient(),
		retrier: retrier.New(
			retrier.WithMaxRetries(bybitRetries),
			retrier.WithOnRetry(func(attempt int, wait time.Duration, err error) {
				l.Warn("retrying bybit klines request",
					zap.Int("attempt", attempt),
					zap.Duration("wait", wait),
					zap.Error(err))
			}),
		),
		l: l,
	}
}

// Klines implements Source. Bybit returns pages newest first, so paging walks
// the range backwards from end.
func (s *BybitSource) Klines(ctx context.Context, pair domain.Pair, start, end time.Time) ([]domain.PriceTick, error) {
	symbol := bybit.SymbolV5(Symbol(pair))
	from := start.UnixMilli()
	to := end.UnixMilli()

	var ticks []domain.PriceTick
	for to >= from {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		limit := bybitLimit
		param := bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   symbol,
			Interval: bybit.Interval(bybitInterval),
			Start:    &from,
			End:      &to,
			Limit:    &limit,
		}

		resp, err := retrier.DoWithData(s.retrier, ctx, func(context.Context) (*bybit.V5GetKlineResponse, error) {
			return s.client.V5().Market().GetKline(param)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", symbol)
		}
		if resp == nil || len(resp.Result.List) == 0 {
			break
		}

		oldest := to
		for i, k := range resp.Result.List {
			tick, err := bybitItemToTick(k)
			if err != nil {
				return nil, errors.Wrapf(err, "kline %d of %s", i, symbol)
			}
			ticks = append(ticks, tick)
			if ms := tick.Time.UnixMilli(); ms < oldest {
				oldest = ms
			}
		}

		s.l.Debug("bybit klines page fetched",
			zap.String("symbol", string(symbol)),
			zap.Int("count", len(resp.Result.List)),
			zap.Time("oldest", time.UnixMilli(oldest).UTC()))

		if len(resp.Result.List) < limit {
			break
		}
		to = oldest - 1
	}

	sort.Slice(ticks, func(i, j int) bool {
		return ticks[i].Time.Before(ticks[j].Time)
	})
	return ticks, nil
}

func bybitItemToTick(k bybit.V5GetKlineItem) (domain.PriceTick, error) {
	ms, err := strconv.ParseInt(k.StartTime, 10, 64)
	if err != nil {
		return domain.PriceTick{}, errors.Wrapf(err, "failed to parse start time %q", k.StartTime)
	}

	prices := make([]decimal.Decimal, 4)
	for i, raw := range []string{k.Open, k.High, k.Low, k.Close} {
		if prices[i], err = decimal.NewFromString(raw); err != nil {
			return domain.PriceTick{}, errors.Wrapf(err, "failed to parse price %q", raw)
		}
	}

	return domain.PriceTick{
		Time:  time.UnixMilli(ms).UTC(),
		Open:  prices[0],
		High:  prices[1],
		Low:   prices[2],
		Close: prices[3],
	}, nil
}

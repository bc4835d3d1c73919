package marketdata

import (
	"context"
	"sort"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/pkg/retrier"
	"go.uber.org/zap"
)

const (
	binanceInterval  = "1d"
	binanceLimit     = 1000
	binanceQuote     = "USDT"
	binanceRetries   = 4
	binanceCallLimit = 30 * time.Second
)

// BinanceSource downloads daily klines from Binance public market data.
type BinanceSource struct {
	client  *binance.Client
	retrier *retrier.Retrier
	l       *zap.Logger
}

// NewBinanceSource creates a source. Keys may be empty: klines are public.
func NewBinanceSource(apiKey, secretKey string, l *zap.Logger) *BinanceSource {
	if l == nil {
		l = zap.NewNop()
	}
	return &BinanceSource{
		client: binance.NewClient(apiKey, secretKey),
		retrier: retrier.New(
			retrier.WithMaxRetries(binanceRetries),
			retrier.WithOnRetry(func(attempt int, wait time.Duration, err error) {
				l.Warn("retrying klines request",
					zap.Int("attempt", attempt),
					zap.Duration("wait", wait),
					zap.Error(err))
			}),
		),
		l: l,
	}
}

// Symbol maps a USD pair to the Binance USDT market.
func Symbol(pair domain.Pair) string {
	if pair.To == domain.DefaultQuote {
		return pair.From + binanceQuote
	}
	return pair.Symbol()
}

// Klines implements Source, paging through the range.
func (s *BinanceSource) Klines(ctx context.Context, pair domain.Pair, start, end time.Time) ([]domain.PriceTick, error) {
	symbol := Symbol(pair)

	var ticks []domain.PriceTick
	from := start
	for !from.After(end) {
		page, err := retrier.DoWithData(s.retrier, ctx, func(ctx context.Context) ([]*binance.Kline, error) {
			callCtx, cancel := context.WithTimeout(ctx, binanceCallLimit)
			defer cancel()

			return s.client.NewKlinesService().
				Symbol(symbol).
				Interval(binanceInterval).
				StartTime(from.UnixMilli()).
				EndTime(end.UnixMilli()).
				Limit(binanceLimit).
				Do(callCtx)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", symbol)
		}
		if len(page) == 0 {
			break
		}

		sort.Slice(page, func(i, j int) bool {
			return page[i].OpenTime < page[j].OpenTime
		})

		for i, k := range page {
			tick, err := klineToTick(k)
			if err != nil {
				return nil, errors.Wrapf(err, "kline %d of %s", i, symbol)
			}
			ticks = append(ticks, tick)
		}

		s.l.Debug("klines page fetched",
			zap.String("symbol", symbol),
			zap.Int("count", len(page)),
			zap.Time("from", from))

		if len(page) < binanceLimit {
			break
		}
		from = time.UnixMilli(page[len(page)-1].OpenTime + 1).UTC()
	}

	return ticks, nil
}

func klineToTick(k *binance.Kline) (domain.PriceTick, error) {
	open, err := decimal.NewFromString(k.Open)
	if err != nil {
		return domain.PriceTick{}, errors.Wrap(err, "failed to parse open price")
	}
	high, err := decimal.NewFromString(k.High)
	if err != nil {
		return domain.PriceTick{}, errors.Wrap(err, "failed to parse high price")
	}
	low, err := decimal.NewFromString(k.Low)
	if err != nil {
		return domain.PriceTick{}, errors.Wrap(err, "failed to parse low price")
	}
	closePrice, err := decimal.NewFromString(k.Close)
	if err != nil {
		return domain.PriceTick{}, errors.Wrap(err, "failed to parse close price")
	}

	return domain.PriceTick{
		Time:  time.UnixMilli(k.OpenTime).UTC(),
		Open:  open,
		High:  high,
		Low:   low,
		Close: closePrice,
	}, nil
}

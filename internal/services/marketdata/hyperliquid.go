package marketdata

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/dcabench/internal/domain"
	"github.com/vadiminshakov/dcabench/pkg/retrier"
	"go.uber.org/zap"
)

const (
	// HyperliquidMainnetURL public API endpoint.
	HyperliquidMainnetURL = "https://api.hyperliquid.xyz"

	hyperliquidInterval = "1d"
	hyperliquidRetries  = 4
)

// HyperliquidSource reads daily candles from the Hyperliquid info API.
type HyperliquidSource struct {
	info    *hyperliquid.Info
	retrier *retrier.Retrier
	l       *zap.Logger
}

// NewHyperliquidSource creates a read-only source. The exchange behind it holds
// a throwaway key and never places orders.
func NewHyperliquidSource(ctx context.Context, baseURL string, l *zap.Logger) (*HyperliquidSource, error) {
	if l == nil {
		l = zap.NewNop()
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate hyperliquid session key")
	}
	accountAddr := crypto.PubkeyToAddress(key.PublicKey).Hex()

	ex := hyperliquid.NewExchange(ctx, key, baseURL, nil, "", accountAddr, nil)

	return &HyperliquidSource{
		info: ex.Info(),
		retrier: retrier.New(
			retrier.WithMaxRetries(hyperliquidRetries),
			retrier.WithOnRetry(func(attempt int, wait time.Duration, err error) {
				l.Warn("retrying hyperliquid candles request",
					zap.Int("attempt", attempt),
					zap.Duration("wait", wait),
					zap.Error(err))
			}),
		),
		l: l,
	}, nil
}

// Coin maps a pair to the Hyperliquid coin name, which is always USD quoted.
func Coin(pair domain.Pair) string {
	return strings.ToUpper(pair.From)
}

// Klines implements Source.
func (s *HyperliquidSource) Klines(ctx context.Context, pair domain.Pair, start, end time.Time) ([]domain.PriceTick, error) {
	coin := Coin(pair)

	ticks, err := retrier.DoWithData(s.retrier, ctx, func(ctx context.Context) ([]domain.PriceTick, error) {
		candles, err := s.info.CandlesSnapshot(ctx, coin, hyperliquidInterval, start.UnixMilli(), end.UnixMilli())
		if err != nil {
			return nil, err
		}

		out := make([]domain.PriceTick, 0, len(candles))
		for i, c := range candles {
			tick, err := candleToTick(c.TimeOpen, c.Open, c.High, c.Low, c.Close)
			if err != nil {
				return nil, retrier.Permanent(errors.Wrapf(err, "candle %d", i))
			}
			out = append(out, tick)
		}
		return out, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch candles from hyperliquid for %s", coin)
	}

	sort.Slice(ticks, func(i, j int) bool {
		return ticks[i].Time.Before(ticks[j].Time)
	})

	s.l.Debug("hyperliquid candles fetched",
		zap.String("coin", coin),
		zap.Int("count", len(ticks)))

	return ticks, nil
}

func candleToTick(openTime int64, open, high, low, closePrice string) (domain.PriceTick, error) {
	prices := make([]decimal.Decimal, 4)
	for i, raw := range []string{open, high, low, closePrice} {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.PriceTick{}, errors.Wrapf(err, "failed to parse price %q", raw)
		}
		prices[i] = v
	}

	return domain.PriceTick{
		Time:  time.UnixMilli(openTime).UTC(),
		Open:  prices[0],
		High:  prices[1],
		Low:   prices[2],
		Close: prices[3],
	}, nil
}

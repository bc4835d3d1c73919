package marketdata

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dcabench/internal/domain"
)

// CSVSource reads candles from a "timestamp,open,high,low,close" file. The
// timestamp is unix milliseconds or RFC 3339; a header row is skipped.
type CSVSource struct {
	Path string
}

// Klines implements Source.
func (s CSVSource) Klines(_ context.Context, _ domain.Pair, start, end time.Time) ([]domain.PriceTick, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open candles file %s", s.Path)
	}
	defer f.Close()

	ticks, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read candles file %s", s.Path)
	}
	return filterWindow(ticks, start, end), nil
}

// ReadCSV parses candles from r.
func ReadCSV(r io.Reader) ([]domain.PriceTick, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var ticks []domain.PriceTick
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if len(record) < 5 {
			return nil, errors.Errorf("line %d: expected 5 fields, got %d", line, len(record))
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "timestamp") {
			continue
		}

		tick, err := parseRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		ticks = append(ticks, tick)
	}

	return ticks, nil
}

func parseRecord(record []string) (domain.PriceTick, error) {
	at, err := parseTimestamp(strings.TrimSpace(record[0]))
	if err != nil {
		return domain.PriceTick{}, err
	}

	prices := make([]decimal.Decimal, 4)
	for i := range prices {
		prices[i], err = decimal.NewFromString(strings.TrimSpace(record[i+1]))
		if err != nil {
			return domain.PriceTick{}, errors.Wrapf(err, "parse price field %d", i+1)
		}
		if !prices[i].IsPositive() {
			return domain.PriceTick{}, errors.Wrapf(domain.ErrInvalidPrice, "field %d is %s", i+1, prices[i].String())
		}
	}

	return domain.PriceTick{
		Time:  at,
		Open:  prices[0],
		High:  prices[1],
		Low:   prices[2],
		Close: prices[3],
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

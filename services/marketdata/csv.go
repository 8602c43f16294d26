package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"chandelier-backtest/services/engine"
)

// columnAliases maps accepted header spellings to canonical columns,
// including the Chinese headers A-share data vendors export.
var columnAliases = map[string]string{
	"date": "date", "日期": "date", "trade_date": "date",
	"open": "open", "开盘": "open",
	"high": "high", "最高": "high",
	"low": "low", "最低": "low",
	"close": "close", "收盘": "close",
	"volume": "volume", "成交量": "volume", "vol": "volume",
	"amount": "amount", "成交额": "amount",
	"pct_change": "pct_change", "涨跌幅": "pct_change", "pct_chg": "pct_change",
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "20060102", time.RFC3339, "2006-01-02 15:04:05"}

// CSVSource reads <dir>/<symbol>.csv files.
type CSVSource struct {
	Dir    string
	logger *zap.Logger
}

var _ DataSource = (*CSVSource)(nil)

func NewCSVSource(dir string, logger *zap.Logger) *CSVSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSource{Dir: dir, logger: logger}
}

func (s *CSVSource) Fetch(ctx context.Context, symbol string, start, end time.Time) (engine.PriceSeries, error) {
	series := engine.PriceSeries{Symbol: symbol}
	if err := ctx.Err(); err != nil {
		return series, err
	}
	path := filepath.Join(s.Dir, symbol+".csv")
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("no data file", zap.String("symbol", symbol), zap.String("path", path))
		return series, nil
	}
	if err != nil {
		return series, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	bars, err := ParseBars(f)
	if err != nil {
		return series, fmt.Errorf("parse %s: %w", path, err)
	}
	series.Bars = bars
	return series.Between(start, end), nil
}

func (s *CSVSource) Symbols(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, filepath.Ext(name)))
	}
	sort.Strings(out)
	return out, nil
}

// ParseBars reads a header-led OHLCV CSV in any column order and returns the
// bars sorted by date. Rows with an unparsable date or price are skipped.
func ParseBars(r io.Reader) ([]engine.Bar, error) {
	reader := csv.NewReader(decodeReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.Trim(strings.TrimSpace(h), `"`))
		if canon, ok := columnAliases[key]; ok {
			cols[canon] = i
		}
	}
	for _, need := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := cols[need]; !ok {
			return nil, fmt.Errorf("missing column %q", need)
		}
	}

	var bars []engine.Bar
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		b, ok := parseRow(rec, cols)
		if ok {
			bars = append(bars, b)
		}
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func parseRow(rec []string, cols map[string]int) (engine.Bar, bool) {
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return "", false
		}
		return strings.TrimSpace(rec[i]), true
	}
	num := func(name string) (float64, bool) {
		s, ok := field(name)
		if !ok || s == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	}

	var b engine.Bar
	ds, _ := field("date")
	d, ok := parseDate(ds)
	if !ok {
		return b, false
	}
	b.Date = d
	var okO, okH, okL, okC bool
	b.Open, okO = num("open")
	b.High, okH = num("high")
	b.Low, okL = num("low")
	b.Close, okC = num("close")
	if !okO || !okH || !okL || !okC {
		return b, false
	}
	b.Volume, _ = num("volume")
	if v, ok := num("amount"); ok {
		b.Amount = &v
	}
	if v, ok := num("pct_change"); ok {
		b.PctChange = &v
	}
	return b, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"chandelier-backtest/services/engine"
)

// DataSource supplies daily bars. Missing data is an empty series with a
// nil error; errors are reserved for an unreachable source.
type DataSource interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) (engine.PriceSeries, error)
	Symbols(ctx context.Context) ([]string, error)
}

type SymbolInfo struct {
	Code string
	Name string
}

// FilterUniverse drops Beijing exchange codes (8xx), STAR market codes
// (688xxx) and special-treatment names.
func FilterUniverse(in []SymbolInfo) []SymbolInfo {
	out := make([]SymbolInfo, 0, len(in))
	for _, s := range in {
		if strings.HasPrefix(s.Code, "8") || strings.HasPrefix(s.Code, "688") || strings.Contains(s.Name, "ST") {
			continue
		}
		out = append(out, s)
	}
	return out
}

// LoadUniverse reads a code,name CSV. A header row is skipped when its
// first cell is not numeric.
func LoadUniverse(path string) ([]SymbolInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(decodeReader(f))
	r.FieldsPerRecord = -1
	var out []SymbolInfo
	for line := 0; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line+1, err)
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		code := strings.TrimSpace(rec[0])
		if line == 0 && !isDigits(code) {
			continue
		}
		info := SymbolInfo{Code: code}
		if len(rec) > 1 {
			info.Name = strings.TrimSpace(rec[1])
		}
		out = append(out, info)
	}
	return out, nil
}

func Codes(in []SymbolInfo) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.Code
	}
	sort.Strings(out)
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// decodeReader strips a UTF-8 BOM and transcodes UTF-16 (either byte order,
// BOM required) to UTF-8.
func decodeReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

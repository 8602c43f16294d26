package engine

// Series validation, checksums and gap detection

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

type GapPolicy int

const (
	GapIgnore GapPolicy = iota
	GapFlag
	GapReject
)

type LoaderConfig struct {
	GapPolicy GapPolicy
	// MaxGap is the longest calendar distance between consecutive bars that
	// does not count as a gap. Daily equity data spans weekends and holidays.
	MaxGap time.Duration
}

type Loader struct {
	cfg LoaderConfig
}

func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.MaxGap <= 0 {
		cfg.MaxGap = 10 * 24 * time.Hour
	}
	return &Loader{cfg: cfg}
}

// ValidateSeries requires strictly increasing dates and finite prices.
func ValidateSeries(s PriceSeries) error {
	for i, b := range s.Bars {
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s bar %d has non-finite value", ErrInvalidSeries, s.Symbol, i)
			}
		}
		if i > 0 && !b.Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("%w: %s bar %d dated %s not after %s", ErrInvalidSeries, s.Symbol, i,
				b.Date.Format("2006-01-02"), s.Bars[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Prepare validates s and applies the gap policy. The returned gaps are the
// dates of the bars preceding each gap.
func (l *Loader) Prepare(s PriceSeries) (PriceSeries, []time.Time, error) {
	if s.Empty() {
		return s, nil, fmt.Errorf("%w: %s", ErrNoData, s.Symbol)
	}
	if err := ValidateSeries(s); err != nil {
		return s, nil, err
	}
	gaps := l.DetectGaps(s)
	if len(gaps) > 0 && l.cfg.GapPolicy == GapReject {
		return s, gaps, fmt.Errorf("%w: %s has %d gaps", ErrInvalidSeries, s.Symbol, len(gaps))
	}
	if l.cfg.GapPolicy == GapIgnore {
		gaps = nil
	}
	return s, gaps, nil
}

// DetectGaps checks for holes longer than MaxGap in an ordered series.
func (l *Loader) DetectGaps(s PriceSeries) (gaps []time.Time) {
	for i := 1; i < len(s.Bars); i++ {
		if s.Bars[i].Date.Sub(s.Bars[i-1].Date) > l.cfg.MaxGap {
			gaps = append(gaps, s.Bars[i-1].Date)
		}
	}
	return gaps
}

// Checksum is a SHA-256 over dates and OHLCV of the series.
func (l *Loader) Checksum(s PriceSeries) string {
	h := sha256.New()
	h.Write([]byte(s.Symbol))
	var buf [8]byte
	for _, b := range s.Bars {
		binary.LittleEndian.PutUint64(buf[:], uint64(b.Date.Unix()))
		h.Write(buf[:])
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

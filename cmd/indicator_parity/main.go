// Command indicator_parity compares the engine's ATR, rolling extremes,
// linear regression and ZLSMA against TA-Lib on a CSV of daily bars.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"go.uber.org/zap"

	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/marketdata"
)

func main() {
	var (
		csvFile     = flag.String("csv", "", "Path to CSV file with OHLCV data")
		period      = flag.Int("period", 14, "ATR / extremes lookback")
		zlsmaPeriod = flag.Int("zlsma-period", 0, "ZLSMA lookback (0 = period)")
		tolerance   = flag.Float64("tolerance", 1e-9, "Relative tolerance")
		output      = flag.String("output", "", "Optional per-bar parity CSV")
	)
	flag.Parse()

	if *csvFile == "" {
		fmt.Println("Error: -csv flag is required")
		flag.Usage()
		os.Exit(1)
	}
	if *zlsmaPeriod <= 0 {
		*zlsmaPeriod = *period
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	f, err := os.Open(*csvFile)
	if err != nil {
		logger.Fatal("Failed to open CSV", zap.Error(err))
	}
	bars, err := marketdata.ParseBars(f)
	f.Close()
	if err != nil {
		logger.Fatal("Failed to parse CSV", zap.Error(err))
	}

	if len(bars) <= *period {
		logger.Fatal("Not enough bars for the lookback", zap.Int("bars", len(bars)), zap.Int("period", *period))
	}

	checks := buildChecks(bars, *period, *zlsmaPeriod)
	failed := false
	for _, c := range checks {
		o := compare(c, *tolerance)
		fields := []zap.Field{
			zap.String("indicator", o.Name),
			zap.Int("compared", o.Compared),
			zap.Int("mismatches", o.Mismatches),
			zap.Float64("max_diff", o.MaxDiff),
		}
		if o.Mismatches > 0 {
			failed = true
			logger.Error("Parity mismatch", append(fields, zap.Int("first_bad", o.FirstBad))...)
			continue
		}
		logger.Info("Parity ok", fields...)
	}

	if *output != "" {
		if err := writeParityCSV(*output, bars, checks); err != nil {
			logger.Fatal("Failed to write parity CSV", zap.Error(err))
		}
	}
	if failed {
		os.Exit(1)
	}
}

func writeParityCSV(path string, bars []engine.Bar, checks []Check) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	header := []string{"date"}
	for _, c := range checks {
		header = append(header, c.Name, c.Name+"_ref")
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i, b := range bars {
		row := []string{b.Date.Format("2006-01-02")}
		for _, c := range checks {
			row = append(row, strconv.FormatFloat(c.Engine[i], 'f', 6, 64), strconv.FormatFloat(c.Reference[i], 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

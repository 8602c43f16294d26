// Command backtest replays one symbol with fixed parameters and optionally
// exports the per-bar decision trace.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"chandelier-backtest/services/config"
	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/marketdata"
	"chandelier-backtest/services/results"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML configuration file")
		symbol      = flag.String("symbol", "", "Symbol to backtest")
		csvFile     = flag.String("csv", "", "Read bars from this CSV instead of the configured source")
		start       = flag.String("start", "", "First bar date (YYYY-MM-DD)")
		end         = flag.String("end", "", "Last bar date (YYYY-MM-DD)")
		period      = flag.Int("period", 0, "ATR / extremes lookback")
		zlsmaPeriod = flag.Int("zlsma-period", 0, "ZLSMA lookback (0 = period)")
		mult        = flag.Float64("mult", 0, "ATR multiplier")
		fraction    = flag.Float64("fraction", 0, "Investment fraction of cash per entry")
		pyramid     = flag.Int("pyramid", -1, "Maximum add-ons")
		useClose    = flag.Bool("use-close", true, "Rolling extremes over close instead of high/low")
		entryMode   = flag.String("entry-mode", "", "Entry mode: 'next_open' or 'signal_close'")
		tracePath   = flag.String("trace", "", "Write the per-bar decision trace CSV here")
		verbose     = flag.Bool("verbose", false, "Enable development logging")
	)
	flag.Parse()

	if *symbol == "" && *csvFile == "" {
		fmt.Println("Error: -symbol or -csv is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	params := cfg.Strategy
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "start":
			cfg.Run.Start = *start
		case "end":
			cfg.Run.End = *end
		case "period":
			params.Period = *period
		case "zlsma-period":
			params.ZLSMAPeriod = *zlsmaPeriod
		case "mult":
			params.Mult = *mult
		case "fraction":
			params.InvestmentFraction = *fraction
		case "pyramid":
			params.MaxPyramiding = *pyramid
		case "use-close":
			params.UseClose = *useClose
		case "entry-mode":
			cfg.Backtest.EntryMode = *entryMode
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := params.Validate(); err != nil {
		log.Fatalf("Invalid parameters: %v", err)
	}

	logger, err := zap.NewProduction()
	if *verbose {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	series, err := loadSeries(context.Background(), cfg, *symbol, *csvFile, logger)
	if err != nil {
		logger.Fatal("Failed to load bars", zap.Error(err))
	}

	btCfg := cfg.EngineBacktest()
	btCfg.RecordTrace = *tracePath != ""
	res, err := engine.NewEvaluator(btCfg, logger).Run(series, params)
	if err != nil {
		logger.Fatal("Backtest failed", zap.Error(err))
	}
	if res.NoData {
		logger.Warn("No bars for symbol", zap.String("symbol", series.Symbol))
	}

	if *tracePath != "" && res.Trace != nil {
		f, err := os.Create(*tracePath)
		if err != nil {
			logger.Fatal("Failed to create trace file", zap.Error(err))
		}
		if err := results.WriteTrace(f, res.Trace.Decisions); err != nil {
			f.Close()
			logger.Fatal("Failed to write trace", zap.Error(err))
		}
		if err := f.Close(); err != nil {
			logger.Fatal("Failed to close trace file", zap.Error(err))
		}
		logger.Info("Trace written", zap.String("path", *tracePath), zap.Int("bars", len(res.Trace.Decisions)))
	}

	title := fmt.Sprintf("%s  %d bars  %d trades  final %.2f  direction %s  last signal %s (%s)",
		series.Symbol, res.Bars, res.Metrics.TotalTrades, res.Metrics.FinalValue,
		res.Direction, res.LastSignal.Code, res.LastSignal.Reason)
	fmt.Println(results.RenderTable(title, []results.OptimizationRecord{results.FromBacktest(res, series)}))
}

func loadSeries(ctx context.Context, cfg *config.Config, symbol, csvFile string, logger *zap.Logger) (engine.PriceSeries, error) {
	from, to, err := cfg.Dates()
	if err != nil {
		return engine.PriceSeries{}, err
	}
	if csvFile != "" {
		f, err := os.Open(csvFile)
		if err != nil {
			return engine.PriceSeries{}, err
		}
		defer f.Close()
		bars, err := marketdata.ParseBars(f)
		if err != nil {
			return engine.PriceSeries{}, fmt.Errorf("parse %s: %w", csvFile, err)
		}
		if symbol == "" {
			symbol = strings.TrimSuffix(filepath.Base(csvFile), filepath.Ext(csvFile))
		}
		return engine.PriceSeries{Symbol: symbol, Bars: bars}.Between(from, to), nil
	}

	source, closeSource, err := marketdata.Open(ctx, cfg.Data.Source, cfg.Data.CSVDir, cfg.ClickHouse, logger)
	if err != nil {
		return engine.PriceSeries{}, err
	}
	defer closeSource()
	return source.Fetch(ctx, symbol, from, to)
}

// Command ingest loads a directory of daily-bar CSV files into ClickHouse.
// Files whose checksum is already in the ingest ledger are skipped.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"chandelier-backtest/services/arrowpipeline"
	"chandelier-backtest/services/clickhouse"
	"chandelier-backtest/services/config"
	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/marketdata"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	dir := flag.String("dir", "", "Directory of <symbol>.csv files (default: data.csv_dir)")
	validate := flag.Bool("validate", false, "Only run the validation suite, do not write")
	maxGap := flag.Int("max-gap-days", 10, "Calendar days between bars reported as a gap")
	arrowDir := flag.String("arrow-dir", "", "Also write each validated series as <symbol>.arrow here")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dir == "" {
		*dir = cfg.Data.CSVDir
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := marketdata.NewCSVSource(*dir, logger)
	symbols, err := marketdata.ResolveSymbols(ctx, source, cfg.Run.Symbols, cfg.Run.Universe)
	if err != nil {
		logger.Fatal("Failed to list symbols", zap.Error(err))
	}
	suite := NewValidationSuite(engine.LoaderConfig{GapPolicy: engine.GapFlag, MaxGap: daysToDuration(*maxGap)})

	pipeline := arrowpipeline.NewPipeline(arrowpipeline.Config{}, logger)
	if *arrowDir != "" {
		if err := os.MkdirAll(*arrowDir, 0o755); err != nil {
			logger.Fatal("Failed to create Arrow dir", zap.Error(err))
		}
	}

	var client *clickhouse.Client
	if !*validate {
		client, err = clickhouse.NewClient(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Fatal("Failed to create ClickHouse client", zap.Error(err))
		}
		defer client.Close()
		if err := client.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to ensure schema", zap.Error(err))
		}
	}

	var written, skipped, invalid int
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		series, err := source.Fetch(ctx, symbol, time0, time0)
		if err != nil {
			logger.Error("Read failed", zap.String("symbol", symbol), zap.Error(err))
			invalid++
			continue
		}
		report := suite.Run(series)
		if !report.OK() {
			logger.Warn("Validation failed", zap.String("symbol", symbol), zap.Strings("problems", report.Problems))
			invalid++
			continue
		}
		if len(report.Gaps) > 0 {
			logger.Info("Gaps found", zap.String("symbol", symbol), zap.Int("gaps", len(report.Gaps)))
		}
		if *arrowDir != "" {
			if err := writeSnapshot(pipeline, *arrowDir, report.Series); err != nil {
				logger.Error("Arrow snapshot failed", zap.String("symbol", symbol), zap.Error(err))
			}
		}
		if client == nil {
			continue
		}
		ok, err := client.IngestSeries(ctx, report.Series, report.Checksum, *dir)
		if err != nil {
			logger.Error("Ingest failed", zap.String("symbol", symbol), zap.Error(err))
			invalid++
			continue
		}
		if ok {
			written++
		} else {
			skipped++
		}
	}

	fmt.Printf("symbols=%d written=%d unchanged=%d invalid=%d\n", len(symbols), written, skipped, invalid)
	if invalid > 0 {
		os.Exit(1)
	}
}

func writeSnapshot(p *arrowpipeline.Pipeline, dir string, series engine.PriceSeries) error {
	data, err := p.ConvertSeriesToArrow(series)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, series.Symbol+".arrow"), data, 0o644)
}

// Command optimizer tunes Chandelier Exit + ZLSMA parameters for every symbol
// of a universe and writes the best trial per symbol.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chandelier-backtest/services/arrowpipeline"
	"chandelier-backtest/services/clickhouse"
	"chandelier-backtest/services/config"
	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/marketdata"
	"chandelier-backtest/services/optimizer"
	"chandelier-backtest/services/results"
	"chandelier-backtest/services/scheduler"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		start      = flag.String("start", "", "First bar date (YYYY-MM-DD)")
		end        = flag.String("end", "", "Last bar date (YYYY-MM-DD)")
		trials     = flag.Int("trials", 0, "Trials per symbol")
		workers    = flag.Int("workers", -1, "Parallel symbols (0 = one per CPU)")
		seed       = flag.Int64("seed", 0, "Sampler seed")
		sampler    = flag.String("sampler", "", "Sampler: 'tpe' or 'random'")
		symbols    = flag.String("symbols", "", "Comma separated symbols (default: universe or every file)")
		universe   = flag.String("universe", "", "Code/name CSV filtered into the symbol list")
		csvDir     = flag.String("csv-dir", "", "Directory of <symbol>.csv files")
		out        = flag.String("out", "", "Results CSV path")
		arrowOut   = flag.String("arrow", "", "Results Arrow IPC path")
		manifest   = flag.String("manifest", "", "Run manifest JSON path")
		toCH       = flag.Bool("clickhouse", false, "Also insert results into ClickHouse")
		verbose    = flag.Bool("verbose", false, "Enable development logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "start":
			cfg.Run.Start = *start
		case "end":
			cfg.Run.End = *end
		case "trials":
			cfg.Run.Trials = *trials
		case "workers":
			cfg.Run.Workers = *workers
		case "seed":
			cfg.Run.Seed = *seed
		case "sampler":
			cfg.Run.Sampler = *sampler
		case "symbols":
			cfg.Run.Symbols = splitSymbols(*symbols)
		case "universe":
			cfg.Run.Universe = *universe
		case "csv-dir":
			cfg.Data.CSVDir = *csvDir
		case "out":
			cfg.Output.CSV = *out
		case "arrow":
			cfg.Output.Arrow = *arrowOut
		case "manifest":
			cfg.Output.Manifest = *manifest
		case "clickhouse":
			cfg.Output.ClickHouse = *toCH
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if *verbose {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Optimization failed", zap.Error(err))
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	from, to, err := cfg.Dates()
	if err != nil {
		return err
	}
	source, closeSource, err := marketdata.Open(ctx, cfg.Data.Source, cfg.Data.CSVDir, cfg.ClickHouse, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	symbols, err := marketdata.ResolveSymbols(ctx, source, cfg.Run.Symbols, cfg.Run.Universe)
	if err != nil {
		return fmt.Errorf("resolve symbols: %w", err)
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to optimize: %w", engine.ErrNoData)
	}

	opt, err := optimizer.New(cfg.Optimizer(), engine.NewEvaluator(cfg.EngineBacktest(), logger), logger)
	if err != nil {
		return err
	}

	jobID := uuid.New().String()
	configs := engine.NewConfigManager()
	configs.SnapshotConfig(jobID, cfg.Environment, cfg.Values(), cfg.Secrets())

	sched := scheduler.New(source, opt, cfg.Run.Workers, logger)
	report, err := sched.Run(ctx, scheduler.Job{ID: jobID, Symbols: symbols, Start: from, End: to})
	if err != nil {
		return err
	}
	records := report.Records()

	if cfg.Output.CSV != "" {
		if err := results.WriteCSVFile(cfg.Output.CSV, records); err != nil {
			return err
		}
		logger.Info("CSV results written", zap.String("path", cfg.Output.CSV), zap.Int("rows", len(records)))
	}
	if cfg.Output.Arrow != "" {
		pipeline := arrowpipeline.NewPipeline(arrowpipeline.Config{}, logger)
		if err := pipeline.WriteRecordsFile(cfg.Output.Arrow, records); err != nil {
			return err
		}
	}
	if cfg.Output.ClickHouse {
		if err := storeClickHouse(ctx, cfg.ClickHouse, jobID, records, logger); err != nil {
			return err
		}
	}
	if cfg.Output.Manifest != "" {
		m := configs.Manifest(jobID, map[string]any{"space": cfg.Space, "base": cfg.Strategy}, report.Checksums())
		raw, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.Output.Manifest, raw, 0o644); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}

	fmt.Println(results.RenderTable(
		fmt.Sprintf("job %s: %d optimized, %d skipped in %s", jobID, len(records), len(report.Failures), report.Duration.Round(time.Millisecond)),
		records,
	))
	for _, v := range sched.Monitor().CheckSLOs() {
		logger.Warn("SLO violation", zap.String("detail", v))
	}
	return nil
}

// storeClickHouse uses the HTTP batch endpoint when one is configured and
// the native protocol otherwise.
func storeClickHouse(ctx context.Context, chCfg clickhouse.Config, jobID string, records []results.OptimizationRecord, logger *zap.Logger) error {
	if chCfg.HTTPURL != "" {
		batch := clickhouse.NewBatchClient(chCfg, jobID, 500)
		for _, r := range records {
			if err := batch.Add(ctx, r); err != nil {
				return err
			}
		}
		return batch.Close(ctx)
	}
	client, err := clickhouse.NewClient(ctx, chCfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.EnsureSchema(ctx); err != nil {
		return err
	}
	return client.InsertRecords(ctx, jobID, records)
}

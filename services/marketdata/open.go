package marketdata

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chandelier-backtest/services/clickhouse"
)

// Open returns the data source named by kind ("csv" or "clickhouse") and a
// func that releases it.
func Open(ctx context.Context, kind, csvDir string, chCfg clickhouse.Config, logger *zap.Logger) (DataSource, func() error, error) {
	switch kind {
	case "csv", "":
		return NewCSVSource(csvDir, logger), func() error { return nil }, nil
	case "clickhouse":
		client, err := clickhouse.NewClient(ctx, chCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create ClickHouse client: %w", err)
		}
		return NewClickHouseSource(client, logger), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown data source %q", kind)
	}
}

// ResolveSymbols picks the symbols of a run: an explicit list first, then a
// filtered universe file, then everything the source lists.
func ResolveSymbols(ctx context.Context, src DataSource, explicit []string, universe string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	if universe != "" {
		infos, err := LoadUniverse(universe)
		if err != nil {
			return nil, fmt.Errorf("load universe: %w", err)
		}
		return Codes(FilterUniverse(infos)), nil
	}
	return src.Symbols(ctx)
}

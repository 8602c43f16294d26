package marketdata

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chandelier-backtest/services/clickhouse"
	"chandelier-backtest/services/engine"
)

// ClickHouseSource reads daily bars from the bars table.
type ClickHouseSource struct {
	client *clickhouse.Client
	logger *zap.Logger
}

var _ DataSource = (*ClickHouseSource)(nil)

func NewClickHouseSource(client *clickhouse.Client, logger *zap.Logger) *ClickHouseSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickHouseSource{client: client, logger: logger}
}

func (s *ClickHouseSource) Fetch(ctx context.Context, symbol string, start, end time.Time) (engine.PriceSeries, error) {
	bars, err := s.client.QueryBars(ctx, symbol, start, end)
	if err != nil {
		return engine.PriceSeries{Symbol: symbol}, err
	}
	if len(bars) == 0 {
		s.logger.Warn("no bars in range", zap.String("symbol", symbol))
	}
	return engine.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

func (s *ClickHouseSource) Symbols(ctx context.Context) ([]string, error) {
	return s.client.Symbols(ctx)
}

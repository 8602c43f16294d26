package clickhouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/results"
)

// IngestSeries writes bars for one symbol unless a ledger entry with the same
// checksum exists, then records the ingestion in the ledger.
func (c *Client) IngestSeries(ctx context.Context, series engine.PriceSeries, checksum, source string) (bool, error) {
	var seen uint64
	err := c.conn.QueryRow(ctx,
		fmt.Sprintf("SELECT count() FROM %s WHERE symbol = ? AND checksum = ?", c.table("ingest_ledger")),
		series.Symbol, checksum,
	).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("ledger check: %w", err)
	}
	if seen > 0 {
		c.logger.Info("series already ingested", zap.String("symbol", series.Symbol))
		return false, nil
	}
	if err := c.InsertBars(ctx, series); err != nil {
		return false, err
	}
	if err := c.conn.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (symbol, checksum, row_count, source) VALUES (?, ?, ?, ?)", c.table("ingest_ledger")),
		series.Symbol, checksum, uint64(series.Len()), source,
	); err != nil {
		return false, fmt.Errorf("ledger insert: %w", err)
	}
	return true, nil
}

// InsertBars appends the series in one native batch.
func (c *Client) InsertBars(ctx context.Context, series engine.PriceSeries) error {
	if series.Empty() {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", c.table(c.cfg.BarsTable)))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	ver := uint64(time.Now().UnixNano())
	for _, b := range series.Bars {
		if err := batch.Append(series.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, b.Amount, b.PctChange, ver); err != nil {
			return fmt.Errorf("batch append: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("batch send: %w", err)
	}
	c.logger.Debug("bars inserted", zap.String("symbol", series.Symbol), zap.Int("rows", series.Len()))
	return nil
}

// InsertRecords stores one job's optimization records.
func (c *Client) InsertRecords(ctx context.Context, jobID string, records []results.OptimizationRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", c.table(c.cfg.ResultsTable)))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	now := time.Now().UTC()
	for _, r := range records {
		if err := batch.Append(
			jobID, r.Symbol,
			int32(r.Period), r.Mult, r.InvestmentFraction, int32(r.MaxPyramiding),
			r.SharpeRatio, r.MaxDrawdown, r.WinRate, r.TotalReturn,
			int8(r.LastSignal), r.LatestAmount,
			int32(r.TotalTrades), int32(r.Trials), int32(r.FailedTrials),
			r.StudyID, now,
		); err != nil {
			return fmt.Errorf("batch append: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("batch send: %w", err)
	}
	c.logger.Info("records inserted", zap.String("job_id", jobID), zap.Int("rows", len(records)))
	return nil
}

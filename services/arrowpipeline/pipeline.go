// Package arrowpipeline converts price series and optimization records to
// and from Arrow IPC streams.
package arrowpipeline

import (
	"bytes"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"go.uber.org/zap"

	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/results"
)

type Config struct {
	BatchSize int `yaml:"batch_size"` // rows per record batch
}

// Pipeline handles Arrow IPC encoding
type Pipeline struct {
	config     Config
	memoryPool memory.Allocator
	logger     *zap.Logger
}

func NewPipeline(config Config, logger *zap.Logger) *Pipeline {
	if config.BatchSize <= 0 {
		config.BatchSize = 4096
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		config:     config,
		memoryPool: memory.NewGoAllocator(),
		logger:     logger,
	}
}

var seriesSchema = arrow.NewSchema([]arrow.Field{
	{Name: "symbol", Type: arrow.BinaryTypes.String},
	{Name: "date", Type: arrow.FixedWidthTypes.Date32},
	{Name: "open", Type: arrow.PrimitiveTypes.Float64},
	{Name: "high", Type: arrow.PrimitiveTypes.Float64},
	{Name: "low", Type: arrow.PrimitiveTypes.Float64},
	{Name: "close", Type: arrow.PrimitiveTypes.Float64},
	{Name: "volume", Type: arrow.PrimitiveTypes.Float64},
	{Name: "amount", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "pct_change", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

var recordsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "symbol", Type: arrow.BinaryTypes.String},
	{Name: "period", Type: arrow.PrimitiveTypes.Int64},
	{Name: "mult", Type: arrow.PrimitiveTypes.Float64},
	{Name: "investment_fraction", Type: arrow.PrimitiveTypes.Float64},
	{Name: "max_pyramiding", Type: arrow.PrimitiveTypes.Int64},
	{Name: "sharpe_ratio", Type: arrow.PrimitiveTypes.Float64},
	{Name: "max_drawdown", Type: arrow.PrimitiveTypes.Float64},
	{Name: "win_rate", Type: arrow.PrimitiveTypes.Float64},
	{Name: "total_return", Type: arrow.PrimitiveTypes.Float64},
	{Name: "last_signal", Type: arrow.PrimitiveTypes.Int64},
	{Name: "latest_amount", Type: arrow.PrimitiveTypes.Float64},
	{Name: "total_trades", Type: arrow.PrimitiveTypes.Int64},
	{Name: "trials", Type: arrow.PrimitiveTypes.Int64},
	{Name: "failed_trials", Type: arrow.PrimitiveTypes.Int64},
	{Name: "study_id", Type: arrow.BinaryTypes.String},
}, nil)

func appendOptional(b *array.Float64Builder, v *float64) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

// ConvertSeriesToArrow encodes a price series as an IPC stream.
func (p *Pipeline) ConvertSeriesToArrow(series engine.PriceSeries) ([]byte, error) {
	if series.Empty() {
		return nil, fmt.Errorf("no bars to convert: %w", engine.ErrNoData)
	}
	rb := array.NewRecordBuilder(p.memoryPool, seriesSchema)
	defer rb.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(seriesSchema), ipc.WithAllocator(p.memoryPool))

	flush := func() error {
		rec := rb.NewRecord()
		defer rec.Release()
		return writer.Write(rec)
	}
	for i, bar := range series.Bars {
		rb.Field(0).(*array.StringBuilder).Append(series.Symbol)
		rb.Field(1).(*array.Date32Builder).Append(arrow.Date32FromTime(bar.Date))
		rb.Field(2).(*array.Float64Builder).Append(bar.Open)
		rb.Field(3).(*array.Float64Builder).Append(bar.High)
		rb.Field(4).(*array.Float64Builder).Append(bar.Low)
		rb.Field(5).(*array.Float64Builder).Append(bar.Close)
		rb.Field(6).(*array.Float64Builder).Append(bar.Volume)
		appendOptional(rb.Field(7).(*array.Float64Builder), bar.Amount)
		appendOptional(rb.Field(8).(*array.Float64Builder), bar.PctChange)
		if (i+1)%p.config.BatchSize == 0 {
			if err := flush(); err != nil {
				writer.Close()
				return nil, fmt.Errorf("failed to write Arrow record: %w", err)
			}
		}
	}
	if len(series.Bars)%p.config.BatchSize != 0 {
		if err := flush(); err != nil {
			writer.Close()
			return nil, fmt.Errorf("failed to write Arrow record: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close Arrow writer: %w", err)
	}
	p.logger.Debug("series encoded", zap.String("symbol", series.Symbol), zap.Int("bars", series.Len()), zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// ConvertSeriesFromArrow decodes a stream written by ConvertSeriesToArrow.
func (p *Pipeline) ConvertSeriesFromArrow(data []byte) (engine.PriceSeries, error) {
	var series engine.PriceSeries
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithSchema(seriesSchema), ipc.WithAllocator(p.memoryPool))
	if err != nil {
		return series, fmt.Errorf("open Arrow stream: %w", err)
	}
	defer r.Release()

	for r.Next() {
		rec := r.Record()
		sym := rec.Column(0).(*array.String)
		dates := rec.Column(1).(*array.Date32)
		f := func(i int) *array.Float64 { return rec.Column(i).(*array.Float64) }
		for i := 0; i < int(rec.NumRows()); i++ {
			series.Symbol = sym.Value(i)
			bar := engine.Bar{
				Date:   dates.Value(i).ToTime().UTC(),
				Open:   f(2).Value(i),
				High:   f(3).Value(i),
				Low:    f(4).Value(i),
				Close:  f(5).Value(i),
				Volume: f(6).Value(i),
			}
			if !f(7).IsNull(i) {
				v := f(7).Value(i)
				bar.Amount = &v
			}
			if !f(8).IsNull(i) {
				v := f(8).Value(i)
				bar.PctChange = &v
			}
			series.Bars = append(series.Bars, bar)
		}
	}
	return series, r.Err()
}

// ConvertRecordsToArrow encodes optimization records as a single batch.
func (p *Pipeline) ConvertRecordsToArrow(records []results.OptimizationRecord) ([]byte, error) {
	rb := array.NewRecordBuilder(p.memoryPool, recordsSchema)
	defer rb.Release()

	for _, r := range records {
		rb.Field(0).(*array.StringBuilder).Append(r.Symbol)
		rb.Field(1).(*array.Int64Builder).Append(int64(r.Period))
		rb.Field(2).(*array.Float64Builder).Append(r.Mult)
		rb.Field(3).(*array.Float64Builder).Append(r.InvestmentFraction)
		rb.Field(4).(*array.Int64Builder).Append(int64(r.MaxPyramiding))
		rb.Field(5).(*array.Float64Builder).Append(r.SharpeRatio)
		rb.Field(6).(*array.Float64Builder).Append(r.MaxDrawdown)
		rb.Field(7).(*array.Float64Builder).Append(r.WinRate)
		rb.Field(8).(*array.Float64Builder).Append(r.TotalReturn)
		rb.Field(9).(*array.Int64Builder).Append(int64(r.LastSignal))
		rb.Field(10).(*array.Float64Builder).Append(r.LatestAmount)
		rb.Field(11).(*array.Int64Builder).Append(int64(r.TotalTrades))
		rb.Field(12).(*array.Int64Builder).Append(int64(r.Trials))
		rb.Field(13).(*array.Int64Builder).Append(int64(r.FailedTrials))
		rb.Field(14).(*array.StringBuilder).Append(r.StudyID)
	}
	rec := rb.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(recordsSchema), ipc.WithAllocator(p.memoryPool))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write Arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close Arrow writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ConvertRecordsFromArrow decodes a stream written by ConvertRecordsToArrow.
func (p *Pipeline) ConvertRecordsFromArrow(data []byte) ([]results.OptimizationRecord, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithSchema(recordsSchema), ipc.WithAllocator(p.memoryPool))
	if err != nil {
		return nil, fmt.Errorf("open Arrow stream: %w", err)
	}
	defer r.Release()

	var out []results.OptimizationRecord
	for r.Next() {
		rec := r.Record()
		str := func(c int) *array.String { return rec.Column(c).(*array.String) }
		i64 := func(c int) *array.Int64 { return rec.Column(c).(*array.Int64) }
		f64 := func(c int) *array.Float64 { return rec.Column(c).(*array.Float64) }
		for i := 0; i < int(rec.NumRows()); i++ {
			out = append(out, results.OptimizationRecord{
				Symbol:             str(0).Value(i),
				Period:             int(i64(1).Value(i)),
				Mult:               f64(2).Value(i),
				InvestmentFraction: f64(3).Value(i),
				MaxPyramiding:      int(i64(4).Value(i)),
				SharpeRatio:        f64(5).Value(i),
				MaxDrawdown:        f64(6).Value(i),
				WinRate:            f64(7).Value(i),
				TotalReturn:        f64(8).Value(i),
				LastSignal:         int(i64(9).Value(i)),
				LatestAmount:       f64(10).Value(i),
				TotalTrades:        int(i64(11).Value(i)),
				Trials:             int(i64(12).Value(i)),
				FailedTrials:       int(i64(13).Value(i)),
				StudyID:            str(14).Value(i),
			})
		}
	}
	return out, r.Err()
}

// WriteRecordsFile sorts records by symbol and writes them as an IPC stream.
func (p *Pipeline) WriteRecordsFile(path string, records []results.OptimizationRecord) error {
	sorted := append([]results.OptimizationRecord(nil), records...)
	results.SortBySymbol(sorted)
	data, err := p.ConvertRecordsToArrow(sorted)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	p.logger.Info("Arrow results written", zap.String("path", path), zap.Int("rows", len(sorted)))
	return nil
}

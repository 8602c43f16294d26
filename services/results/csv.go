package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"chandelier-backtest/services/engine"
)

var Header = []string{
	"symbol", "period", "mult", "investment_fraction", "max_pyramiding",
	"sharpe_ratio", "max_drawdown", "win_rate", "total_return", "last_signal",
	"latest_amount", "total_trades", "trials", "failed_trials", "study_id",
}

func num(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).String()
}

// WriteCSV writes records in the order given.
func WriteCSV(w io.Writer, records []OptimizationRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Symbol,
			strconv.Itoa(r.Period),
			num(r.Mult, 6),
			num(r.InvestmentFraction, 6),
			strconv.Itoa(r.MaxPyramiding),
			num(r.SharpeRatio, 6),
			num(r.MaxDrawdown, 6),
			num(r.WinRate, 6),
			num(r.TotalReturn, 6),
			strconv.Itoa(r.LastSignal),
			num(r.LatestAmount, 2),
			strconv.Itoa(r.TotalTrades),
			strconv.Itoa(r.Trials),
			strconv.Itoa(r.FailedTrials),
			r.StudyID,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSVFile sorts records by symbol and writes them to path.
func WriteCSVFile(path string, records []OptimizationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	sorted := append([]OptimizationRecord(nil), records...)
	SortBySymbol(sorted)
	if err := WriteCSV(f, sorted); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadCSV parses records written by WriteCSV.
func ReadCSV(r io.Reader) ([]OptimizationRecord, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		idx[h] = i
	}
	for _, h := range Header {
		if _, ok := idx[h]; !ok {
			return nil, fmt.Errorf("missing column %q", h)
		}
	}

	out := make([]OptimizationRecord, 0, len(rows)-1)
	for line, row := range rows[1:] {
		p := rowParser{row: row, idx: idx}
		rec := OptimizationRecord{
			Symbol:             p.str("symbol"),
			Period:             p.atoi("period"),
			Mult:               p.atof("mult"),
			InvestmentFraction: p.atof("investment_fraction"),
			MaxPyramiding:      p.atoi("max_pyramiding"),
			SharpeRatio:        p.atof("sharpe_ratio"),
			MaxDrawdown:        p.atof("max_drawdown"),
			WinRate:            p.atof("win_rate"),
			TotalReturn:        p.atof("total_return"),
			LastSignal:         p.atoi("last_signal"),
			LatestAmount:       p.atof("latest_amount"),
			TotalTrades:        p.atoi("total_trades"),
			Trials:             p.atoi("trials"),
			FailedTrials:       p.atoi("failed_trials"),
			StudyID:            p.str("study_id"),
		}
		if p.err != nil {
			return nil, fmt.Errorf("line %d: %w", line+2, p.err)
		}
		out = append(out, rec)
	}
	return out, nil
}

type rowParser struct {
	row []string
	idx map[string]int
	err error
}

func (p *rowParser) str(col string) string { return p.row[p.idx[col]] }

func (p *rowParser) atoi(col string) int {
	v, err := strconv.Atoi(p.str(col))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}

func (p *rowParser) atof(col string) float64 {
	v, err := strconv.ParseFloat(p.str(col), 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}

var traceHeader = []string{
	"date", "close", "ready", "atr", "rolling_high", "rolling_low", "zlsma",
	"long_stop", "short_stop", "direction", "signal", "reason",
	"action", "size", "decision_reason", "position", "pyramid_count", "value",
}

// WriteTrace exports a per-bar decision trace.
func WriteTrace(w io.Writer, decisions []engine.DecisionRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(traceHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, d := range decisions {
		row := []string{
			d.Date.Format("2006-01-02"),
			f(d.Close),
			strconv.FormatBool(d.Snapshot.Ready),
			"", "", "", "", "", "",
			d.Direction.String(),
			strconv.Itoa(int(d.Signal.Code)),
			d.Signal.Reason,
			d.Decision.Action.String(),
			strconv.FormatInt(d.Decision.Size, 10),
			d.Decision.Reason,
			strconv.FormatInt(d.Position.Size, 10),
			strconv.Itoa(d.Position.PyramidCount),
			num(d.Value, 2),
		}
		if d.Snapshot.Ready {
			row[3], row[4], row[5], row[6] = f(d.Snapshot.ATR), f(d.Snapshot.RollingHigh), f(d.Snapshot.RollingLow), f(d.Snapshot.ZLSMA)
		}
		if d.Stops.Ready {
			row[7], row[8] = f(d.Stops.LongStop), f(d.Stops.ShortStop)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

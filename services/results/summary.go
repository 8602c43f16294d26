package results

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	entryStyle  = cellStyle.Foreground(lipgloss.Color("10"))
	exitStyle   = cellStyle.Foreground(lipgloss.Color("9"))
)

// signalColumn is the index of the last-signal column in RenderTable.
const signalColumn = 8

// RenderTable formats records for a terminal, colouring entry signals green
// and exit/reduce signals red.
func RenderTable(title string, records []OptimizationRecord) string {
	rows := make([][]string, len(records))
	codes := make([]int, len(records))
	for i, r := range records {
		codes[i] = r.LastSignal
		rows[i] = []string{
			r.Symbol,
			strconv.Itoa(r.Period),
			num(r.Mult, 2),
			num(r.InvestmentFraction, 2),
			strconv.Itoa(r.MaxPyramiding),
			num(r.SharpeRatio, 3),
			num(r.MaxDrawdown, 2) + "%",
			num(r.TotalReturn*100, 2) + "%",
			strconv.Itoa(r.LastSignal),
			fmt.Sprintf("%d/%d", r.Trials-r.FailedTrials, r.Trials),
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("symbol", "period", "mult", "fraction", "pyramid", "sharpe", "max dd", "return", "signal", "trials").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == signalColumn && row >= 0 && row < len(codes) {
				switch {
				case codes[row] == 1 || codes[row] == 2 || codes[row] == 3:
					return entryStyle
				case codes[row] < 0:
					return exitStyle
				}
			}
			return cellStyle
		})
	return titleStyle.Render(title) + "\n" + t.String()
}

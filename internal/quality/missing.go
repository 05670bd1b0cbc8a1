package quality

import "math"

// PerfectScore is the best possible quality score.
const PerfectScore = 100.0

// ColumnMissingDetail describes missing cells in one column.
type ColumnMissingDetail struct {
	Count      int     `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	Rows       []int   `json:"rows" yaml:"rows"` // 1-based row numbers
}

// MissingDataReport summarises absent and empty cells per column.
type MissingDataReport struct {
	Columns map[string]ColumnMissingDetail `json:"columns" yaml:"columns"`
	Order   []string                       `json:"order" yaml:"order"`
	Score   float64                        `json:"score" yaml:"score"`
}

// AnalyzeMissingData scans every cell. A cell is missing when it is absent
// or the empty string. With no rows the report is empty and scores 100.
func AnalyzeMissingData(t *Table) MissingDataReport {
	report := MissingDataReport{
		Columns: make(map[string]ColumnMissingDetail),
		Score:   PerfectScore,
	}
	if t == nil || t.Len() == 0 || len(t.columns) == 0 {
		return report
	}

	rowCount := float64(t.Len())
	var sum float64
	for pos, col := range t.columns {
		detail := ColumnMissingDetail{Rows: []int{}}
		for i, row := range t.rows {
			if row.fields[pos].Missing() {
				detail.Count++
				detail.Rows = append(detail.Rows, i+1)
			}
		}
		pct := float64(detail.Count) / rowCount * 100
		detail.Percentage = Round2(pct)
		sum += pct

		report.Columns[col] = detail
		report.Order = append(report.Order, col)
	}

	report.Score = Round2(PerfectScore - sum/float64(len(t.columns)))
	return report
}

// Cells returns the total number of missing cells.
func (m MissingDataReport) Cells() int {
	n := 0
	for _, d := range m.Columns {
		n += d.Count
	}
	return n
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

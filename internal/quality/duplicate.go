package quality

import (
	"sort"
	"strconv"
	"strings"
)

// DuplicateGroup lists the 1-based row numbers sharing one canonical row.
type DuplicateGroup struct {
	Rows []int `json:"rows" yaml:"rows"`
}

// DuplicateDataReport summarises repeated rows.
type DuplicateDataReport struct {
	RowCount            int              `json:"rowCount" yaml:"rowCount"`
	DuplicateCount      int              `json:"duplicateCount" yaml:"duplicateCount"`
	DuplicatePercentage float64          `json:"duplicatePercentage" yaml:"duplicatePercentage"`
	Score               float64          `json:"score" yaml:"score"`
	Groups              []DuplicateGroup `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// AnalyzeDuplicateData counts rows whose column → value pairs repeat an
// earlier row. duplicateCount = rows - distinct rows.
func AnalyzeDuplicateData(t *Table) DuplicateDataReport {
	report := DuplicateDataReport{Score: PerfectScore}
	if t == nil || t.Len() == 0 {
		return report
	}

	seen := make(map[string][]int, t.Len())
	var order []string
	for i := range t.rows {
		key := t.CanonicalKey(i)
		if _, ok := seen[key]; !ok {
			order = append(order, key)
		}
		seen[key] = append(seen[key], i+1)
	}

	for _, key := range order {
		if rows := seen[key]; len(rows) > 1 {
			report.Groups = append(report.Groups, DuplicateGroup{Rows: rows})
		}
	}

	report.RowCount = t.Len()
	report.DuplicateCount = t.Len() - len(seen)
	pct := float64(report.DuplicateCount) / float64(report.RowCount) * 100
	report.DuplicatePercentage = Round2(pct)
	report.Score = Round2(PerfectScore - pct)
	return report
}

// CanonicalKey serialises row i as its present column → value pairs sorted
// by column name, so equal rows compare equal whatever their column order.
// Absent fields contribute no pair. Each component is length-prefixed.
func (t *Table) CanonicalKey(i int) string {
	type pair struct{ k, v string }
	row := t.rows[i]
	pairs := make([]pair, 0, len(row.fields))
	for pos, f := range row.fields {
		if f.Present {
			pairs = append(pairs, pair{t.columns[pos], f.Value})
		}
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].k < pairs[b].k })

	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(strconv.Itoa(len(p.k)))
		b.WriteByte(':')
		b.WriteString(p.k)
		b.WriteString(strconv.Itoa(len(p.v)))
		b.WriteByte(':')
		b.WriteString(p.v)
	}
	return b.String()
}

// Package templates holds the dashboard's HTML components. The .templ
// sources are compiled with `templ generate`.
package templates

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/sales-ai-analyst/internal/quality"
)

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

const stylesheet = `<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f6f8fb;color:#1f2933}
header{display:flex;justify-content:space-between;align-items:center;padding:.75rem 1.5rem;background:#1f3a5f;color:#fff}
header a,header button{color:#fff}
main{max-width:72rem;margin:1.5rem auto;padding:0 1rem}
section{background:#fff;border:1px solid #dde3ea;border-radius:6px;padding:1rem;margin-bottom:1rem}
table{border-collapse:collapse;width:100%;font-size:.9rem}
th,td{border:1px solid #dde3ea;padding:.3rem .5rem;text-align:left}
th{background:#e7eef7}
td.missing{background:#fde2e1}
.alert{padding:.75rem 1rem;border-radius:6px;margin-bottom:1rem}
.alert-error{background:#fde2e1;border:1px solid #f5a9a4}
.alert-warning{background:#fff4d6;border:1px solid #f2d27a}
.alert-success{background:#e3f6e8;border:1px solid #9fd8ad}
.field-error{color:#b42318;font-size:.85rem}
form.inline{display:inline}
.code{color:#6b7785;font-size:.8rem}
</style>`

// missingCells maps column → 1-based row → missing, from the last scan.
func missingCells(res *quality.Result) map[string]map[int]bool {
	out := make(map[string]map[int]bool)
	if res == nil || res.Missing == nil {
		return out
	}
	for col, detail := range res.Missing.Columns {
		rows := make(map[int]bool, len(detail.Rows))
		for _, r := range detail.Rows {
			rows[r] = true
		}
		out[col] = rows
	}
	return out
}

func columnName(header []string, i int) string {
	if i < len(header) {
		return header[i]
	}
	return ""
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func joinRows(rows []int) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ", ")
}

package core

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	dataSheet    = "Data"
	qualitySheet = "Quality"
)

// Export builds a workbook for the session's active table.
// The second return value is a download file name.
func (s *Service) Export(sessionID string) (*excelize.File, string, error) {
	v, err := s.Snapshot(sessionID)
	if err != nil {
		return nil, "", err
	}
	if !v.HasTable() {
		return nil, "", ErrNoActiveTable
	}
	wb, err := ExportWorkbook(v)
	if err != nil {
		return nil, "", err
	}
	return wb, exportFileName(v.FileName), nil
}

func exportFileName(upload string) string {
	base := strings.TrimSuffix(filepath.Base(upload), filepath.Ext(upload))
	if base == "" || base == "." {
		base = "data"
	}
	return base + "-quality.xlsx"
}

// ExportWorkbook writes the table to a "Data" sheet, with missing cells
// shaded, and the quality report to a "Quality" sheet.
func ExportWorkbook(v ViewState) (*excelize.File, error) {
	wb := excelize.NewFile()
	if err := wb.SetSheetName("Sheet1", dataSheet); err != nil {
		return nil, err
	}
	if _, err := wb.NewSheet(qualitySheet); err != nil {
		return nil, err
	}

	header, err := wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E7EEF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	missing, err := wb.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FDE2E1"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	if err := writeDataSheet(wb, v, header, missing); err != nil {
		return nil, err
	}
	if err := writeQualitySheet(wb, v, header); err != nil {
		return nil, err
	}
	return wb, nil
}

func writeDataSheet(wb *excelize.File, v ViewState, headerStyle, missingStyle int) error {
	for i, rec := range v.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(rec))
		for j, val := range rec {
			row[j] = val
		}
		if err := wb.SetSheetRow(dataSheet, cell, &row); err != nil {
			return err
		}
	}
	if len(v.Records) > 0 {
		if err := wb.SetRowStyle(dataSheet, 1, 1, headerStyle); err != nil {
			return err
		}
	}

	if v.Result == nil || v.Result.Missing == nil {
		return nil
	}
	for col, name := range v.Records[0] {
		detail, ok := v.Result.Missing.Columns[name]
		if !ok {
			continue
		}
		for _, r := range detail.Rows {
			cell, err := excelize.CoordinatesToCellName(col+1, r+1)
			if err != nil {
				return err
			}
			if err := wb.SetCellStyle(dataSheet, cell, cell, missingStyle); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeQualitySheet(wb *excelize.File, v ViewState, headerStyle int) error {
	rows := [][]interface{}{
		{"File", v.FileName},
		{"Mode", string(v.Mode)},
	}
	res := v.Result
	if res == nil {
		rows = append(rows, []interface{}{"Status", "Not analysed"})
		return writeRows(wb, qualitySheet, 1, rows)
	}

	rows = append(rows,
		[]interface{}{"Rows", res.Rows},
		[]interface{}{"Columns", res.Columns},
	)
	if len(res.MissingColumns) > 0 {
		rows = append(rows, []interface{}{"Missing required columns", strings.Join(res.MissingColumns, ", ")})
		return writeRows(wb, qualitySheet, 1, rows)
	}

	rows = append(rows,
		[]interface{}{"Quality score", res.Quality},
		[]interface{}{"Missing data score", res.Missing.Score},
		[]interface{}{"Duplicate data score", res.Duplicates.Score},
		[]interface{}{"Duplicate rows", res.Duplicates.DuplicateCount},
		[]interface{}{},
	)
	next := len(rows) + 1
	if err := writeRows(wb, qualitySheet, 1, rows); err != nil {
		return err
	}

	detail := [][]interface{}{{"Column", "Missing cells", "Missing %", "Rows"}}
	for _, col := range res.Missing.Order {
		d := res.Missing.Columns[col]
		detail = append(detail, []interface{}{col, d.Count, d.Percentage, joinInts(d.Rows)})
	}
	if err := writeRows(wb, qualitySheet, next, detail); err != nil {
		return err
	}
	if err := wb.SetRowStyle(qualitySheet, next, next, headerStyle); err != nil {
		return err
	}
	next += len(detail) + 1

	if len(res.Duplicates.Groups) == 0 {
		return nil
	}
	groups := [][]interface{}{{"Duplicate group", "Rows"}}
	for i, g := range res.Duplicates.Groups {
		groups = append(groups, []interface{}{i + 1, joinInts(g.Rows)})
	}
	if err := writeRows(wb, qualitySheet, next, groups); err != nil {
		return err
	}
	return wb.SetRowStyle(qualitySheet, next, next, headerStyle)
}

func writeRows(wb *excelize.File, sheet string, startRow int, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, startRow+i, err)
		}
	}
	return nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

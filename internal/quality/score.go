package quality

import "fmt"

// Score combines the missing-data and duplicate-data scores.
func Score(missingScore, duplicateScore float64) float64 {
	return Round2((missingScore + duplicateScore) / 2)
}

// Result is the outcome of running the full check for one table and mode.
// When MissingColumns is non-empty the scans were skipped and Missing,
// Duplicates and Quality are zero values.
type Result struct {
	Mode           Mode                 `json:"mode" yaml:"mode"`
	Rows           int                  `json:"rows" yaml:"rows"`
	Columns        int                  `json:"columns" yaml:"columns"`
	MissingColumns []string             `json:"missingColumns" yaml:"missingColumns"`
	Missing        *MissingDataReport   `json:"missing,omitempty" yaml:"missing,omitempty"`
	Duplicates     *DuplicateDataReport `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Quality        float64              `json:"quality" yaml:"quality"`
}

// Scanned reports whether the data-quality scans ran.
func (r Result) Scanned() bool {
	return r.Missing != nil && r.Duplicates != nil
}

// Perfect reports whether the scans ran and found nothing to flag. It
// checks the counts rather than the rounded scores: one duplicate among
// tens of thousands of rows still rounds to 100.00.
func (r Result) Perfect() bool {
	return r.Scanned() && r.Missing.Cells() == 0 && r.Duplicates.DuplicateCount == 0
}

// Err returns a *MissingColumnsError when required columns are absent.
func (r Result) Err() error {
	if len(r.MissingColumns) == 0 {
		return nil
	}
	return &MissingColumnsError{Mode: r.Mode, Columns: r.MissingColumns}
}

// Warning describes a sub-perfect score for display, or "" when perfect
// or not scanned.
func (r Result) Warning() string {
	if !r.Scanned() || r.Perfect() {
		return ""
	}
	return fmt.Sprintf(
		"Data quality score is %.2f%% (%d missing cells, %d duplicate rows of %d)",
		r.Quality, r.Missing.Cells(), r.Duplicates.DuplicateCount, r.Duplicates.RowCount,
	)
}

// Analyze validates the table's columns for mode and, only when none are
// missing, runs both scans and combines their scores.
func Analyze(t *Table, mode Mode) Result {
	res := Result{
		Mode:           mode,
		MissingColumns: ValidateColumns(t, mode),
	}
	if t != nil {
		res.Rows = t.Len()
		res.Columns = len(t.columns)
	}
	if len(res.MissingColumns) > 0 {
		return res
	}

	missing := AnalyzeMissingData(t)
	dups := AnalyzeDuplicateData(t)
	res.Missing = &missing
	res.Duplicates = &dups
	res.Quality = Score(missing.Score, dups.Score)
	return res
}

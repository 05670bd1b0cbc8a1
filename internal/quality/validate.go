package quality

// ValidateColumns returns the mode's required columns that the table lacks,
// in the mode's declared order. Extra columns are ignored. A nil table
// lacks every required column.
func ValidateColumns(t *Table, mode Mode) []string {
	missing := []string{}
	for _, col := range RequiredColumns(mode) {
		if t == nil || !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

package quality

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput is returned by Parse when there is no header line.
	ErrEmptyInput = errors.New("empty file: no header line")

	// ErrMalformedInput wraps CSV syntax errors from the reader.
	ErrMalformedInput = errors.New("invalid csv")

	// ErrUnknownColumn is returned when an edit names a column the table lacks.
	ErrUnknownColumn = errors.New("column not found")

	// ErrRowOutOfRange is returned when an edit names a row the table lacks.
	ErrRowOutOfRange = errors.New("row out of range")

	// ErrUnknownMode is returned by ParseMode for unrecognised names.
	ErrUnknownMode = errors.New("unknown analysis mode")
)

// MissingColumnsError reports required columns absent from a table.
type MissingColumnsError struct {
	Mode    Mode
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns for %s: %s", e.Mode, strings.Join(e.Columns, ", "))
}

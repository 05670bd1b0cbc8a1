// Package quality parses CSV data into tables and scores their quality.
//
// Everything here is pure: functions take a *Table (and a Mode where column
// requirements matter) and return derived reports. Nothing is persisted and
// nothing is shared between calls, so callers may run analyses from any
// goroutine as long as they don't mutate the table concurrently.
package quality

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Field is a single cell. Present is false when the source line ended
// before this column; a present field may still hold the empty string.
type Field struct {
	Value   string
	Present bool
}

// Missing reports whether the cell is absent or empty.
func (f Field) Missing() bool {
	return !f.Present || f.Value == ""
}

// Row holds one field per table column, in column order.
// Rows are only built by Table so the key set always matches the header.
type Row struct {
	fields []Field
}

// Len returns the number of fields in the row.
func (r Row) Len() int { return len(r.fields) }

// Field returns the field at column position i.
func (r Row) Field(i int) Field { return r.fields[i] }

// Table is an ordered list of rows sharing the key set derived from a header.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// NewTable creates an empty table with the given columns.
// Column names are normalized; duplicate names get a " (n)" suffix.
func NewTable(columns []string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

func (t *Table) addColumn(name string) string {
	name = normalizeHeader(name)
	unique := name
	for n := 2; ; n++ {
		if _, taken := t.index[unique]; !taken {
			break
		}
		unique = name + " (" + strconv.Itoa(n) + ")"
	}
	t.index[unique] = len(t.columns)
	t.columns = append(t.columns, unique)
	return unique
}

// Columns returns the column names in header order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the table has a column with this exact name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns the row at zero-based index i.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Cell returns the field for row i (zero-based) and the named column.
func (t *Table) Cell(i int, column string) (Field, bool) {
	pos, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.rows) {
		return Field{}, false
	}
	return t.rows[i].fields[pos], true
}

// AppendRecord appends a positional record. Short records get absent
// trailing fields; fields beyond the header are dropped.
func (t *Table) AppendRecord(record []string) {
	fields := make([]Field, len(t.columns))
	for i := range fields {
		if i < len(record) {
			fields[i] = Field{Value: record[i], Present: true}
		}
	}
	t.rows = append(t.rows, Row{fields: fields})
}

// appendMap appends a row given as column → value pairs. Columns missing
// from values are absent. Keys that are not table columns are an error.
func (t *Table) appendMap(values map[string]string) error {
	fields := make([]Field, len(t.columns))
	for k, v := range values {
		pos, ok := t.index[k]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, k)
		}
		fields[pos] = Field{Value: v, Present: true}
	}
	t.rows = append(t.rows, Row{fields: fields})
	return nil
}

// SetCell overwrites the value at row i (zero-based) and marks it present.
func (t *Table) SetCell(i int, column, value string) error {
	pos, ok := t.index[column]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, i+1)
	}
	t.rows[i].fields[pos] = Field{Value: value, Present: true}
	return nil
}

// AddColumn appends a new column with an empty, present value in every row
// and returns the name actually used.
func (t *Table) AddColumn(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty column name", ErrUnknownColumn)
	}
	if t.HasColumn(normalizeHeader(name)) {
		return "", fmt.Errorf("column %q already exists", normalizeHeader(name))
	}
	added := t.addColumn(name)
	for i := range t.rows {
		t.rows[i].fields = append(t.rows[i].fields, Field{Present: true})
	}
	return added, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		columns: t.Columns(),
		index:   make(map[string]int, len(t.index)),
		rows:    make([]Row, len(t.rows)),
	}
	for k, v := range t.index {
		c.index[k] = v
	}
	for i, r := range t.rows {
		fields := make([]Field, len(r.fields))
		copy(fields, r.fields)
		c.rows[i] = Row{fields: fields}
	}
	return c
}

// Records returns the table as a header record followed by data records,
// the shape used for display and export. Absent fields render as "".
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Columns())
	for _, r := range t.rows {
		rec := make([]string, len(r.fields))
		for i, f := range r.fields {
			rec[i] = f.Value
		}
		out = append(out, rec)
	}
	return out
}

// Parse reads CSV text into a Table. The first record is the header.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	if isBlankRecord(header) {
		return nil, ErrEmptyInput
	}

	t := NewTable(header)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
		t.AppendRecord(record)
	}
	return t, nil
}

// ParseBytes is Parse over an in-memory buffer.
func ParseBytes(data []byte) (*Table, error) {
	return Parse(bytes.NewReader(data))
}

// normalizeHeader trims whitespace and a stray BOM and applies NFC so
// visually identical headers compare equal.
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return norm.NFC.String(s)
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if normalizeHeader(v) != "" {
			return false
		}
	}
	return true
}

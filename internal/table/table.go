// Package table decodes uploaded spreadsheets into in-memory tables.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmpty is returned when a source has no header row.
var ErrEmpty = errors.New("table has no header row")

// Table is a fully materialized sheet: a header row and string cells.
// An empty cell is treated as null by the report pipeline.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
	// Lines holds the 1-based source row of each entry in Rows, counting the header.
	Lines []int
}

// New builds a table, padding short rows to the header width. rows are taken
// to follow the header directly, so rows[0] sits on source row 2.
func New(name string, columns []string, rows [][]string) *Table {
	return build(name, columns, rows, nil)
}

// build skips blank rows while keeping each remaining row's source position.
// A nil lines slice numbers rows consecutively after the header.
func build(name string, columns []string, rows [][]string, lines []int) *Table {
	t := &Table{Name: name, Columns: make([]string, len(columns))}
	for i, c := range columns {
		t.Columns[i] = strings.TrimSpace(c)
	}
	for i, r := range rows {
		if isBlank(r) {
			continue
		}
		row := make([]string, len(columns))
		copy(row, r)
		t.Rows = append(t.Rows, row)
		line := i + 2
		if lines != nil {
			line = lines[i]
		}
		t.Lines = append(t.Lines, line)
	}
	return t
}

// Line returns the source row number of data row i.
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (t *Table) Has(column string) bool {
	return t.Index(column) >= 0
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Clone returns a deep copy so callers can normalize cells without touching the input.
func (t *Table) Clone() *Table {
	c := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Lines:   append([]int(nil), t.Lines...),
	}
	c.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		c.Rows[i] = append([]string(nil), r...)
	}
	return c
}

// Read decodes r according to the extension of filename.
func Read(name, filename string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV(name, r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(name, r)
	default:
		return nil, fmt.Errorf("%s: unsupported file type %q", name, filepath.Ext(filename))
	}
}

// ReadCSV decodes a comma-separated table. The first record is the header.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read csv header: %w", name, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	// encoding/csv drops empty lines, so positions come from the reader.
	var rows [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: read csv: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line)
	}
	return build(name, header, rows, lines), nil
}

// ReadXLSX decodes the first sheet of a workbook. The first row is the header.
func ReadXLSX(name string, r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: open workbook: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%s: read sheet %q: %w", name, sheets[0], err)
	}
	if len(all) == 0 || isBlank(all[0]) {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}
	return New(name, all[0], all[1:]), nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

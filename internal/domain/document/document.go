// Package document defines the in-memory tabular data model: an ordered
// list of sheets, each an ordered list of columns and rows of scalar cells.
// Sheet, column, and row order are significant and survive persistence.
package document

import (
	"errors"
	"fmt"
)

// ErrInvalidDocument indicates a structurally invalid document.
var ErrInvalidDocument = errors.New("invalid document")

// Row holds one cell per column, aligned with the sheet's Columns slice.
type Row []Value

// Sheet is a named table of rows.
type Sheet struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Document is an ordered collection of sheets.
type Document struct {
	Sheets []Sheet `json:"sheets"`
}

// Sheet returns the sheet with the given name, or nil.
func (d *Document) Sheet(name string) *Sheet {
	for i := range d.Sheets {
		if d.Sheets[i].Name == name {
			return &d.Sheets[i]
		}
	}
	return nil
}

// SheetNames returns sheet names in document order.
func (d *Document) SheetNames() []string {
	names := make([]string, len(d.Sheets))
	for i, s := range d.Sheets {
		names[i] = s.Name
	}
	return names
}

// Validate checks structural invariants: non-empty unique sheet names and
// every row aligned with its sheet's column list.
func (d *Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Sheets))
	for _, sheet := range d.Sheets {
		if sheet.Name == "" {
			return fmt.Errorf("%w: sheet with empty name", ErrInvalidDocument)
		}
		if _, dup := seen[sheet.Name]; dup {
			return fmt.Errorf("%w: duplicate sheet %q", ErrInvalidDocument, sheet.Name)
		}
		seen[sheet.Name] = struct{}{}

		for i, row := range sheet.Rows {
			if len(row) != len(sheet.Columns) {
				return fmt.Errorf("%w: sheet %q row %d has %d cells, want %d",
					ErrInvalidDocument, sheet.Name, i, len(row), len(sheet.Columns))
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Sheets: make([]Sheet, len(d.Sheets))}
	for i, sheet := range d.Sheets {
		cp := Sheet{
			Name:    sheet.Name,
			Columns: append([]string(nil), sheet.Columns...),
			Rows:    make([]Row, len(sheet.Rows)),
		}
		for j, row := range sheet.Rows {
			cp.Rows[j] = append(Row(nil), row...)
		}
		out.Sheets[i] = cp
	}
	return out
}

// Equal reports deep equality including sheet, column, and row order.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.Sheets) != len(o.Sheets) {
		return false
	}
	for i := range d.Sheets {
		if !sheetEqual(d.Sheets[i], o.Sheets[i]) {
			return false
		}
	}
	return true
}

func sheetEqual(a, b Sheet) bool {
	if a.Name != b.Name || len(a.Columns) != len(b.Columns) || len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	for i := range a.Rows {
		if len(a.Rows[i]) != len(b.Rows[i]) {
			return false
		}
		for j := range a.Rows[i] {
			if !a.Rows[i][j].Equal(b.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// Package xlsx converts between spreadsheet files and the document model.
// Sheet order, column order, and row order are preserved exactly in both
// directions; files that cannot be parsed are rejected, never truncated.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/hartwell/gridsync/internal/domain/document"
)

var (
	// ErrDecode indicates the uploaded file could not be parsed.
	ErrDecode = errors.New("cannot decode spreadsheet")
	// ErrEncode indicates the document could not be rendered to a file.
	ErrEncode = errors.New("cannot encode spreadsheet")
)

// Decode parses an xlsx file into a Document. The first row of each sheet
// is the column header; remaining rows become data rows aligned to it.
func Decode(r io.Reader) (*document.Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	doc := &document.Document{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrDecode, name, err)
		}

		sheet := document.Sheet{Name: name}
		if len(rows) > 0 {
			sheet.Columns = append([]string(nil), rows[0]...)
		}

		for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
			row := make(document.Row, len(sheet.Columns))
			for colIdx := range sheet.Columns {
				cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrDecode, err)
				}
				row[colIdx], err = readCell(f, name, cell)
				if err != nil {
					return nil, err
				}
			}
			sheet.Rows = append(sheet.Rows, row)
		}
		doc.Sheets = append(doc.Sheets, sheet)
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return doc, nil
}

// Encode renders the document as an xlsx file.
func Encode(doc *document.Document, w io.Writer) error {
	if doc == nil || len(doc.Sheets) == 0 {
		return fmt.Errorf("%w: document has no sheets", ErrEncode)
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range doc.Sheets {
		if i == 0 {
			// Rename the default sheet rather than leaving it behind.
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return fmt.Errorf("%w: %v", ErrEncode, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}

		header := make([]any, len(sheet.Columns))
		for c, col := range sheet.Columns {
			header[c] = col
		}
		if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
			return fmt.Errorf("%w: %v", ErrEncode, err)
		}

		for r, row := range sheet.Rows {
			cells := make([]any, len(row))
			for c, v := range row {
				cells[c] = cellValue(v)
			}
			anchor, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrEncode, err)
			}
			if err := f.SetSheetRow(sheet.Name, anchor, &cells); err != nil {
				return fmt.Errorf("%w: %v", ErrEncode, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return nil
}

func cellValue(v document.Value) any {
	switch v.Kind() {
	case document.KindString:
		return v.Str()
	case document.KindNumber:
		return v.Num()
	case document.KindBool:
		return v.Bool()
	default:
		return nil
	}
}

// readCell maps an xlsx cell onto a scalar value using the stored cell
// type, so typed values survive an encode/decode round trip.
func readCell(f *excelize.File, sheet, cell string) (document.Value, error) {
	raw, err := f.GetCellValue(sheet, cell)
	if err != nil {
		return document.Empty, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	ctype, err := f.GetCellType(sheet, cell)
	if err != nil {
		return document.Empty, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch ctype {
	case excelize.CellTypeBool:
		return document.BoolValue(raw == "TRUE"), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return document.StringValue(raw), nil
	default:
		if raw == "" {
			return document.Empty, nil
		}
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return document.NumberValue(n), nil
		}
		return document.StringValue(raw), nil
	}
}

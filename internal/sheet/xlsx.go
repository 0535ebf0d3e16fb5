package sheet

import (
	"strconv"
	"strings"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

// xlsxWorkbook reads Office Open XML workbooks. Formulas are never
// evaluated; a formula cell contributes its cached value. Rows start at the
// sheet's first used cell.
type xlsxWorkbook struct {
	path string
	f    *excelize.File
}

func openXLSX(path string) (*xlsxWorkbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperr.Wrap(eris.Wrap(err, "open xlsx"), apperr.KindIO, "open workbook", "cannot parse workbook", path)
	}
	return &xlsxWorkbook{path: path, f: f}, nil
}

func (w *xlsxWorkbook) SheetNames() []string {
	return w.f.GetSheetList()
}

func (w *xlsxWorkbook) Rows(sheet string) ([][]Cell, error) {
	raw, err := w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperr.Wrap(eris.Wrapf(err, "read sheet %q", sheet), apperr.KindIO, "read workbook", "cannot read sheet", w.path)
	}

	rows := make([][]Cell, len(raw))
	for r, values := range raw {
		cells := make([]Cell, len(values))
		for c, v := range values {
			if v == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				cells[c] = Cell{Kind: CellText, Text: v}
				continue
			}
			typ, err := w.f.GetCellType(sheet, ref)
			if err != nil {
				typ = excelize.CellTypeUnset
			}
			cells[c] = typedCell(typ, v)
		}
		rows[r] = cells
	}
	return usedRange(rows), nil
}

func (w *xlsxWorkbook) Close() error {
	return w.f.Close()
}

func typedCell(typ excelize.CellType, v string) Cell {
	switch typ {
	case excelize.CellTypeBool:
		return Cell{Kind: CellBool, Bool: v == "1" || strings.EqualFold(v, "true")}
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return Cell{Kind: CellNumber, Number: f}
		}
	}
	return Cell{Kind: CellText, Text: v}
}

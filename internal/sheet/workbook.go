package sheet

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/rotisserie/eris"
)

// CellKind is the type of value a cell holds.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellBool
)

// Cell is one typed spreadsheet value.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Bool   bool
}

// String renders the cell. Empty cells report ok=false.
func (c Cell) String() (string, bool) {
	switch c.Kind {
	case CellText:
		return c.Text, true
	case CellNumber:
		return formatNumber(c.Number), true
	case CellBool:
		return strconv.FormatBool(c.Bool), true
	}
	return "", false
}

// IsEmpty reports whether the cell contributes nothing.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || (c.Kind == CellText && c.Text == "")
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Workbook is an opened spreadsheet file.
type Workbook interface {
	// SheetNames lists sheets in workbook order.
	SheetNames() []string
	// Rows returns every row of the named sheet, top to bottom.
	Rows(sheet string) ([][]Cell, error)
	Close() error
}

// Open picks a Workbook backend by file extension.
func Open(path string) (Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("open workbook", "file", path)
		}
		return nil, apperr.Wrap(eris.Wrap(err, "stat workbook"), apperr.KindIO, "open workbook", "cannot read file", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return openXLSX(path)
	case ".csv":
		return openDelimited(path, ',')
	case ".tsv":
		return openDelimited(path, '\t')
	default:
		return nil, apperr.New(apperr.KindIO, "open workbook", "unsupported workbook format", path)
	}
}

// SupportedExtensions lists file extensions Open can handle.
var SupportedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
	".csv":  true,
	".tsv":  true,
}

// usedRange drops leading rows and columns that hold no value, so row and
// column positions count from the first used cell.
func usedRange(rows [][]Cell) [][]Cell {
	top := -1
	left := -1
	for r, row := range rows {
		for c, cell := range row {
			if cell.IsEmpty() {
				continue
			}
			if top < 0 {
				top = r
			}
			if left < 0 || c < left {
				left = c
			}
		}
	}
	if top < 0 {
		return [][]Cell{}
	}

	out := make([][]Cell, 0, len(rows)-top)
	for _, row := range rows[top:] {
		if left >= len(row) {
			out = append(out, []Cell{})
			continue
		}
		out = append(out, row[left:])
	}
	return out
}

package sheet

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/rotisserie/eris"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// delimitedWorkbook exposes a CSV or TSV file as a workbook with a single
// sheet named after the file stem. Every cell is text.
type delimitedWorkbook struct {
	name string
	rows [][]Cell
}

func openDelimited(path string, comma rune) (*delimitedWorkbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(eris.Wrap(err, "read csv"), apperr.KindIO, "open workbook", "cannot read file", path)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperr.Wrap(eris.Wrap(err, "parse csv"), apperr.KindIO, "open workbook", "cannot parse file", path)
	}

	rows := make([][]Cell, len(records))
	for i, rec := range records {
		cells := make([]Cell, len(rec))
		for j, v := range rec {
			if v != "" {
				cells[j] = Cell{Kind: CellText, Text: v}
			}
		}
		rows[i] = cells
	}

	base := filepath.Base(path)
	return &delimitedWorkbook{
		name: strings.TrimSuffix(base, filepath.Ext(base)),
		rows: rows,
	}, nil
}

func (w *delimitedWorkbook) SheetNames() []string {
	return []string{w.name}
}

func (w *delimitedWorkbook) Rows(sheet string) ([][]Cell, error) {
	if sheet != w.name {
		return nil, apperr.NotFound("read workbook", "sheet", sheet)
	}
	return w.rows, nil
}

func (w *delimitedWorkbook) Close() error { return nil }

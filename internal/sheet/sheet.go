// Package sheet turns spreadsheet rows into prompt units.
package sheet

import (
	"fmt"
	"strings"

	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/dgallion1/ragutil/internal/unit"
	"github.com/rs/zerolog/log"
)

// Config selects the sheet and the columns that make up each unit.
type Config struct {
	Sheet              string   `json:"sheet"`
	IDColumn           string   `json:"idColumn"`
	DescriptionColumns []string `json:"descriptionColumns"`
}

// Validate checks the fields every extraction needs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Sheet) == "" {
		return apperr.New(apperr.KindInvalid, "extract sheet", "sheet is required", "")
	}
	if strings.TrimSpace(c.IDColumn) == "" {
		return apperr.New(apperr.KindInvalid, "extract sheet", "idColumn is required", "")
	}
	return nil
}

// SheetInfo names one sheet and its detected header columns.
type SheetInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// Inspection lists every sheet of a workbook in workbook order.
type Inspection struct {
	Path   string      `json:"path"`
	Sheets []SheetInfo `json:"sheets"`
}

// Inspect reports each sheet's header columns. Sheets that cannot be read
// are left out.
func Inspect(path string) (*Inspection, error) {
	wb, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return inspect(path, wb), nil
}

func inspect(path string, wb Workbook) *Inspection {
	out := &Inspection{Path: path, Sheets: []SheetInfo{}}
	for _, name := range wb.SheetNames() {
		rows, err := wb.Rows(name)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Str("sheet", name).Msg("skipping unreadable sheet")
			continue
		}
		columns, _ := detectHeader(rows)
		out.Sheets = append(out.Sheets, SheetInfo{Name: name, Columns: columns})
	}
	return out
}

// ExtractUnits emits one unit per data row that has a non-blank id and at
// least one non-blank description value.
func ExtractUnits(path string, cfg Config) ([]unit.PromptUnit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	wb, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	if !hasSheet(wb.SheetNames(), cfg.Sheet) {
		return nil, apperr.NotFound("extract sheet", "sheet", cfg.Sheet)
	}
	rows, err := wb.Rows(cfg.Sheet)
	if err != nil {
		return nil, err
	}

	columns, headerRow := detectHeader(rows)
	idIdx := columnIndex(columns, cfg.IDColumn)
	if idIdx < 0 {
		return nil, apperr.ColumnNotFound("extract sheet", "id", cfg.IDColumn)
	}
	descIdx := make([]int, len(cfg.DescriptionColumns))
	for i, name := range cfg.DescriptionColumns {
		descIdx[i] = columnIndex(columns, name)
		if descIdx[i] < 0 {
			return nil, apperr.ColumnNotFound("extract sheet", "description", name)
		}
	}

	units := []unit.PromptUnit{}
	for r := headerRow + 1; r < len(rows); r++ {
		row := rows[r]
		id := strings.TrimSpace(cellText(row, idIdx))
		if id == "" {
			continue
		}

		var parts []string
		for _, idx := range descIdx {
			if v := strings.TrimSpace(cellText(row, idx)); v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) == 0 {
			continue
		}

		units = append(units, unit.PromptUnit{
			ID:   id,
			Body: strings.Join(parts, "\n"),
			Meta: map[string]any{"sheet": cfg.Sheet, "rowIndex": r},
		})
	}
	return units, nil
}

// detectHeader returns the column names and the index of the header row.
// The header is the first row with a non-empty cell; with none, names are
// positional over the first row's width and the header index is -1.
func detectHeader(rows [][]Cell) ([]string, int) {
	for r, row := range rows {
		if !rowHasValue(row) {
			continue
		}
		names := make([]string, len(row))
		for i, c := range row {
			v, _ := c.String()
			v = strings.TrimSpace(v)
			if v == "" {
				v = positional(i)
			}
			names[i] = v
		}
		return names, r
	}

	if len(rows) == 0 {
		return []string{}, -1
	}
	names := make([]string, len(rows[0]))
	for i := range names {
		names[i] = positional(i)
	}
	return names, -1
}

func positional(i int) string {
	return fmt.Sprintf("col%d", i+1)
}

func rowHasValue(row []Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return true
		}
	}
	return false
}

func cellText(row []Cell, idx int) string {
	if idx >= len(row) {
		return ""
	}
	v, _ := row[idx].String()
	return v
}

func columnIndex(columns []string, name string) int {
	name = strings.TrimSpace(name)
	for i, c := range columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

func hasSheet(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

package xlsx

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// ContentType is the MIME type of the workbooks produced by Write.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Write renders one sheet per table to w: a header row of column names, then
// one row per record. NA cells are left empty. Sheets follow order; tables not
// named in order come after it, sorted by name.
func Write(w io.Writer, tables map[string]dataframe.DataFrame, order ...string) error {
	f, err := build(tables, order)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Save writes the workbook to path.
func Save(path string, tables map[string]dataframe.DataFrame, order ...string) error {
	f, err := build(tables, order)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func build(tables map[string]dataframe.DataFrame, order []string) (*excelize.File, error) {
	names := sheetOrder(tables, order)
	if len(names) == 0 {
		return nil, errors.New("no tables to export")
	}

	f := excelize.NewFile()
	for i, name := range names {
		idx, err := f.NewSheet(name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		if err := writeSheet(f, name, tables[name]); err != nil {
			f.Close()
			return nil, err
		}
	}

	if _, ok := tables[defaultSheet]; !ok {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("delete default sheet: %w", err)
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("table %s: %w", sheet, df.Err)
	}

	header := make([]any, 0, df.Ncol())
	for _, name := range df.Names() {
		header = append(header, name)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header %s: %w", sheet, err)
	}

	cols := make([]series.Series, df.Ncol())
	for j := range cols {
		cols[j] = df.Col(df.Names()[j])
	}

	for i := 0; i < df.Nrow(); i++ {
		row := make([]any, len(cols))
		for j, col := range cols {
			row[j] = cellValue(col.Elem(i))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

func cellValue(e series.Element) any {
	if e.IsNA() {
		return nil
	}
	switch e.Type() {
	case series.Float:
		return e.Float()
	case series.Int:
		if v, err := e.Int(); err == nil {
			return v
		}
	case series.Bool:
		if v, err := e.Bool(); err == nil {
			return v
		}
	}
	return e.String()
}

func sheetOrder(tables map[string]dataframe.DataFrame, order []string) []string {
	seen := make(map[string]struct{}, len(tables))
	names := make([]string, 0, len(tables))
	for _, name := range order {
		if _, ok := tables[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	var rest []string
	for name := range tables {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

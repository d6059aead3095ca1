// Package source reads csv and xlsx files into a table.Table shaped after
// an existing SQL Server table.
package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ruslano69/tdtp-bulk/pkg/adapters/mssql"
	"github.com/ruslano69/tdtp-bulk/pkg/config"
	"github.com/ruslano69/tdtp-bulk/pkg/table"
	"github.com/xuri/excelize/v2"
)

// Records is a header row followed by data rows.
type Records [][]string

// Read loads the file described by cfg and converts it for the target columns.
func Read(cfg config.SourceConfig, target string, columns []mssql.ColumnInfo) (*table.Table, error) {
	format, err := cfg.ResolveFormat()
	if err != nil {
		return nil, err
	}

	var records Records
	switch format {
	case "csv":
		records, err = ReadCSV(cfg.Path, cfg.Delimiter)
	case "xlsx":
		records, err = ReadXLSX(cfg.Path, cfg.Sheet)
	}
	if err != nil {
		return nil, err
	}

	return Build(target, columns, records, Options{
		Null:       cfg.Null,
		ExcelDates: format == "xlsx",
	})
}

// Options control how cells become values.
type Options struct {
	// Null is the text that means NULL in addition to an empty cell.
	Null string
	// ExcelDates accepts serial day numbers in date/time columns.
	ExcelDates bool
}

// Build maps the header row onto the target columns and converts every cell.
//
// Header names match column names case-insensitively. Read-only target
// columns (identity, computed, rowversion) are never loaded, even when the
// file carries them. Target columns missing from the file are left to the server.
func Build(target string, columns []mssql.ColumnInfo, records Records, opts Options) (*table.Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("file has no header row")
	}

	byName := make(map[string]mssql.ColumnInfo, len(columns))
	for _, col := range columns {
		byName[strings.ToLower(col.Name)] = col
	}

	type binding struct {
		index int
		col   mssql.ColumnInfo
	}

	var bindings []binding
	seen := make(map[string]bool)
	for i, header := range records[0] {
		name := strings.TrimSpace(header)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == "" {
			return nil, fmt.Errorf("empty header in column %d", i+1)
		}

		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("duplicate header '%s'", name)
		}
		seen[key] = true

		col, ok := byName[key]
		if !ok {
			return nil, fmt.Errorf("column '%s' does not exist in %s", name, target)
		}
		if col.ReadOnly() {
			continue
		}
		bindings = append(bindings, binding{index: i, col: col})
	}

	if len(bindings) == 0 {
		return nil, fmt.Errorf("file has no columns that can be loaded into %s", target)
	}

	tbl := table.New(target)
	for _, b := range bindings {
		if err := tbl.AddColumn(b.col.Name, mssql.GoType(b.col.DataType)); err != nil {
			return nil, err
		}
	}

	tbl.Rows = make([][]any, 0, len(records)-1)
	for line := 1; line < len(records); line++ {
		record := records[line]
		if isBlank(record) {
			continue
		}

		row := make([]any, len(bindings))
		for j, b := range bindings {
			var cell string
			if b.index < len(record) {
				cell = record[b.index]
			}
			v, err := cellValue(b.col, cell, opts)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", line+1, err)
			}
			row[j] = v
		}
		if err := tbl.AddRow(row...); err != nil {
			return nil, fmt.Errorf("row %d: %w", line+1, err)
		}
	}

	return tbl, nil
}

func cellValue(col mssql.ColumnInfo, cell string, opts Options) (any, error) {
	// non-nullable columns get their default unless KEEPNULLS is set
	if cell == "" || (opts.Null != "" && cell == opts.Null) {
		return nil, nil
	}

	if opts.ExcelDates && isDateType(col.DataType) {
		if serial, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				return nil, fmt.Errorf("column %s: invalid excel date %q", col.Name, cell)
			}
			return t, nil
		}
	}

	return mssql.ParseValue(col, cell)
}

func isDateType(dataType string) bool {
	switch dataType {
	case "date", "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		return true
	}
	return false
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

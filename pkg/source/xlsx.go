package source

import (
	"fmt"
	"strings"

	"github.com/ruslano69/tdtp-bulk/pkg/adapters/mssql"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads a worksheet, the first one when sheet is empty.
//
// Cells are read raw so dates arrive as serial numbers rather than in the
// workbook's display format. Headers written by WriteTemplate
// ("name (type) *") are reduced to the column name.
func ReadXLSX(path, sheet string) (Records, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet '%s' is empty", sheet)
	}

	for i, header := range rows[0] {
		rows[0][i] = headerName(header)
	}
	return rows, nil
}

// WriteTemplate creates an empty workbook whose header row lists the
// loadable columns of a table. Primary keys are marked with *.
//
// Example:
//
//	err := source.WriteTemplate("orders.xlsx", "Orders", columns)
func WriteTemplate(path, sheet string, columns []mssql.ColumnInfo) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}

	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	col := 0
	for _, c := range columns {
		if c.ReadOnly() {
			continue
		}
		col++
		cell := columnName(col) + "1"
		header := fmt.Sprintf("%s (%s)", c.Name, strings.ToUpper(c.DataType))
		if c.PrimaryKey {
			header += " *"
		}
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
		f.SetColWidth(sheet, columnName(col), columnName(col), 18)
	}
	if col == 0 {
		return fmt.Errorf("no loadable columns")
	}

	return f.SaveAs(path)
}

// headerName strips " (TYPE)" and the " *" key marker from a header.
func headerName(header string) string {
	name := strings.TrimSpace(header)
	name = strings.TrimSuffix(name, " *")

	if idx := strings.LastIndex(name, " ("); idx > 0 && strings.HasSuffix(name, ")") {
		name = strings.TrimSpace(name[:idx])
	}
	return name
}

// columnName converts a column index to an Excel column name (1 → A, 27 → AA)
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}

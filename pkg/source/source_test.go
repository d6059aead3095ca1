package source

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/ruslano69/tdtp-bulk/pkg/adapters/mssql"
	"github.com/ruslano69/tdtp-bulk/pkg/config"
	"github.com/xuri/excelize/v2"
)

var orderColumns = []mssql.ColumnInfo{
	{Name: "ID", DataType: "int", PrimaryKey: true, Identity: true},
	{Name: "Number", DataType: "nvarchar", Length: 20},
	{Name: "Customer", DataType: "nvarchar", Length: 100, Nullable: true},
	{Name: "Total", DataType: "decimal", Precision: 18, Scale: 2, Nullable: true},
	{Name: "Paid", DataType: "bit", Nullable: true},
	{Name: "CreatedAt", DataType: "datetime2", Nullable: true},
	{Name: "RowVer", DataType: "rowversion"},
}

func TestBuild(t *testing.T) {
	records := Records{
		{"\ufeffid", "number", "customer", "total", "paid", "createdat"},
		{"1", "N-001", "ACME", "12,50", "yes", "2024-03-01 10:00:00"},
		{"2", "N-002", "-", "", "0", ""},
		{"", "", "", "", "", ""},
		{"3", "N-003"},
	}

	tbl, err := Build("dbo.Orders", orderColumns, records, Options{Null: "-"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	wantCols := []string{"Number", "Customer", "Total", "Paid", "CreatedAt"}
	if !reflect.DeepEqual(tbl.ColumnNames(), wantCols) {
		t.Errorf("columns = %v, want %v", tbl.ColumnNames(), wantCols)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows (blank skipped), got %d", tbl.Len())
	}

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	want := [][]any{
		{"N-001", "ACME", "12.50", true, created},
		{"N-002", nil, nil, false, nil},
		{"N-003", nil, nil, nil, nil},
	}
	for i := range want {
		if !reflect.DeepEqual(tbl.Rows[i], want[i]) {
			t.Errorf("row %d = %#v, want %#v", i, tbl.Rows[i], want[i])
		}
	}

	if got := tbl.Columns[4].Type; got != reflect.TypeOf(time.Time{}) {
		t.Errorf("CreatedAt type = %v", got)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		records Records
		errMsg  string
	}{
		{"no header", nil, "no header row"},
		{"unknown column", Records{{"number", "discount"}}, "column 'discount' does not exist in dbo.Orders"},
		{"duplicate header", Records{{"number", "Number"}}, "duplicate header"},
		{"empty header", Records{{"number", " "}}, "empty header in column 2"},
		{"read-only only", Records{{"id", "rowver"}}, "no columns that can be loaded"},
		{"bad value", Records{{"number", "total"}, {"A", "1.0"}, {"B", "abc"}}, "row 3: column Total: invalid decimal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("dbo.Orders", orderColumns, tt.records, Options{})
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	content := "number;customer;total\nN-001;\"Smith; John\";10.5\nN-002;NULL;\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	tbl, err := Read(config.SourceConfig{Path: path, Delimiter: ";", Null: "NULL"}, "dbo.Orders", orderColumns)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Rows[0][1] != "Smith; John" {
		t.Errorf("quoted field = %v", tbl.Rows[0][1])
	}
	if tbl.Rows[1][1] != nil || tbl.Rows[1][2] != nil {
		t.Errorf("expected NULLs, got %v", tbl.Rows[1])
	}
}

func TestReadCSV_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("number\n\"N-001\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCSV(path, ","); err == nil {
		t.Error("expected error for unterminated quote")
	}
}

func TestReadCSV_Compressed(t *testing.T) {
	content := []byte("number,customer,total\nN-001,ACME,10.5\nN-002,,3\n")

	gz := func(t *testing.T) []byte {
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(content); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}
	zst := func(t *testing.T) []byte {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			t.Fatal(err)
		}
		defer enc.Close()
		return enc.EncodeAll(content, nil)
	}

	tests := []struct {
		name   string
		file   string
		encode func(t *testing.T) []byte
	}{
		{"gzip", "orders.csv.gz", gz},
		{"zstd", "orders.csv.zst", zst},
		{"zstd long extension", "orders.csv.zstd", zst},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, tt.encode(t), 0644); err != nil {
				t.Fatal(err)
			}

			tbl, err := Read(config.SourceConfig{Path: path}, "dbo.Orders", orderColumns)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if tbl.Len() != 2 {
				t.Fatalf("expected 2 rows, got %d", tbl.Len())
			}
			if tbl.Rows[0][0] != "N-001" || tbl.Rows[0][1] != "ACME" {
				t.Errorf("unexpected first row: %v", tbl.Rows[0])
			}
			if tbl.Rows[1][1] != nil {
				t.Errorf("empty cell should be NULL, got %v", tbl.Rows[1][1])
			}
		})
	}
}

func TestReadCSV_CorruptCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv.gz")
	if err := os.WriteFile(path, []byte("number\nN-001\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadCSV(path, ",")
	if err == nil || !strings.Contains(err.Error(), "gzip") {
		t.Errorf("expected gzip error, got %v", err)
	}
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.xlsx")

	f := excelize.NewFile()
	sheet := "Sheet1"
	f.SetSheetRow(sheet, "A1", &[]any{"Number", "Total", "Paid", "CreatedAt"})
	f.SetSheetRow(sheet, "A2", &[]any{"N-001", 12.5, true, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	f.SetSheetRow(sheet, "A3", &[]any{"N-002", 7, false, "2024-03-02"})
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	f.Close()

	tbl, err := Read(config.SourceConfig{Path: path}, "dbo.Orders", orderColumns)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}

	if tbl.Rows[0][1] != "12.5" || tbl.Rows[1][1] != "7" {
		t.Errorf("totals = %v, %v", tbl.Rows[0][1], tbl.Rows[1][1])
	}
	if tbl.Rows[0][2] != true || tbl.Rows[1][2] != false {
		t.Errorf("paid = %v, %v", tbl.Rows[0][2], tbl.Rows[1][2])
	}

	d1, ok := tbl.Rows[0][3].(time.Time)
	if !ok || d1.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("serial date = %v", tbl.Rows[0][3])
	}
	d2, ok := tbl.Rows[1][3].(time.Time)
	if !ok || d2.Format("2006-01-02") != "2024-03-02" {
		t.Errorf("text date = %v", tbl.Rows[1][3])
	}
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")
	cols := []mssql.ColumnInfo{
		{Name: "ID", DataType: "int", PrimaryKey: true, Identity: true},
		{Name: "Code", DataType: "nvarchar", PrimaryKey: true},
		{Name: "Total", DataType: "decimal"},
	}

	if err := WriteTemplate(path, "Orders", cols); err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	a1, _ := f.GetCellValue("Orders", "A1")
	b1, _ := f.GetCellValue("Orders", "B1")
	if a1 != "Code (NVARCHAR) *" || b1 != "Total (DECIMAL)" {
		t.Errorf("headers = %q, %q", a1, b1)
	}

	records, err := ReadXLSX(path, "Orders")
	if err != nil {
		t.Fatalf("ReadXLSX failed: %v", err)
	}
	if !reflect.DeepEqual(records[0], []string{"Code", "Total"}) {
		t.Errorf("header names = %v", records[0])
	}
}

func TestHeaderName(t *testing.T) {
	tests := map[string]string{
		"customer_name (TEXT)":   "customer_name",
		"id (INTEGER) *":         "id",
		" Total ":                "Total",
		"weird(name)":            "weird(name)",
		"amount (DECIMAL(18,2))": "amount",
	}
	for in, want := range tests {
		if got := headerName(in); got != want {
			t.Errorf("headerName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for in, want := range tests {
		if got := columnName(in); got != want {
			t.Errorf("columnName(%d) = %s, want %s", in, got, want)
		}
	}
}

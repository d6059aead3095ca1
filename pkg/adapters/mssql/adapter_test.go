package mssql

import (
	"database/sql"
	"reflect"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ruslano69/tdtp-bulk/pkg/table"
)

func TestParseServerVersion(t *testing.T) {
	tests := []struct {
		version string
		want    int
	}{
		{"11.0.2100.60", 11},
		{"13.0.5026.0", 13},
		{"16.0.1000.6", 16},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		if got := ParseServerVersion(tt.version); got != tt.want {
			t.Errorf("ParseServerVersion(%q) = %d, want %d", tt.version, got, tt.want)
		}
	}

	if got := ServerVersionName(15); got != "SQL Server 2019" {
		t.Errorf("unexpected name for 15: %s", got)
	}
	if got := ServerVersionName(99); !strings.Contains(got, "99") {
		t.Errorf("unknown version should carry the number, got %s", got)
	}
}

func TestIsSQLServer(t *testing.T) {
	// sql.Open does not connect, so no server is needed here
	db, err := sql.Open(DriverName, "server=localhost;user id=sa;password=x")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	defer db.Close()

	if !IsSQLServer(db) {
		t.Error("expected mssql pool to be detected")
	}

	lite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open sqlite failed: %v", err)
	}
	defer lite.Close()

	if IsSQLServer(lite) {
		t.Error("sqlite pool must not be detected as SQL Server")
	}
	if IsSQLServer(nil) {
		t.Error("nil pool must not be detected as SQL Server")
	}
}

func TestSplitTableName(t *testing.T) {
	tests := []struct {
		in            string
		schema, table string
	}{
		{"Users", "", "Users"},
		{"dbo.Users", "dbo", "Users"},
		{"[sales].[Order]", "sales", "Order"},
		{"sales.[Order.Lines]", "sales", "Order.Lines"},
		{"[Weird]]Name]", "", "Weird]Name"},
	}

	for _, tt := range tests {
		schema, tbl := SplitTableName(tt.in)
		if schema != tt.schema || tbl != tt.table {
			t.Errorf("SplitTableName(%q) = (%q, %q), want (%q, %q)", tt.in, schema, tbl, tt.schema, tt.table)
		}
	}
}

func TestQuoteName(t *testing.T) {
	tests := map[string]string{
		"Users":           "[Users]",
		"dbo.Users":       "[dbo].[Users]",
		"[sales].[Order]": "[sales].[Order]",
		"odd.Na]me":       "[odd].[Na]]me]",
	}
	for in, want := range tests {
		if got := QuoteName(in); got != want {
			t.Errorf("QuoteName(%q) = %q, want %q", in, got, want)
		}
	}

	if got := FullName("", "Orders"); got != "dbo.Orders" {
		t.Errorf("FullName default schema: got %s", got)
	}
	if got := FullName("sales", "Orders"); got != "sales.Orders" {
		t.Errorf("FullName: got %s", got)
	}
}

func TestCopyStatement(t *testing.T) {
	tbl := table.New("sales.Orders",
		table.Column{Name: "number", Type: reflect.TypeOf("")},
		table.Column{Name: "total", Type: reflect.TypeOf(float64(0))},
	)

	stmt := CopyStatement(tbl, BulkOptions{BatchSize: 5000, Tablock: true})

	if !strings.HasPrefix(stmt, "INSERTBULK") {
		t.Fatalf("expected INSERTBULK statement, got %s", stmt)
	}
	for _, want := range []string{"[sales].[Orders]", "number", "total", "5000"} {
		if !strings.Contains(stmt, want) {
			t.Errorf("statement %s does not contain %q", stmt, want)
		}
	}
}

func TestColumnInfo_ReadOnly(t *testing.T) {
	tests := []struct {
		col  ColumnInfo
		want bool
	}{
		{ColumnInfo{Name: "id", DataType: "int", Identity: true}, true},
		{ColumnInfo{Name: "total", DataType: "decimal", Computed: true}, true},
		{ColumnInfo{Name: "ver", DataType: "timestamp"}, true},
		{ColumnInfo{Name: "name", DataType: "nvarchar"}, false},
	}
	for _, tt := range tests {
		if got := tt.col.ReadOnly(); got != tt.want {
			t.Errorf("%s.ReadOnly() = %v, want %v", tt.col.Name, got, tt.want)
		}
	}
}

func TestParseValue(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		col     ColumnInfo
		in      string
		want    any
		wantErr bool
	}{
		{"int", ColumnInfo{DataType: "int"}, " 42 ", int64(42), false},
		{"bad int", ColumnInfo{DataType: "bigint"}, "4x", nil, true},
		{"float comma", ColumnInfo{DataType: "float"}, "1,5", 1.5, false},
		{"decimal", ColumnInfo{DataType: "decimal"}, "12,50", "12.50", false},
		{"bad decimal", ColumnInfo{DataType: "money"}, "abc", nil, true},
		{"bit yes", ColumnInfo{DataType: "bit"}, "Yes", true, false},
		{"bit zero", ColumnInfo{DataType: "bit"}, "0", false, false},
		{"bad bit", ColumnInfo{DataType: "bit"}, "maybe", nil, true},
		{"date", ColumnInfo{DataType: "date"}, "2024-03-01", day, false},
		{"date dotted", ColumnInfo{DataType: "datetime2"}, "01.03.2024", day, false},
		{"bad date", ColumnInfo{DataType: "datetime"}, "yesterday", nil, true},
		{"guid", ColumnInfo{DataType: "uniqueidentifier"}, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", false},
		{"bad guid", ColumnInfo{DataType: "uniqueidentifier"}, "nope", nil, true},
		{"hex", ColumnInfo{DataType: "varbinary"}, "0x0A0B", []byte{0x0a, 0x0b}, false},
		{"text kept", ColumnInfo{DataType: "nvarchar"}, "  padded ", "  padded ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.col, tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGoType(t *testing.T) {
	tests := map[string]reflect.Type{
		"INT":       reflect.TypeOf(int64(0)),
		"real":      reflect.TypeOf(float64(0)),
		"bit":       reflect.TypeOf(false),
		"datetime2": reflect.TypeOf(time.Time{}),
		"varbinary": reflect.TypeOf([]byte(nil)),
		"decimal":   reflect.TypeOf(""),
		"nvarchar":  reflect.TypeOf(""),
	}
	for in, want := range tests {
		if got := GoType(in); got != want {
			t.Errorf("GoType(%q) = %s, want %s", in, got, want)
		}
	}
}

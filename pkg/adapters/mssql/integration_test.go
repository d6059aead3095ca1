package mssql

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/ruslano69/tdtp-bulk/pkg/table"
)

// Default matches a local docker SQL Server; override with MSSQL_TEST_DSN.
var testConnString = getEnvOrDefault(
	"MSSQL_TEST_DSN",
	"server=localhost,1433;user id=sa;password=DevPassword123!;database=DevDB;encrypt=disable",
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func openTestAdapter(t *testing.T) *Adapter {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	adapter, err := Open(ctx, Config{DSN: testConnString})
	if err != nil {
		t.Skipf("MS SQL Server not available: %v", err)
	}
	t.Cleanup(func() { adapter.Close() })
	return adapter
}

func createTestTable(t *testing.T, adapter *Adapter) string {
	t.Helper()
	ctx := context.Background()

	name := fmt.Sprintf("dbo.bulk_test_%d", time.Now().UnixNano())
	_, err := adapter.DB().ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE %s (
			id INT IDENTITY(1,1) PRIMARY KEY,
			number NVARCHAR(50) NOT NULL,
			total DECIMAL(18,2) NULL,
			created_at DATETIME2 NOT NULL
		)`, QuoteName(name)))
	if err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}
	t.Cleanup(func() {
		adapter.DB().ExecContext(context.Background(), "DROP TABLE "+QuoteName(name))
	})
	return name
}

// TestIntegration_Columns проверяет чтение метаданных таблицы
func TestIntegration_Columns(t *testing.T) {
	adapter := openTestAdapter(t)
	name := createTestTable(t, adapter)

	cols, err := adapter.Columns(context.Background(), name)
	if err != nil {
		t.Fatalf("Columns failed: %v", err)
	}
	if len(cols) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(cols))
	}
	if !cols[0].Identity || !cols[0].PrimaryKey || !cols[0].ReadOnly() {
		t.Errorf("id should be an identity primary key: %+v", cols[0])
	}
	if cols[2].DataType != "decimal" || !cols[2].Nullable {
		t.Errorf("unexpected total column: %+v", cols[2])
	}

	t.Logf("server: %s", adapter.ServerVersion())
}

// TestIntegration_CopyCommitAndRollback проверяет bulk copy в транзакции
func TestIntegration_CopyCommitAndRollback(t *testing.T) {
	adapter := openTestAdapter(t)
	name := createTestTable(t, adapter)
	ctx := context.Background()

	tbl := table.New(name,
		table.Column{Name: "number", Type: reflect.TypeOf("")},
		table.Column{Name: "total", Type: reflect.TypeOf("")},
		table.Column{Name: "created_at", Type: reflect.TypeOf(time.Time{})},
	)
	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 250; i++ {
		var total any = fmt.Sprintf("%d.25", i)
		if i%10 == 0 {
			total = nil
		}
		if err := tbl.AddRow(fmt.Sprintf("N-%04d", i), total, now); err != nil {
			t.Fatalf("AddRow failed: %v", err)
		}
	}

	// rolled back load leaves nothing behind
	tx, err := adapter.DB().BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	if _, err := (Copier{}).Copy(ctx, tx, tbl, BulkOptions{BatchSize: 100}); err != nil {
		tx.Rollback()
		t.Fatalf("Copy failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	assertRowCount(t, adapter, name, 0)

	tx, err = adapter.DB().BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	n, err := (Copier{}).Copy(ctx, tx, tbl, BulkOptions{BatchSize: 100, Tablock: true})
	if err != nil {
		tx.Rollback()
		t.Fatalf("Copy failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if n != 250 {
		t.Errorf("expected 250 copied rows, got %d", n)
	}
	assertRowCount(t, adapter, name, 250)
}

func assertRowCount(t *testing.T, adapter *Adapter, name string, want int) {
	t.Helper()

	var got int
	err := adapter.DB().QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+QuoteName(name)).Scan(&got)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if got != want {
		t.Errorf("expected %d rows in %s, got %d", want, name, got)
	}
}

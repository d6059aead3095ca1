package mssql

import (
	"context"
	"database/sql"
	"fmt"

	mssqldb "github.com/denisenkom/go-mssqldb"

	"github.com/ruslano69/tdtp-bulk/pkg/table"
)

// BulkOptions are passed through to the driver's INSERT BULK.
type BulkOptions struct {
	// BatchSize is the ROWS_PER_BATCH hint.
	BatchSize         int
	KilobytesPerBatch int

	CheckConstraints bool
	FireTriggers     bool
	KeepNulls        bool
	Tablock          bool

	// Order lists columns the incoming rows are sorted by.
	Order []string
}

func (o BulkOptions) driverOptions() mssqldb.BulkOptions {
	return mssqldb.BulkOptions{
		CheckConstraints:  o.CheckConstraints,
		FireTriggers:      o.FireTriggers,
		KeepNulls:         o.KeepNulls,
		KilobytesPerBatch: o.KilobytesPerBatch,
		RowsPerBatch:      o.BatchSize,
		Order:             o.Order,
		Tablock:           o.Tablock,
	}
}

// CopyStatement returns the statement text the driver recognizes as a bulk copy.
func CopyStatement(t *table.Table, opts BulkOptions) string {
	return mssqldb.CopyIn(QuoteName(t.Name), opts.driverOptions(), t.ColumnNames()...)
}

// Copier streams a table through the go-mssqldb bulk copy protocol.
type Copier struct{}

// Copy sends every row of t inside tx and returns the row count reported by the server.
// Columns are mapped by name; the driver does batching and type marshalling.
func (Copier) Copy(ctx context.Context, tx *sql.Tx, t *table.Table, opts BulkOptions) (int64, error) {
	if len(t.Columns) == 0 {
		return 0, fmt.Errorf("table %s has no columns", t.Name)
	}

	stmt, err := tx.PrepareContext(ctx, CopyStatement(t, opts))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare bulk copy into %s: %w", t.Name, err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("failed to queue row %d: %w", i, err)
		}
	}

	// Exec without arguments flushes the buffered rows.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to flush bulk copy into %s: %w", t.Name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read copied row count: %w", err)
	}
	return n, nil
}

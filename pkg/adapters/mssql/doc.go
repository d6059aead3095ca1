// Package mssql is the Microsoft SQL Server glue for tdtp-bulk.
//
// It wraps github.com/denisenkom/go-mssqldb and adds nothing to the wire
// protocol: rows are handed to the driver's bulk copy (INSERT BULK) and the
// driver does batching, type marshalling and streaming.
//
// Features:
//   - Open: connection pool with version detection (SQL Server 2012+)
//   - Copier: bulk copy of a table.Table inside a caller's transaction
//   - Columns: target table metadata from INFORMATION_SCHEMA
//   - ParseValue: text to column value conversion for file sources
//
// Usage:
//
//	adapter, err := mssql.Open(ctx, mssql.Config{
//	    DSN: "server=localhost;user id=sa;password=pass;database=mydb",
//	})
//	if err != nil {
//	    return err
//	}
//	defer adapter.Close()
//
//	tx, _ := adapter.DB().BeginTx(ctx, nil)
//	n, err := mssql.Copier{}.Copy(ctx, tx, tbl, mssql.BulkOptions{BatchSize: 5000})
//
// Table names may be qualified ("sales.Orders") or bare ("Orders", schema dbo).
package mssql

// Version is the adapter version
const Version = "1.0.0"

// Package bulk inserts collections of mapped Go structs into SQL Server
// using the driver's native bulk copy, inside a transaction.
//
// The flow of Insert is:
//
//	model introspection → table.Table → mssql bulk copy → commit / rollback
//
// Nothing here speaks the bulk-load protocol; batching, wire format and type
// marshalling belong to github.com/denisenkom/go-mssqldb.
//
// Usage:
//
//	m := model.New()
//	model.MustRegister[Order](m, model.Schema("sales"))
//
//	res, err := bulk.Insert(ctx, db, m, orders,
//	    bulk.WithBatchSize(5000),
//	    bulk.WithLogger(log.Logger),
//	)
//	if err != nil {
//	    return err // transaction already rolled back
//	}
//	fmt.Println(res.Rows, res.Checksum)
//
// Columns sent to the server are the entity's persistable properties:
// primary keys (unless WithKeys), identity and computed columns are left for
// the server. Column mapping is by name.
package bulk

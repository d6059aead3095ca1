// Package table holds the transient row buffer handed to the bulk loader.
//
// A Table is built for a single load and discarded afterwards. Columns carry
// the Go type of their values; a nil value is SQL NULL.
package table

import (
	"fmt"
	"reflect"
)

// Column is one destination column. Name is mapped by name onto the target table.
type Column struct {
	Name string
	Type reflect.Type
}

// Table is a rows x columns buffer destined for one database table.
type Table struct {
	// Name is the destination table, usually "schema.table".
	Name    string
	Columns []Column
	Rows    [][]any
}

// New creates an empty table with the given columns.
func New(name string, columns ...Column) *Table {
	return &Table{
		Name:    name,
		Columns: columns,
	}
}

// AddColumn appends a column. It fails once rows have been added.
func (t *Table) AddColumn(name string, typ reflect.Type) error {
	if len(t.Rows) > 0 {
		return fmt.Errorf("cannot add column %s: table %s already has rows", name, t.Name)
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return fmt.Errorf("duplicate column %s in table %s", name, t.Name)
		}
	}
	t.Columns = append(t.Columns, Column{Name: name, Type: typ})
	return nil
}

// AddRow appends a row. The number of values must match the number of columns.
func (t *Table) AddRow(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table %s has %d columns", len(values), t.Name, len(t.Columns))
	}
	t.Rows = append(t.Rows, values)
	return nil
}

// ColumnNames returns column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

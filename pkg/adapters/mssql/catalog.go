package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DefaultSchema is used when neither the table name nor the config carries one.
const DefaultSchema = "dbo"

// ColumnInfo describes one column of an existing table.
type ColumnInfo struct {
	Name       string
	DataType   string // INFORMATION_SCHEMA.COLUMNS.DATA_TYPE, lower case
	Length     int    // -1 for MAX
	Precision  int
	Scale      int
	Nullable   bool
	PrimaryKey bool
	Identity   bool
	Computed   bool
}

// ReadOnly reports whether a bulk load has to leave the column out.
// timestamp/rowversion and computed columns are always server maintained,
// identity columns are unless KEEPIDENTITY is used.
func (c ColumnInfo) ReadOnly() bool {
	return c.Identity || c.Computed || c.DataType == "timestamp" || c.DataType == "rowversion"
}

// SplitTableName splits a table name into schema and table.
// Brackets around either part are removed.
//
//	"Users"          → ("", "Users")
//	"dbo.Users"      → ("dbo", "Users")
//	"[sales].[Order]" → ("sales", "Order")
func SplitTableName(fullName string) (schema, table string) {
	fullName = strings.TrimSpace(fullName)

	// a bracketed table part may itself contain dots
	split := strings.LastIndex(fullName, ".")
	if strings.HasSuffix(fullName, "]") {
		split = -1
		if open := strings.LastIndex(fullName, "["); open > 0 && fullName[open-1] == '.' {
			split = open - 1
		}
	}

	if split == -1 {
		return "", unquote(fullName)
	}
	return unquote(fullName[:split]), unquote(fullName[split+1:])
}

// FullName joins schema and table, defaulting the schema to dbo.
func FullName(schema, table string) string {
	if schema == "" {
		schema = DefaultSchema
	}
	return schema + "." + table
}

// QuoteName quotes a possibly schema-qualified name: dbo.Users → [dbo].[Users].
func QuoteName(fullName string) string {
	schema, table := SplitTableName(fullName)
	if schema == "" {
		return quoteIdentifier(table)
	}
	return quoteIdentifier(schema) + "." + quoteIdentifier(table)
}

func quoteIdentifier(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		s = strings.ReplaceAll(s[1:len(s)-1], "]]", "]")
	}
	return s
}

// Columns reads column metadata of a table from INFORMATION_SCHEMA.
func (a *Adapter) Columns(ctx context.Context, tableName string) ([]ColumnInfo, error) {
	schemaName, table := SplitTableName(tableName)
	if schemaName == "" {
		schemaName = a.DefaultSchema()
	}

	// SQL Server 2012+ compatible query
	query := `
		SELECT
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.CHARACTER_MAXIMUM_LENGTH,
			c.NUMERIC_PRECISION,
			c.NUMERIC_SCALE,
			c.IS_NULLABLE,
			CASE
				WHEN pk.COLUMN_NAME IS NOT NULL THEN 1
				ELSE 0
			END AS IS_PRIMARY_KEY,
			COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsComputed') AS IS_COMPUTED,
			COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity') AS IS_IDENTITY
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT ku.TABLE_SCHEMA, ku.TABLE_NAME, ku.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			INNER JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku
				ON tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
				AND tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME
				AND tc.TABLE_SCHEMA = ku.TABLE_SCHEMA
				AND tc.TABLE_NAME = ku.TABLE_NAME
		) pk ON c.TABLE_SCHEMA = pk.TABLE_SCHEMA
			AND c.TABLE_NAME = pk.TABLE_NAME
			AND c.COLUMN_NAME = pk.COLUMN_NAME
		WHERE c.TABLE_SCHEMA = ? AND c.TABLE_NAME = ?
		ORDER BY c.ORDINAL_POSITION
	`

	rows, err := a.db.QueryContext(ctx, query, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query table columns: %w", err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var (
			col        ColumnInfo
			length     sql.NullInt64
			precision  sql.NullInt64
			scale      sql.NullInt64
			isNullable string
			isPK       int
			isComputed sql.NullInt64
			isIdentity sql.NullInt64
		)

		if err := rows.Scan(
			&col.Name,
			&col.DataType,
			&length,
			&precision,
			&scale,
			&isNullable,
			&isPK,
			&isComputed,
			&isIdentity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}

		col.DataType = strings.ToLower(col.DataType)
		col.Length = int(length.Int64)
		col.Precision = int(precision.Int64)
		col.Scale = int(scale.Int64)
		col.Nullable = strings.EqualFold(isNullable, "YES")
		col.PrimaryKey = isPK == 1
		col.Computed = isComputed.Valid && isComputed.Int64 == 1
		col.Identity = isIdentity.Valid && isIdentity.Int64 == 1

		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found or has no columns", schemaName, table)
	}

	return columns, nil
}

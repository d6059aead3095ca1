package mssql

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type mapping for MS SQL Server 2012+ text input
//
// SQL Server Type      Go value         Accepted text
// ──────────────────────────────────────────────────────────
// TINYINT..BIGINT      int64            "42"
// DECIMAL, NUMERIC     string           "12.50" (kept as text, exact)
// MONEY, SMALLMONEY    string           "12.5000"
// FLOAT, REAL          float64          "1.5e3"
// BIT                  bool             1/0, true/false, yes/no
// DATE                 time.Time        2006-01-02
// DATETIME2, DATETIME  time.Time        RFC3339, "2006-01-02 15:04:05[.fff]"
// DATETIMEOFFSET       time.Time        RFC3339 with offset
// TIME                 string           "15:04:05"
// UNIQUEIDENTIFIER     string           canonical UUID, validated
// VARBINARY, BINARY    []byte           hex, optional 0x prefix
// *CHAR, TEXT, XML     string           as is

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
}

// GoType returns the Go type values of a column are converted to.
func GoType(dataType string) reflect.Type {
	switch strings.ToLower(dataType) {
	case "tinyint", "smallint", "int", "bigint":
		return reflect.TypeOf(int64(0))
	case "float", "real":
		return reflect.TypeOf(float64(0))
	case "bit":
		return reflect.TypeOf(false)
	case "date", "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		return reflect.TypeOf(time.Time{})
	case "binary", "varbinary", "image":
		return reflect.TypeOf([]byte(nil))
	default:
		return reflect.TypeOf("")
	}
}

// ParseValue converts text from a file source into a value for column col.
// The caller decides which text means NULL.
func ParseValue(col ColumnInfo, text string) (any, error) {
	s := strings.TrimSpace(text)

	switch col.DataType {
	case "tinyint", "smallint", "int", "bigint":
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: invalid integer %q", col.Name, s)
		}
		return v, nil

	case "float", "real":
		v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: invalid number %q", col.Name, s)
		}
		return v, nil

	case "decimal", "numeric", "money", "smallmoney":
		normalized := strings.Replace(s, ",", ".", 1)
		if _, err := strconv.ParseFloat(normalized, 64); err != nil {
			return nil, fmt.Errorf("column %s: invalid decimal %q", col.Name, s)
		}
		return normalized, nil

	case "bit":
		switch strings.ToLower(s) {
		case "1", "true", "t", "yes", "y":
			return true, nil
		case "0", "false", "f", "no", "n":
			return false, nil
		}
		return nil, fmt.Errorf("column %s: invalid boolean %q", col.Name, s)

	case "date", "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		for _, layout := range timeLayouts {
			if v, err := time.Parse(layout, s); err == nil {
				return v, nil
			}
		}
		return nil, fmt.Errorf("column %s: invalid date/time %q", col.Name, s)

	case "uniqueidentifier":
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("column %s: invalid uniqueidentifier %q", col.Name, s)
		}
		return strings.ToUpper(id.String()), nil

	case "binary", "varbinary", "image":
		raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
		v, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("column %s: invalid hex %q", col.Name, s)
		}
		return v, nil

	default:
		return text, nil
	}
}

package table

import (
	"fmt"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

const (
	unitSep   = 0x1f
	recordSep = 0x1e
	nullMark  = 0x00
)

// Checksum returns an xxh3 (64-bit, hex) fingerprint of the rows.
// It depends on row and column order and on column names.
func (t *Table) Checksum() string {
	h := xxh3.New()

	for _, c := range t.Columns {
		h.WriteString(c.Name)
		h.Write([]byte{unitSep})
	}
	h.Write([]byte{recordSep})

	var buf []byte
	for _, row := range t.Rows {
		for _, v := range row {
			buf = appendValue(buf[:0], v)
			h.Write(buf)
			h.Write([]byte{unitSep})
		}
		h.Write([]byte{recordSep})
	}

	return fmt.Sprintf("%016x", h.Sum64())
}

// appendValue writes a canonical text form of v.
func appendValue(buf []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(buf, nullMark)
	case string:
		return append(buf, x...)
	case []byte:
		return append(buf, x...)
	case bool:
		return strconv.AppendBool(buf, x)
	case int64:
		return strconv.AppendInt(buf, x, 10)
	case float64:
		return strconv.AppendFloat(buf, x, 'g', -1, 64)
	case time.Time:
		return x.UTC().AppendFormat(buf, time.RFC3339Nano)
	default:
		return fmt.Append(buf, x)
	}
}

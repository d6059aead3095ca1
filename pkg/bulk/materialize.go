package bulk

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/ruslano69/tdtp-bulk/pkg/adapters/mssql"
	"github.com/ruslano69/tdtp-bulk/pkg/model"
	"github.com/ruslano69/tdtp-bulk/pkg/table"
)

var (
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
)

// Materialize resolves T in the model and copies entities into a table buffer.
// Only persistable columns are included; see model.EntityType.Persistable.
func Materialize[T any](m *model.Model, entities []T, includeKeys bool) (*table.Table, error) {
	if m == nil {
		return nil, fmt.Errorf("entity model is nil")
	}
	rt := reflect.TypeOf((*T)(nil)).Elem()

	et, ok := m.FindEntityType(rt)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, rt)
	}
	if et.Table == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoTableName, rt)
	}

	props := et.Persistable(includeKeys)
	if len(props) == 0 {
		return nil, fmt.Errorf("entity %s has no insertable columns", et.Name)
	}

	tbl := table.New(mssql.FullName(et.Schema, et.Table))
	for _, p := range props {
		if err := tbl.AddColumn(p.Column, p.Type); err != nil {
			return nil, err
		}
	}

	tbl.Rows = make([][]any, 0, len(entities))
	for i := range entities {
		v := reflect.ValueOf(&entities[i]).Elem()
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return nil, fmt.Errorf("%w at index %d", ErrNilEntity, i)
			}
			v = v.Elem()
		}

		row := make([]any, len(props))
		for j, p := range props {
			field, ok := p.Field(v)
			if !ok {
				continue // nil embedded struct: NULL
			}
			val, err := columnValue(field)
			if err != nil {
				return nil, fmt.Errorf("entity %d, column %s: %w", i, p.Column, err)
			}
			row[j] = val
		}
		if err := tbl.AddRow(row...); err != nil {
			return nil, err
		}
	}

	return tbl, nil
}

// columnValue converts a field to a value the driver accepts.
// Nil pointers become NULL, Valuers are resolved, named kinds are unwrapped.
func columnValue(v reflect.Value) (any, error) {
	for {
		if !v.IsValid() {
			return nil, nil
		}
		if vr, ok := asValuer(v); ok {
			dv, err := vr.Value()
			if err != nil {
				return nil, err
			}
			return dv, nil
		}
		if v.Kind() != reflect.Ptr && v.Kind() != reflect.Interface {
			break
		}
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}

	if v.Type() == timeType {
		return v.Interface(), nil
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows bigint", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			if v.IsNil() {
				return nil, nil
			}
			return v.Bytes(), nil
		}
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return b, nil
		}
	}

	return v.Interface(), nil
}

// asValuer returns v as a driver.Valuer, trying the pointer receiver as well.
// A nil pointer implementing Valuer is not called.
func asValuer(v reflect.Value) (driver.Valuer, bool) {
	t := v.Type()
	if t.Implements(valuerType) {
		if t.Kind() == reflect.Ptr && v.IsNil() {
			return nil, false
		}
		if t.Kind() == reflect.Interface {
			return nil, false
		}
		return v.Interface().(driver.Valuer), true
	}
	if t.Kind() != reflect.Ptr && v.CanAddr() && reflect.PointerTo(t).Implements(valuerType) {
		return v.Addr().Interface().(driver.Valuer), true
	}
	return nil, false
}

package model

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ValueGenerated tells when the database produces a column value on its own.
type ValueGenerated int

const (
	// Never - the value always comes from the entity.
	Never ValueGenerated = iota
	// OnAdd - the server assigns the value on insert (IDENTITY, defaults).
	OnAdd
	// OnAddOrUpdate - the server maintains the value (computed columns, rowversion).
	OnAddOrUpdate
)

func (v ValueGenerated) String() string {
	switch v {
	case Never:
		return "never"
	case OnAdd:
		return "on_add"
	case OnAddOrUpdate:
		return "on_add_or_update"
	default:
		return fmt.Sprintf("ValueGenerated(%d)", int(v))
	}
}

// EntityType describes how a Go struct maps onto a table.
type EntityType struct {
	Name       string
	GoType     reflect.Type
	Table      string
	Schema     string
	Properties []*Property
}

// Key returns the primary key properties in declaration order.
func (e *EntityType) Key() []*Property {
	var key []*Property
	for _, p := range e.Properties {
		if p.PrimaryKey {
			key = append(key, p)
		}
	}
	return key
}

// Property looks up a property by Go field name.
func (e *EntityType) Property(name string) (*Property, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Persistable returns the properties a plain insert must supply.
// Server-generated properties are always left out. Primary keys are left out
// unless includeKeys is set.
func (e *EntityType) Persistable(includeKeys bool) []*Property {
	props := make([]*Property, 0, len(e.Properties))
	for _, p := range e.Properties {
		if p.ValueGenerated != Never {
			continue
		}
		if p.PrimaryKey && !includeKeys {
			continue
		}
		props = append(props, p)
	}
	return props
}

// Property is a mapped struct field.
type Property struct {
	// Name is the Go field name.
	Name string
	// Column is the database column name.
	Column string
	// Type is the field type with pointer indirection removed.
	Type reflect.Type

	Nullable       bool
	PrimaryKey     bool
	ValueGenerated ValueGenerated

	index        []int
	explicitOpts bool
}

// Field returns the field value inside struct value v.
// ok is false when an embedded pointer on the way to the field is nil.
func (p *Property) Field(v reflect.Value) (field reflect.Value, ok bool) {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	for i, x := range p.index {
		if i > 0 {
			for v.Kind() == reflect.Ptr {
				if v.IsNil() {
					return reflect.Value{}, false
				}
				v = v.Elem()
			}
		}
		v = v.Field(x)
	}
	return v, true
}

var (
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
)

// walkFields collects mapped fields of t. Embedded structs are flattened;
// the first field claiming a column name wins.
func walkFields(t reflect.Type) ([]*Property, error) {
	var props []*Property
	seen := make(map[string]struct{})

	var walk func(t reflect.Type, base []int, forceInline bool) error
	walk = func(t reflect.Type, base []int, forceInline bool) error {
		t = derefType(t)
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous {
				continue
			}
			raw, hasTag := sf.Tag.Lookup("db")
			tag, err := parseTag(raw)
			if err != nil {
				return fmt.Errorf("field %s: %w", sf.Name, err)
			}
			if tag.omit {
				continue
			}
			path := append(append([]int(nil), base...), i)

			if tag.inline || (sf.Anonymous && (forceInline || !hasTag)) {
				if isWalkable(sf.Type) {
					if err := walk(sf.Type, path, tag.inline); err != nil {
						return err
					}
					continue
				}
			}
			if sf.PkgPath != "" {
				// unexported embedded non-struct
				continue
			}

			name := tag.name
			if name == "" {
				name = sf.Name
			}
			lc := strings.ToLower(name)
			if _, dup := seen[lc]; dup {
				continue
			}
			seen[lc] = struct{}{}

			ft := sf.Type
			nullable := ft.Kind() == reflect.Ptr || ft.Kind() == reflect.Slice || ft.Implements(valuerType)
			props = append(props, &Property{
				Name:           sf.Name,
				Column:         name,
				Type:           derefType(ft),
				Nullable:       nullable,
				PrimaryKey:     tag.pk,
				ValueGenerated: tag.generated(),
				index:          path,
				explicitOpts:   tag.hasOpts(),
			})
		}
		return nil
	}

	if err := walk(t, nil, false); err != nil {
		return nil, err
	}
	return props, nil
}

// isWalkable reports whether an embedded field is a struct to flatten rather than a value.
func isWalkable(t reflect.Type) bool {
	if t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType) {
		return false
	}
	t = derefType(t)
	return t.Kind() == reflect.Struct && t != timeType
}

type fieldTag struct {
	name     string
	omit     bool
	inline   bool
	pk       bool
	identity bool
	computed bool
}

func (t fieldTag) hasOpts() bool {
	return t.pk || t.identity || t.computed
}

func (t fieldTag) generated() ValueGenerated {
	switch {
	case t.computed:
		return OnAddOrUpdate
	case t.identity:
		return OnAdd
	default:
		return Never
	}
}

// parseTag supports "-", "col", "col,pk", "col,pk,identity", ",computed", ",inline".
func parseTag(tag string) (fieldTag, error) {
	if tag == "-" {
		return fieldTag{omit: true}, nil
	}
	var ft fieldTag
	if tag == "" {
		return ft, nil
	}
	parts := strings.Split(tag, ",")
	ft.name = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "":
		case "inline":
			ft.inline = true
		case "pk", "key":
			ft.pk = true
		case "identity":
			ft.identity = true
		case "computed", "rowversion":
			ft.computed = true
		default:
			return fieldTag{}, fmt.Errorf("unknown db tag option %q", opt)
		}
	}
	return ft, nil
}

package model

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/ruslano69/tdtp-bulk/pkg/adapters/mssql"
)

// TableNamer is implemented by entity types that name their own table.
// The name may be schema-qualified ("sales.Orders").
type TableNamer interface {
	TableName() string
}

// SchemaNamer is implemented by entity types that live outside the default schema.
type SchemaNamer interface {
	TableSchema() string
}

// Model is a registry of entity types keyed by their Go struct type.
// It is safe for concurrent use.
type Model struct {
	mu       sync.RWMutex
	entities map[reflect.Type]*EntityType
}

// New creates an empty model.
func New() *Model {
	return &Model{
		entities: make(map[reflect.Type]*EntityType),
	}
}

// Option customizes how an entity type is registered.
type Option func(*registration)

type registration struct {
	table  string
	schema string
}

// Table overrides the table name of the entity.
func Table(name string) Option {
	return func(r *registration) { r.table = name }
}

// Schema overrides the schema of the entity.
func Schema(name string) Option {
	return func(r *registration) { r.schema = name }
}

// Register introspects T and adds it to the model.
//
// Example:
//
//	m := model.New()
//	if _, err := model.Register[Order](m, model.Schema("sales")); err != nil {
//	    return err
//	}
func Register[T any](m *Model, opts ...Option) (*EntityType, error) {
	return m.add(reflect.TypeOf((*T)(nil)).Elem(), opts...)
}

// MustRegister is like Register but panics on error.
// Use only from init() or main().
func MustRegister[T any](m *Model, opts ...Option) *EntityType {
	et, err := Register[T](m, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to register entity: %v", err))
	}
	return et
}

// Add introspects the type of v (a struct or pointer to struct) and adds it to the model.
// Registering the same type twice replaces the previous entry.
func (m *Model) Add(v any, opts ...Option) (*EntityType, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot register nil entity")
	}
	return m.add(reflect.TypeOf(v), opts...)
}

func (m *Model) add(t reflect.Type, opts ...Option) (*EntityType, error) {
	t = derefType(t)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity type %s is not a struct", t)
	}

	reg := registration{}
	for _, opt := range opts {
		opt(&reg)
	}

	et, err := introspect(t, reg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[t] = et

	return et, nil
}

// FindEntityType returns the entity registered for t.
// Pointer types resolve to their element type.
func (m *Model) FindEntityType(t reflect.Type) (*EntityType, bool) {
	if t == nil {
		return nil, false
	}
	t = derefType(t)

	m.mu.RLock()
	defer m.mu.RUnlock()
	et, ok := m.entities[t]
	return et, ok
}

// Entities returns all registered entity types ordered by name.
func (m *Model) Entities() []*EntityType {
	m.mu.RLock()
	list := make([]*EntityType, 0, len(m.entities))
	for _, et := range m.entities {
		list = append(list, et)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

// introspect builds the entity metadata for struct type t.
func introspect(t reflect.Type, reg registration) (*EntityType, error) {
	et := &EntityType{
		Name:   t.Name(),
		GoType: t,
		Table:  reg.table,
		Schema: reg.schema,
	}

	// Name resolution: option, then method, then Go type name.
	zero := reflect.New(t).Interface()
	if et.Table == "" {
		if tn, ok := zero.(TableNamer); ok {
			et.Table = tn.TableName()
		} else {
			et.Table = t.Name()
		}
	}
	if et.Schema == "" {
		if sn, ok := zero.(SchemaNamer); ok {
			et.Schema = sn.TableSchema()
		}
	}

	// "sales.Orders" carries its own schema
	if schema, table := mssql.SplitTableName(et.Table); schema != "" {
		if et.Schema != "" && !equalFoldASCII(et.Schema, schema) {
			return nil, fmt.Errorf("entity %s: table %q conflicts with schema %q", t, et.Table, et.Schema)
		}
		et.Schema, et.Table = schema, table
	}

	props, err := walkFields(t)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", t, err)
	}
	if len(props) == 0 {
		return nil, fmt.Errorf("entity %s has no mapped fields", t)
	}
	applyKeyConvention(props)
	et.Properties = props

	return et, nil
}

// applyKeyConvention marks a property named ID as the key when no key was declared.
// Integer ID keys are assumed to be identity columns.
func applyKeyConvention(props []*Property) {
	for _, p := range props {
		if p.PrimaryKey {
			return
		}
	}
	for _, p := range props {
		if !equalFoldASCII(p.Column, "id") || p.explicitOpts {
			continue
		}
		p.PrimaryKey = true
		if isIntegerKind(p.Type.Kind()) {
			p.ValueGenerated = OnAdd
		}
		return
	}
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

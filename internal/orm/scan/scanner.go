// Package scan discovers entity types and their properties from a model root.
package scan

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/conduit-lang/dbdesc/internal/orm/schema"
	"github.com/conduit-lang/dbdesc/pkg/model"
)

var (
	entitySetType  = reflect.TypeOf(model.EntitySet[struct{}]{})
	collectionType = reflect.TypeOf((*model.Collection)(nil)).Elem()
	tablerType     = reflect.TypeOf((*model.Tabler)(nil)).Elem()
	describerType  = reflect.TypeOf((*model.TableDescriber)(nil)).Elem()
	valuerType     = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	timeType       = reflect.TypeOf(time.Time{})
)

// Scanner produces entity descriptors from a model root
type Scanner struct {
	capabilities []reflect.Type
	registry     *model.Registry
}

// Option configures a Scanner
type Option func(*Scanner)

// WithRegistry sets the registry consulted before tags and interfaces
func WithRegistry(r *model.Registry) Option {
	return func(s *Scanner) {
		s.registry = r
	}
}

// WithCapability adds a type whose generic definition marks a root field as
// an entity collection. Generic interfaces match by definition at any
// embedding depth. The matched type, or the field type when an interface
// matched, must implement model.Collection.
func WithCapability(t reflect.Type) Option {
	return func(s *Scanner) {
		s.capabilities = append(s.capabilities, t)
	}
}

// NewScanner creates a scanner recognizing model.EntitySet and model.Collection
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		capabilities: []reflect.Type{entitySetType, collectionType},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns one entity descriptor per exported root field that is an
// entity collection, in declaration order. root may be a struct value, a
// pointer to one, or a reflect.Type. An entity type reachable from several
// fields is reported once.
func (s *Scanner) Scan(root any) ([]*schema.EntityType, error) {
	rootType, ok := root.(reflect.Type)
	if !ok {
		rootType = reflect.TypeOf(root)
	}
	rootType = indirect(rootType)
	if rootType == nil || rootType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model root must be a struct, got %v", rootType)
	}

	entities := make([]*schema.EntityType, 0)
	seen := make(map[reflect.Type]bool)

	for _, f := range reflect.VisibleFields(rootType) {
		if !f.IsExported() || f.Anonymous {
			continue
		}

		matched, ok := s.match(f.Type)
		if !ok {
			continue
		}

		// an interface match reads the entity type from the field's own type
		if matched.Kind() == reflect.Interface {
			matched = indirect(f.Type)
		}
		elem, err := elementType(matched)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", rootType.Name(), f.Name, err)
		}
		if seen[elem] {
			continue
		}
		seen[elem] = true

		entity, err := s.entity(elem)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", rootType.Name(), f.Name, err)
		}
		entities = append(entities, entity)
	}

	return entities, nil
}

func (s *Scanner) match(t reflect.Type) (reflect.Type, bool) {
	for _, capability := range s.capabilities {
		if matched, ok := Match(t, capability); ok {
			return matched, true
		}
	}
	return nil, false
}

// entity builds the descriptor for one entity struct type
func (s *Scanner) entity(t reflect.Type) (*schema.EntityType, error) {
	e := schema.NewEntityType(t.Name())
	e.Type = t

	meta, hasMeta := s.registry.Lookup(t)

	if hasMeta && meta.Table != "" {
		e.TableOverride = meta.Table
	} else if v, ok, err := callString(t, tablerType, "TableName"); err != nil {
		return nil, err
	} else if ok {
		e.TableOverride = v
	}

	if hasMeta && meta.Description != nil {
		e.TableDescription = meta.Description
	} else if v, ok, err := callString(t, describerType, "TableDescription"); err != nil {
		return nil, err
	} else if ok {
		e.TableDescription = &v
	}

	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}

		col := &schema.ColumnMeta{
			Property:       f.Name,
			Type:           f.Type,
			IsPersisted:    IsPersisted(f),
			ColumnOverride: f.Tag.Get(model.TagColumn),
		}

		if desc, ok := meta.Columns[f.Name]; hasMeta && ok {
			col.Description = &desc
		} else if desc, ok := f.Tag.Lookup(model.TagDescription); ok {
			col.Description = &desc
		}

		e.Columns = append(e.Columns, col)
	}

	if hasMeta {
		props := make([]string, 0, len(meta.Columns))
		for prop := range meta.Columns {
			props = append(props, prop)
		}
		sort.Strings(props)
		for _, prop := range props {
			if _, ok := e.Column(prop); !ok {
				return nil, fmt.Errorf("registry describes unknown property %s.%s", t.Name(), prop)
			}
		}
	}

	return e, nil
}

// IsPersisted reports whether a property is stored as a column: scalar kinds,
// text, []byte, time.Time, driver.Valuer implementations, and pointers to
// those. Fields tagged db:"-" never are.
func IsPersisted(f reflect.StructField) bool {
	if f.Tag.Get(model.TagDB) == "-" {
		return false
	}
	return isScalar(f.Type, true)
}

func isScalar(t reflect.Type, allowPointer bool) bool {
	if t.Kind() == reflect.Interface {
		return false
	}
	if t.Implements(valuerType) {
		return true
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Struct:
		return t == timeType
	case reflect.Pointer:
		return allowPointer && isScalar(t.Elem(), false)
	default:
		return false
	}
}

// elementType extracts the entity type from a matched collection type
func elementType(matched reflect.Type) (elem reflect.Type, err error) {
	var v reflect.Value
	switch {
	case matched.Implements(collectionType):
		v = reflect.Zero(matched)
	case reflect.PointerTo(matched).Implements(collectionType):
		v = reflect.New(matched)
	default:
		return nil, fmt.Errorf("%s does not implement model.Collection", matched)
	}

	defer func() {
		if r := recover(); r != nil {
			elem, err = nil, fmt.Errorf("cannot determine entity type of %s: %v", matched, r)
		}
	}()

	elem = indirect(v.Interface().(model.Collection).EntityType())
	if elem == nil || elem.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity type of %s must be a struct, got %v", matched, elem)
	}
	return elem, nil
}

// callString invokes a string-returning capability method on the zero value
// of t, when t or *t implements iface
func callString(t, iface reflect.Type, method string) (result string, ok bool, err error) {
	var v reflect.Value
	switch {
	case t.Implements(iface):
		v = reflect.Zero(t)
	case reflect.PointerTo(t).Implements(iface):
		v = reflect.New(t)
	default:
		return "", false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s.%s panicked: %v", t.Name(), method, r)
		}
	}()

	out := v.MethodByName(method).Call(nil)
	return out[0].String(), true, nil
}

package model

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeMeta is an explicit metadata record for one entity type. It replaces
// tags and interface declarations for types that cannot carry them.
type TypeMeta struct {
	// Table overrides the table name when non-empty
	Table string
	// Description is the table description; nil leaves the catalog untouched
	Description *string
	// Columns maps property name to its description
	Columns map[string]string
}

// Registry maps entity types to explicit metadata records
type Registry struct {
	mu    sync.RWMutex
	types map[reflect.Type]TypeMeta
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{types: make(map[reflect.Type]TypeMeta)}
}

// Register records metadata for the type of v. v may be a value, a pointer,
// or a reflect.Type.
func (r *Registry) Register(v any, meta TypeMeta) error {
	t := typeOf(v)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("cannot register metadata for non-struct type %v", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t]; exists {
		return fmt.Errorf("metadata for %s is already registered", t)
	}
	r.types[t] = meta
	return nil
}

// Lookup returns the metadata registered for t
func (r *Registry) Lookup(t reflect.Type) (TypeMeta, bool) {
	if r == nil {
		return TypeMeta{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.types[t]
	return meta, ok
}

// Describe is a helper for building TypeMeta.Description
func Describe(s string) *string {
	return &s
}

func typeOf(v any) reflect.Type {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

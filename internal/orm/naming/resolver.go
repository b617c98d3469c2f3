// Package naming resolves physical table and column names for entity
// descriptors.
//
// Table names are resolved by precedence, first match wins:
//
//  1. an explicit override declared on the entity, used verbatim
//  2. the name extracted from the ORM's query trace (see TraceResolver)
//  3. the raw entity type name, passed through the naming convention
//
// Column names use the declared column override, else the property name
// passed through the naming convention.
package naming

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conduit-lang/dbdesc/internal/orm/schema"
	casing "github.com/conduit-lang/dbdesc/internal/util/strings"
)

// ErrNoName is returned when no physical name can be derived
var ErrNoName = errors.New("no name could be derived")

// Convention transforms raw type and property names into physical names
type Convention string

const (
	// Verbatim uses names unchanged
	Verbatim Convention = "verbatim"
	// SnakeCase converts CamelCase names to snake_case
	SnakeCase Convention = "snake"
)

// ParseConvention converts a string to a Convention
func ParseConvention(s string) (Convention, error) {
	switch Convention(strings.ToLower(s)) {
	case "", Verbatim:
		return Verbatim, nil
	case SnakeCase:
		return SnakeCase, nil
	default:
		return "", fmt.Errorf("unknown naming convention: %s", s)
	}
}

// Apply transforms name according to the convention
func (c Convention) Apply(name string) string {
	if c == SnakeCase {
		return casing.ToSnakeCase(name)
	}
	return name
}

// Resolver resolves entity and column names
type Resolver struct {
	trace      *TraceResolver
	convention Convention
}

// Option configures a Resolver
type Option func(*Resolver)

// WithTracer enables the trace tier using the given tracer
func WithTracer(t QueryTracer) Option {
	return func(r *Resolver) {
		if t != nil {
			r.trace = NewTraceResolver(t)
		}
	}
}

// WithConvention sets the naming convention for fallback names
func WithConvention(c Convention) Option {
	return func(r *Resolver) {
		r.convention = c
	}
}

// NewResolver creates a resolver. Without a tracer the trace tier is skipped.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{convention: Verbatim}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TableName returns the physical table name of an entity
func (r *Resolver) TableName(e *schema.EntityType) (string, error) {
	if e.TableOverride != "" {
		return e.TableOverride, nil
	}

	if r.trace != nil {
		name, err := r.trace.TableName(e)
		if err != nil {
			return "", err
		}
		if name != "" {
			return name, nil
		}
	}

	if name := r.convention.Apply(e.Name); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("entity %q: %w", e.Name, ErrNoName)
}

// ColumnName returns the physical column name of a property
func (r *Resolver) ColumnName(c *schema.ColumnMeta) (string, error) {
	if c.ColumnOverride != "" {
		return c.ColumnOverride, nil
	}
	if name := r.convention.Apply(c.Property); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("property %q: %w", c.Property, ErrNoName)
}

// Resolve sets TableName on the entity and ColumnName on every persisted column
func (r *Resolver) Resolve(e *schema.EntityType) error {
	table, err := r.TableName(e)
	if err != nil {
		return err
	}
	e.TableName = table

	for _, c := range e.Columns {
		if !c.IsPersisted {
			continue
		}
		column, err := r.ColumnName(c)
		if err != nil {
			return fmt.Errorf("entity %q: %w", e.Name, err)
		}
		c.ColumnName = column
	}
	return nil
}

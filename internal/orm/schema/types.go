// Package schema provides the entity descriptors that flow through a
// reconciliation run. Descriptors are produced either by scanning a model root
// or from an explicit manifest, and carry both the declared metadata and the
// physical names resolved for it.
package schema

import (
	"fmt"
	"reflect"
)

// EntityType describes one persisted model type (one table)
type EntityType struct {
	// Name is the unqualified model type name
	Name string
	// Type is the Go type the entity was scanned from; nil for manifest entities
	Type reflect.Type
	// TableOverride is an explicitly declared table name, used verbatim
	TableOverride string
	// TableDescription is the declared table description; nil means undeclared
	TableDescription *string
	// TableName is the physical table name, set by name resolution
	TableName string
	// Columns are the entity's properties in declaration order
	Columns []*ColumnMeta
}

// ColumnMeta describes one property of an entity type
type ColumnMeta struct {
	// Property is the model property name
	Property string
	// Type is the Go type of the property; nil for manifest columns
	Type reflect.Type
	// Description is the declared column description; nil means undeclared
	Description *string
	// IsPersisted is false for virtual/navigation and non-scalar properties
	IsPersisted bool
	// ColumnOverride is an explicitly declared column name
	ColumnOverride string
	// ColumnName is the physical column name, set by name resolution
	ColumnName string
}

// NewEntityType creates an entity descriptor with no columns
func NewEntityType(name string) *EntityType {
	return &EntityType{
		Name:    name,
		Columns: make([]*ColumnMeta, 0),
	}
}

// HasTableDescription reports whether the entity declares a table description
func (e *EntityType) HasTableDescription() bool {
	return e.TableDescription != nil
}

// Column returns the column for a property name
func (e *EntityType) Column(property string) (*ColumnMeta, bool) {
	for _, c := range e.Columns {
		if c.Property == property {
			return c, true
		}
	}
	return nil, false
}

// DescribedColumns returns the persisted columns that declare a description,
// in declaration order
func (e *EntityType) DescribedColumns() []*ColumnMeta {
	result := make([]*ColumnMeta, 0, len(e.Columns))
	for _, c := range e.Columns {
		if c.IsPersisted && c.HasDescription() {
			result = append(result, c)
		}
	}
	return result
}

// String returns a short representation of the entity
func (e *EntityType) String() string {
	if e.TableName != "" {
		return fmt.Sprintf("%s (%s)", e.Name, e.TableName)
	}
	return e.Name
}

// HasDescription reports whether the column declares a description
func (c *ColumnMeta) HasDescription() bool {
	return c.Description != nil
}

// Describe returns a pointer to s, for building descriptors by hand
func Describe(s string) *string {
	return &s
}

package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents an entity validation error with context
type ValidationError struct {
	Entity  string
	Column  string
	Message string
	Hint    string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Entity != "" {
		b.WriteString(e.Entity)
		if e.Column != "" {
			b.WriteString(".")
			b.WriteString(e.Column)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// Validate checks a set of entity descriptors for structural problems:
// missing names and duplicate entities or properties. Scanned entities are
// duplicates when they share a Go type, manifest entities when they share a
// name.
func Validate(entities []*EntityType) error {
	seen := make(map[any]bool, len(entities))

	for _, e := range entities {
		if e == nil {
			return &ValidationError{Message: "nil entity descriptor"}
		}
		if strings.TrimSpace(e.Name) == "" {
			return &ValidationError{
				Message: "entity has no name",
				Hint:    "every entity needs a name; set table to control the physical name",
			}
		}
		var id any = e.Name
		if e.Type != nil {
			id = e.Type
		}
		if seen[id] {
			return &ValidationError{Entity: e.Name, Message: "entity is declared more than once"}
		}
		seen[id] = true

		props := make(map[string]bool, len(e.Columns))
		for _, c := range e.Columns {
			if c == nil || strings.TrimSpace(c.Property) == "" {
				return &ValidationError{Entity: e.Name, Message: "column has no property name"}
			}
			if props[c.Property] {
				return &ValidationError{
					Entity:  e.Name,
					Column:  c.Property,
					Message: fmt.Sprintf("property %s is declared more than once", c.Property),
				}
			}
			props[c.Property] = true
		}
	}

	return nil
}

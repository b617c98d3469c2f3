// Package model defines the capabilities a model root and its entity types use
// to declare description metadata.
//
// A model root is a struct whose exported fields are entity collections:
//
//	type Store struct {
//		People model.EntitySet[Person]
//		Orders model.EntitySet[Order]
//	}
//
// Entity types declare their table description with TableDescriber, an explicit
// table name with Tabler, and per-property metadata with struct tags:
//
//	type Person struct {
//		ID        int
//		FirstName string `desc:"Given name"`
//		LastName  string `desc:"Family name" column:"surname"`
//		Orders    []Order `db:"-"`
//	}
package model

import "reflect"

// Struct tag keys read by the scanner
const (
	// TagDescription carries a property description
	TagDescription = "desc"
	// TagColumn overrides the column name of a property
	TagColumn = "column"
	// TagDB set to "-" marks a property that has no column
	TagDB = "db"
)

// Collection is implemented by every typed entity collection.
type Collection interface {
	// EntityType returns the entity type stored in the collection
	EntityType() reflect.Type
}

// EntitySet marks a model root field as a collection of T.
// It can be embedded to build richer collection types.
type EntitySet[T any] struct{}

// EntityType returns the type of T
func (EntitySet[T]) EntityType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Tabler overrides the table name of an entity type
type Tabler interface {
	TableName() string
}

// TableDescriber declares the description of an entity's table
type TableDescriber interface {
	TableDescription() string
}

var (
	_ Collection = EntitySet[struct{}]{}
)

// Package catalog reads and writes description metadata in a database's
// schema catalog. The SQL for each database lives behind the Dialect
// interface; Reader and Writer are dialect-independent.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// PropertyName is the extended property key descriptions are stored under
const PropertyName = "MS_Description"

// Scope is the kind of object a catalog entry is attached to
type Scope int

const (
	// ScopeTable targets a table
	ScopeTable Scope = iota
	// ScopeColumn targets a column within a table
	ScopeColumn
)

// String returns the string representation of the scope
func (s Scope) String() string {
	switch s {
	case ScopeTable:
		return "table"
	case ScopeColumn:
		return "column"
	default:
		return "unknown"
	}
}

// Op is the kind of catalog mutation issued for a description
type Op int

const (
	// OpAdd creates a description that does not exist yet
	OpAdd Op = iota
	// OpUpdate replaces an existing description
	OpUpdate
)

// String returns the string representation of the op
func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Key identifies one catalog entry
type Key struct {
	Scope  Scope
	Schema string
	Table  string
	// Column is empty for ScopeTable
	Column string
}

// TableKey builds the key of a table description
func TableKey(schema, table string) Key {
	return Key{Scope: ScopeTable, Schema: schema, Table: table}
}

// ColumnKey builds the key of a column description
func ColumnKey(schema, table, column string) Key {
	return Key{Scope: ScopeColumn, Schema: schema, Table: table, Column: column}
}

// String returns a readable form of the key, e.g. "column dbo.Person.FirstName"
func (k Key) String() string {
	parts := []string{k.Schema, k.Table}
	if k.Scope == ScopeColumn {
		parts = append(parts, k.Column)
	}
	return fmt.Sprintf("%s %s", k.Scope, strings.Join(parts, "."))
}

// Statement is a query with its bind arguments
type Statement struct {
	Query string
	Args  []any
}

// DBTX is the subset of *sql.Tx (and *sql.DB, *sql.Conn) used for catalog I/O
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect renders the catalog statements of one database
type Dialect interface {
	// Name returns the dialect name
	Name() string
	// DefaultSchema returns the schema used when none is configured
	DefaultSchema() string
	// LookupStatement selects the stored description of key. It returns no
	// row or a NULL value when none is stored, unless the dialect implements
	// RowPresence.
	LookupStatement(key Key) Statement
	// WriteStatement renders the add or update of a description
	WriteStatement(key Key, description string, op Op) (Statement, error)
}

// Preparer is implemented by dialects that need setup inside the run's
// transaction before the first lookup
type Preparer interface {
	Prepare(ctx context.Context, db DBTX) error
}

// RowPresence is implemented by dialects whose lookup yields a row only for
// a stored entry. A row holding NULL then still counts as stored.
type RowPresence interface {
	StoredByRow() bool
}

var dialects = map[string]func() Dialect{
	"mssql":      func() Dialect { return MSSQL{} },
	"sqlserver":  func() Dialect { return MSSQL{} },
	"postgres":   func() Dialect { return Postgres{} },
	"postgresql": func() Dialect { return Postgres{} },
	"pgx":        func() Dialect { return Postgres{} },
	"sqlite":     func() Dialect { return SQLite{} },
	"sqlite3":    func() Dialect { return SQLite{} },
}

// Lookup returns the dialect registered under name. Driver names
// (sqlserver, pgx, postgres, sqlite3) are accepted as aliases.
func Lookup(name string) (Dialect, error) {
	factory, ok := dialects[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown catalog dialect %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return factory(), nil
}

// Names returns the registered dialect names and aliases, sorted
func Names() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

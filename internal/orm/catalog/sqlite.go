package catalog

import (
	"context"
	"fmt"
)

// SQLite emulates extended properties with a catalog table, since SQLite has
// no native object comments. Adding an existing entry fails on the primary
// key, like sp_addextendedproperty does.
type SQLite struct{}

// SQLitePropertyTable is the table holding emulated extended properties
const SQLitePropertyTable = "_extended_properties"

// Name returns the dialect name
func (SQLite) Name() string {
	return "sqlite"
}

// DefaultSchema returns main
func (SQLite) DefaultSchema() string {
	return "main"
}

// Prepare creates the property table if it does not exist
func (SQLite) Prepare(ctx context.Context, db DBTX) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+SQLitePropertyTable+` (
		schema_name TEXT NOT NULL,
		table_name  TEXT NOT NULL,
		column_name TEXT NOT NULL DEFAULT '',
		name        TEXT NOT NULL,
		value       TEXT NOT NULL,
		PRIMARY KEY (schema_name, table_name, column_name, name)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", SQLitePropertyTable, err)
	}
	return nil
}

// LookupStatement selects the stored value
func (SQLite) LookupStatement(key Key) Statement {
	return Statement{
		Query: `SELECT value FROM ` + SQLitePropertyTable +
			` WHERE schema_name = ? AND table_name = ? AND column_name = ? AND name = ?`,
		Args: []any{key.Schema, key.Table, key.Column, PropertyName},
	}
}

// WriteStatement renders an INSERT for add and an UPDATE for update
func (SQLite) WriteStatement(key Key, description string, op Op) (Statement, error) {
	if key.Scope != ScopeTable && key.Scope != ScopeColumn {
		return Statement{}, fmt.Errorf("unsupported scope %s", key.Scope)
	}

	if op == OpUpdate {
		return Statement{
			Query: `UPDATE ` + SQLitePropertyTable +
				` SET value = ? WHERE schema_name = ? AND table_name = ? AND column_name = ? AND name = ?`,
			Args: []any{description, key.Schema, key.Table, key.Column, PropertyName},
		}, nil
	}
	return Statement{
		Query: `INSERT INTO ` + SQLitePropertyTable +
			` (schema_name, table_name, column_name, name, value) VALUES (?, ?, ?, ?, ?)`,
		Args: []any{key.Schema, key.Table, key.Column, PropertyName, description},
	}, nil
}

var _ Preparer = SQLite{}

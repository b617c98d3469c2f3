package catalog

import (
	"fmt"

	"github.com/lib/pq"
)

// Postgres stores descriptions as COMMENT ON objects
type Postgres struct{}

// Name returns the dialect name
func (Postgres) Name() string {
	return "postgres"
}

// DefaultSchema returns public
func (Postgres) DefaultSchema() string {
	return "public"
}

const (
	pgLookupTable = `SELECT obj_description(c.oid, 'pg_class')
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relname = $2`

	pgLookupColumn = `SELECT col_description(c.oid, a.attnum)
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
JOIN pg_catalog.pg_attribute a ON a.attrelid = c.oid
WHERE n.nspname = $1 AND c.relname = $2 AND a.attname = $3 AND NOT a.attisdropped`
)

// LookupStatement reads obj_description or col_description
func (Postgres) LookupStatement(key Key) Statement {
	if key.Scope == ScopeColumn {
		return Statement{Query: pgLookupColumn, Args: []any{key.Schema, key.Table, key.Column}}
	}
	return Statement{Query: pgLookupTable, Args: []any{key.Schema, key.Table}}
}

// WriteStatement renders COMMENT ON. COMMENT does not accept bind
// parameters, so identifiers and the literal are quoted. Add and update
// render the same statement.
func (Postgres) WriteStatement(key Key, description string, _ Op) (Statement, error) {
	switch key.Scope {
	case ScopeTable:
		return Statement{
			Query: fmt.Sprintf("COMMENT ON TABLE %s.%s IS %s",
				pq.QuoteIdentifier(key.Schema),
				pq.QuoteIdentifier(key.Table),
				pq.QuoteLiteral(description)),
		}, nil
	case ScopeColumn:
		return Statement{
			Query: fmt.Sprintf("COMMENT ON COLUMN %s.%s.%s IS %s",
				pq.QuoteIdentifier(key.Schema),
				pq.QuoteIdentifier(key.Table),
				pq.QuoteIdentifier(key.Column),
				pq.QuoteLiteral(description)),
		}, nil
	default:
		return Statement{}, fmt.Errorf("unsupported scope %s", key.Scope)
	}
}

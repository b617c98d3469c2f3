package catalog

import (
	"database/sql"
	"fmt"
)

// MSSQL stores descriptions as SQL Server extended properties
type MSSQL struct{}

// Name returns the dialect name
func (MSSQL) Name() string {
	return "mssql"
}

// DefaultSchema returns dbo
func (MSSQL) DefaultSchema() string {
	return "dbo"
}

// StoredByRow reports true: fn_listextendedproperty returns a row for every
// stored property, including one whose value is NULL
func (MSSQL) StoredByRow() bool {
	return true
}

const (
	mssqlLookupTable = `SELECT CAST([value] AS NVARCHAR(4000)) FROM fn_listextendedproperty(N'MS_Description', N'schema', @schema, N'table', NULL, NULL, NULL) WHERE objname = @table`

	mssqlLookupColumn = `SELECT CAST([value] AS NVARCHAR(4000)) FROM fn_listextendedproperty(N'MS_Description', N'schema', @schema, N'table', @table, N'column', NULL) WHERE objname = @column`

	mssqlTableProperty = `EXEC %s
	@name = N'MS_Description',
	@value = @desc,
	@level0type = N'Schema',
	@level0name = @schema,
	@level1type = N'Table',
	@level1name = @table,
	@level2type = NULL,
	@level2name = NULL`

	mssqlColumnProperty = `EXEC %s
	@name = N'MS_Description',
	@value = @desc,
	@level0type = N'Schema',
	@level0name = @schema,
	@level1type = N'Table',
	@level1name = @table,
	@level2type = N'Column',
	@level2name = @column`
)

// LookupStatement queries fn_listextendedproperty for the object
func (MSSQL) LookupStatement(key Key) Statement {
	if key.Scope == ScopeColumn {
		return Statement{
			Query: mssqlLookupColumn,
			Args: []any{
				sql.Named("schema", key.Schema),
				sql.Named("table", key.Table),
				sql.Named("column", key.Column),
			},
		}
	}
	return Statement{
		Query: mssqlLookupTable,
		Args: []any{
			sql.Named("schema", key.Schema),
			sql.Named("table", key.Table),
		},
	}
}

// WriteStatement renders sp_addextendedproperty or sp_updateextendedproperty
func (MSSQL) WriteStatement(key Key, description string, op Op) (Statement, error) {
	proc := "sp_addextendedproperty"
	if op == OpUpdate {
		proc = "sp_updateextendedproperty"
	}

	switch key.Scope {
	case ScopeTable:
		return Statement{
			Query: fmt.Sprintf(mssqlTableProperty, proc),
			Args: []any{
				sql.Named("desc", description),
				sql.Named("schema", key.Schema),
				sql.Named("table", key.Table),
			},
		}, nil
	case ScopeColumn:
		return Statement{
			Query: fmt.Sprintf(mssqlColumnProperty, proc),
			Args: []any{
				sql.Named("desc", description),
				sql.Named("schema", key.Schema),
				sql.Named("table", key.Table),
				sql.Named("column", key.Column),
			},
		}, nil
	default:
		return Statement{}, fmt.Errorf("unsupported scope %s", key.Scope)
	}
}

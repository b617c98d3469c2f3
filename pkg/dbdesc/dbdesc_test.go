package dbdesc

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/dbdesc/pkg/model"
)

type Person struct {
	ID        int
	FirstName string `desc:"Given name"`
	LastName  string `column:"surname" desc:"Family name"`
	Friends   []Person
}

func (Person) TableDescription() string { return "People records" }

type Product struct {
	SKU string
}

type Shop struct {
	People   model.EntitySet[Person]
	Products model.EntitySet[Product]
	Name     string
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "dbdesc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func description(t *testing.T, db *sql.DB, schema, table, column string) string {
	t.Helper()
	var value string
	err := db.QueryRow(`SELECT value FROM _extended_properties WHERE schema_name = ? AND table_name = ? AND column_name = ?`,
		schema, table, column).Scan(&value)
	require.NoError(t, err)
	return value
}

func TestReconcile(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	report, err := Reconcile(ctx, db, Shop{}, WithDialect("sqlite"))
	require.NoError(t, err)
	assert.True(t, report.Committed())
	assert.Equal(t, "sqlite", report.Dialect)
	assert.Equal(t, 2, report.Entities)
	assert.Len(t, report.Changes, 3)
	assert.Equal(t, 1, report.SkippedVirtual)

	assert.Equal(t, "People records", description(t, db, "main", "Person", ""))
	assert.Equal(t, "Given name", description(t, db, "main", "Person", "FirstName"))
	assert.Equal(t, "Family name", description(t, db, "main", "Person", "surname"))

	entries, err := Inspect(ctx, db, Shop{}, WithDialect("sqlite"))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.True(t, e.InSync(), e.Key.String())
	}
}

func TestReconcile_Options(t *testing.T) {
	db := openDB(t)

	registry := model.NewRegistry()
	require.NoError(t, registry.Register(Product{}, model.TypeMeta{
		Table:       "catalog_items",
		Description: model.Describe("Items for sale"),
		Columns:     map[string]string{"SKU": "Stock keeping unit"},
	}))

	report, err := Reconcile(context.Background(), db, &Shop{},
		WithDialect("sqlite3"),
		WithSchema("shop"),
		WithConvention(SnakeCase),
		WithRegistry(registry),
		WithIsolation("serializable"))
	require.NoError(t, err)
	assert.Len(t, report.Changes, 5)

	assert.Equal(t, "Given name", description(t, db, "shop", "person", "first_name"))
	assert.Equal(t, "Items for sale", description(t, db, "shop", "catalog_items", ""))
	assert.Equal(t, "Stock keeping unit", description(t, db, "shop", "catalog_items", "sku"))
}

func TestReconcile_Tracer(t *testing.T) {
	db := openDB(t)
	tracer := func(e *EntityType) (string, error) {
		return "SELECT [Extent1].[ID] AS [ID] FROM [dbo].[" + e.Name + "s] AS [Extent1]", nil
	}

	report, err := Reconcile(context.Background(), db, Shop{},
		WithDialect("sqlite"),
		WithTracer(queryTracerFunc(tracer)))
	require.NoError(t, err)
	assert.Equal(t, "Persons", report.Changes[0].Key.Table)
}

func TestReconcile_DryRun(t *testing.T) {
	db := openDB(t)

	report, err := Reconcile(context.Background(), db, Shop{}, WithDialect("sqlite"), WithDryRun(true))
	require.NoError(t, err)
	assert.Len(t, report.Changes, 3)
	assert.False(t, report.Committed())

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = '_extended_properties'`).Scan(&count))
	assert.Zero(t, count)
}

func TestReconcile_InvalidOptions(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	_, err := Reconcile(ctx, nil, Shop{})
	assert.EqualError(t, err, "database handle is required")

	_, err = Reconcile(ctx, db, Shop{}, WithDialect("oracle"))
	assert.ErrorContains(t, err, `unknown catalog dialect "oracle"`)

	_, err = Reconcile(ctx, db, Shop{}, WithDialect("sqlite"), WithIsolation("snapshot"))
	assert.ErrorContains(t, err, "unknown isolation level")
}

func TestReconcile_ScanError(t *testing.T) {
	db := openDB(t)

	report, err := Reconcile(context.Background(), db, []Person{}, WithDialect("sqlite"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScan))

	var scanErr *ScanError
	assert.True(t, errors.As(err, &scanErr))
	assert.False(t, report.Committed())
}

func TestReconcileManifest(t *testing.T) {
	db := openDB(t)
	path := filepath.Join(t.TempDir(), "descriptions.yml")
	require.NoError(t, os.WriteFile(path, []byte(`schema: crm
entities:
  - name: Person
    table: People
    description: People records
    columns:
      - name: FirstName
        description: Given name
      - name: Orders
        description: Orders placed
        persisted: false
`), 0o644))

	report, err := ReconcileManifest(context.Background(), db, path, WithDialect("sqlite"))
	require.NoError(t, err)
	assert.Len(t, report.Changes, 2)
	assert.Equal(t, 1, report.SkippedVirtual)
	assert.Equal(t, "Given name", description(t, db, "crm", "People", "FirstName"))

	_, err = ReconcileManifest(context.Background(), db, filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, ErrScan)
}

func TestReconcileEntities(t *testing.T) {
	db := openDB(t)
	desc := "Given name"
	entities := []*EntityType{{
		Name: "Person",
		Columns: []*ColumnMeta{
			{Property: "FirstName", IsPersisted: true, Description: &desc},
		},
	}}

	ctx := context.Background()
	first, err := ReconcileEntities(ctx, db, entities, WithDialect("sqlite"))
	require.NoError(t, err)
	second, err := ReconcileEntities(ctx, db, entities, WithDialect("sqlite"))
	require.NoError(t, err)

	assert.Equal(t, "add", first.Changes[0].Op.String())
	assert.Equal(t, "update", second.Changes[0].Op.String())
}

type queryTracerFunc func(e *EntityType) (string, error)

func (f queryTracerFunc) TraceQuery(e *EntityType) (string, error) { return f(e) }

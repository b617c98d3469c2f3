package naming

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/dbdesc/internal/orm/schema"
)

func staticTrace(sql string) QueryTracer {
	return QueryTracerFunc(func(*schema.EntityType) (string, error) {
		return sql, nil
	})
}

func TestResolver_TablePrecedence(t *testing.T) {
	trace := staticTrace("SELECT [Extent1].[Id] AS [Id] FROM [dbo].[Persons] AS [Extent1]")

	tests := []struct {
		name     string
		entity   *schema.EntityType
		resolver *Resolver
		want     string
	}{
		{
			name:     "override only",
			entity:   &schema.EntityType{Name: "Person", TableOverride: "People"},
			resolver: NewResolver(),
			want:     "People",
		},
		{
			name:     "override beats trace",
			entity:   &schema.EntityType{Name: "Person", TableOverride: "People"},
			resolver: NewResolver(WithTracer(trace)),
			want:     "People",
		},
		{
			name:     "trace without override",
			entity:   &schema.EntityType{Name: "Person"},
			resolver: NewResolver(WithTracer(trace)),
			want:     "Persons",
		},
		{
			name:     "neither",
			entity:   &schema.EntityType{Name: "Person"},
			resolver: NewResolver(),
			want:     "Person",
		},
		{
			name:     "trace without table falls through",
			entity:   &schema.EntityType{Name: "Person"},
			resolver: NewResolver(WithTracer(staticTrace("SELECT 1"))),
			want:     "Person",
		},
		{
			name:     "snake convention on fallback only",
			entity:   &schema.EntityType{Name: "OrderLine"},
			resolver: NewResolver(WithConvention(SnakeCase)),
			want:     "order_line",
		},
		{
			name:     "override is verbatim under snake convention",
			entity:   &schema.EntityType{Name: "OrderLine", TableOverride: "OrderLines"},
			resolver: NewResolver(WithConvention(SnakeCase)),
			want:     "OrderLines",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.resolver.TableName(tt.entity)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_TraceError(t *testing.T) {
	failing := QueryTracerFunc(func(*schema.EntityType) (string, error) {
		return "", errors.New("no object set")
	})

	_, err := NewResolver(WithTracer(failing)).TableName(&schema.EntityType{Name: "Person"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no object set")
}

func TestResolver_NoName(t *testing.T) {
	_, err := NewResolver().TableName(&schema.EntityType{})
	assert.ErrorIs(t, err, ErrNoName)

	_, err = NewResolver().ColumnName(&schema.ColumnMeta{})
	assert.ErrorIs(t, err, ErrNoName)
}

func TestResolver_Resolve(t *testing.T) {
	e := &schema.EntityType{
		Name: "Person",
		Columns: []*schema.ColumnMeta{
			{Property: "FirstName", IsPersisted: true},
			{Property: "LastName", IsPersisted: true, ColumnOverride: "surname"},
			{Property: "Orders", IsPersisted: false},
		},
	}

	require.NoError(t, NewResolver().Resolve(e))
	assert.Equal(t, "Person", e.TableName)
	assert.Equal(t, "FirstName", e.Columns[0].ColumnName)
	assert.Equal(t, "surname", e.Columns[1].ColumnName)
	assert.Empty(t, e.Columns[2].ColumnName)
}

func TestParseConvention(t *testing.T) {
	c, err := ParseConvention("")
	require.NoError(t, err)
	assert.Equal(t, Verbatim, c)

	c, err = ParseConvention("SNAKE")
	require.NoError(t, err)
	assert.Equal(t, SnakeCase, c)

	_, err = ParseConvention("kebab")
	assert.Error(t, err)
}

func TestExtractTableName(t *testing.T) {
	tests := map[string]string{
		"SELECT [Extent1].[Id] AS [Id] FROM [dbo].[Persons] AS [Extent1]": "Persons",
		"SELECT * FROM [Persons] AS [Extent1]":                             "Persons",
		"SELECT * FROM [sales].[Order Lines] AS [x]":                       "Order Lines",
		"SELECT * FROM persons AS p":                                       "persons",
		"SELECT 1":                                                         "",
	}

	for trace, want := range tests {
		assert.Equal(t, want, ExtractTableName(trace), trace)
	}
}

package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_WriteStatement(t *testing.T) {
	d := Postgres{}

	st, err := d.WriteStatement(TableKey("public", "person"), "People records", OpAdd)
	require.NoError(t, err)
	assert.Equal(t, `COMMENT ON TABLE "public"."person" IS 'People records'`, st.Query)
	assert.Empty(t, st.Args)

	update, err := d.WriteStatement(TableKey("public", "person"), "People records", OpUpdate)
	require.NoError(t, err)
	assert.Equal(t, st.Query, update.Query)

	st, err = d.WriteStatement(ColumnKey("public", "person", "first_name"), "Person's given name", OpAdd)
	require.NoError(t, err)
	assert.Equal(t, `COMMENT ON COLUMN "public"."person"."first_name" IS 'Person''s given name'`, st.Query)
}

func TestPostgres_LookupNull(t *testing.T) {
	db, mock := newMock(t)
	key := ColumnKey("public", "person", "first_name")

	mock.ExpectQuery(pgLookupColumn).
		WithArgs("public", "person", "first_name").
		WillReturnRows(sqlmock.NewRows([]string{"col_description"}).AddRow(nil))

	exists, err := NewReader(Postgres{}).Exists(context.Background(), db, key)
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Write(t *testing.T) {
	db, mock := newMock(t)
	key := TableKey("public", "person")

	mock.ExpectQuery(pgLookupTable).
		WithArgs("public", "person").
		WillReturnRows(sqlmock.NewRows([]string{"obj_description"}).AddRow("Old"))
	mock.ExpectExec(`COMMENT ON TABLE "public"."person" IS 'People records'`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	exists, err := NewReader(Postgres{}).Exists(ctx, db, key)
	require.NoError(t, err)
	require.True(t, exists)

	op, err := NewWriter(Postgres{}).Write(ctx, db, key, "People records", exists)
	require.NoError(t, err)
	assert.Equal(t, OpUpdate, op)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ErrorCode(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(`COMMENT ON TABLE "public"."missing" IS 'x'`).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "public.missing" does not exist`})

	_, err := NewWriter(Postgres{}).Write(context.Background(), db, TableKey("public", "missing"), "x", false)
	require.Error(t, err)
	assert.Equal(t, "postgres:42P01", ErrorCode(err))
}

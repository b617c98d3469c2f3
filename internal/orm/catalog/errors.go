package catalog

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
)

// ErrorCode extracts the vendor error code from a driver error, prefixed with
// the vendor name (e.g. "mssql:15233", "postgres:42P01", "sqlite:19").
// It returns "" when err does not come from a known driver.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return fmt.Sprintf("mssql:%d", msErr.Number)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return "postgres:" + pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return "postgres:" + string(pqErr.Code)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return fmt.Sprintf("sqlite:%d", int(liteErr.Code))
	}

	return ""
}

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Reader looks up stored descriptions
type Reader struct {
	dialect Dialect
}

// NewReader creates a reader for a dialect
func NewReader(d Dialect) *Reader {
	return &Reader{dialect: d}
}

// Lookup returns the stored description of key and whether one exists
func (r *Reader) Lookup(ctx context.Context, db DBTX, key Key) (string, bool, error) {
	st := r.dialect.LookupStatement(key)

	var value sql.NullString
	err := db.QueryRowContext(ctx, st.Query, st.Args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read description of %s: %w", key, err)
	}

	return value.String, value.Valid || r.storedByRow(), nil
}

func (r *Reader) storedByRow() bool {
	p, ok := r.dialect.(RowPresence)
	return ok && p.StoredByRow()
}

// Exists reports whether a description is stored for key
func (r *Reader) Exists(ctx context.Context, db DBTX, key Key) (bool, error) {
	_, ok, err := r.Lookup(ctx, db, key)
	return ok, err
}

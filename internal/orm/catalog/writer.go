package catalog

import (
	"context"
	"fmt"
)

// Writer emits description mutations
type Writer struct {
	dialect Dialect
}

// NewWriter creates a writer for a dialect
func NewWriter(d Dialect) *Writer {
	return &Writer{dialect: d}
}

// Write issues exactly one mutation for key: an add when exists is false,
// an update when it is true. It returns the op that was issued.
func (w *Writer) Write(ctx context.Context, db DBTX, key Key, description string, exists bool) (Op, error) {
	op := OpAdd
	if exists {
		op = OpUpdate
	}

	st, err := w.dialect.WriteStatement(key, description, op)
	if err != nil {
		return op, err
	}

	if _, err := db.ExecContext(ctx, st.Query, st.Args...); err != nil {
		return op, fmt.Errorf("failed to %s description of %s: %w", op, key, err)
	}
	return op, nil
}

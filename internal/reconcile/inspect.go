package reconcile

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/conduit-lang/dbdesc/internal/orm/catalog"
)

// Entry compares one declared description with the catalog
type Entry struct {
	Key      catalog.Key
	Declared string
	Stored   string
	Exists   bool
}

// InSync reports whether the catalog already holds the declared description
func (e Entry) InSync() bool {
	return e.Exists && e.Stored == e.Declared
}

// Inspect reads the stored description of every declared entry without
// writing anything. It runs in a transaction that is always rolled back.
func (c *Coordinator) Inspect(ctx context.Context, source Source) ([]Entry, error) {
	report := newReport(c.dialect.Name(), true)
	log := c.logger.With(zap.String("run_id", report.RunID), zap.String("dialect", c.dialect.Name()))

	var entries []Entry
	err := c.withTransaction(ctx, report, log, func(tx *sql.Tx) error {
		targets, err := c.prepare(ctx, tx, source, report, log)
		if err != nil {
			return err
		}

		entries = make([]Entry, 0, len(targets))
		for _, t := range targets {
			stored, exists, err := c.reader.Lookup(ctx, tx, t.key)
			if err != nil {
				return newCatalogIOError("read", &t.key, err)
			}
			entries = append(entries, Entry{
				Key:      t.key,
				Declared: t.description,
				Stored:   stored,
				Exists:   exists,
			})
		}
		return errDiscard
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

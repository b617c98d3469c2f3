// Package reconcile applies declared table and column descriptions to a
// database catalog in a single all-or-nothing transaction.
//
// A run opens one connection, begins one transaction, scans the model,
// resolves every physical name, and then for each entity (in declaration
// order) writes its table description and the descriptions of its persisted
// columns. Any failure rolls the whole transaction back and is returned; the
// connection is always closed.
//
// Runs are sequential and take no lock beyond the transaction itself, so
// concurrent runs against one schema must be serialized by the caller.
package reconcile

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/conduit-lang/dbdesc/internal/orm/catalog"
	"github.com/conduit-lang/dbdesc/internal/orm/naming"
	"github.com/conduit-lang/dbdesc/internal/orm/scan"
	"github.com/conduit-lang/dbdesc/internal/orm/schema"
	"github.com/conduit-lang/dbdesc/internal/orm/transaction"
)

// errDiscard makes the transaction manager roll back a run that succeeded
var errDiscard = errors.New("discard transaction")

// Connector hands out a dedicated connection. *sql.DB implements it.
type Connector interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// Source produces the entity descriptors of a run. It is called once, inside
// the run's transaction.
type Source func() ([]*schema.EntityType, error)

// FromModel scans a model root with s
func FromModel(s *scan.Scanner, root any) Source {
	return func() ([]*schema.EntityType, error) {
		return s.Scan(root)
	}
}

// FromEntities uses explicit descriptors, e.g. from a manifest
func FromEntities(entities []*schema.EntityType) Source {
	return func() ([]*schema.EntityType, error) {
		return entities, nil
	}
}

// Coordinator runs reconciliations against one database
type Coordinator struct {
	db        Connector
	dialect   catalog.Dialect
	reader    *catalog.Reader
	writer    *catalog.Writer
	resolver  *naming.Resolver
	schema    string
	isolation transaction.IsolationLevel
	dryRun    bool
	logger    *zap.Logger
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithSchema sets the schema qualifier; the dialect default is used otherwise
func WithSchema(name string) Option {
	return func(c *Coordinator) {
		if name != "" {
			c.schema = name
		}
	}
}

// WithResolver sets the name resolver
func WithResolver(r *naming.Resolver) Option {
	return func(c *Coordinator) {
		c.resolver = r
	}
}

// WithIsolation sets the isolation level of the run's transaction
func WithIsolation(level transaction.IsolationLevel) Option {
	return func(c *Coordinator) {
		c.isolation = level
	}
}

// WithDryRun makes runs roll back after issuing every change
func WithDryRun(dryRun bool) Option {
	return func(c *Coordinator) {
		c.dryRun = dryRun
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a coordinator writing through dialect
func New(db Connector, dialect catalog.Dialect, opts ...Option) *Coordinator {
	c := &Coordinator{
		db:        db,
		dialect:   dialect,
		reader:    catalog.NewReader(dialect),
		writer:    catalog.NewWriter(dialect),
		resolver:  naming.NewResolver(),
		schema:    dialect.DefaultSchema(),
		isolation: transaction.ReadCommitted,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schema returns the schema qualifier used for catalog entries
func (c *Coordinator) Schema() string {
	return c.schema
}

// Run reconciles the entities produced by source. The returned report is
// never nil. On error nothing from this run is retained in the catalog.
func (c *Coordinator) Run(ctx context.Context, source Source) (*Report, error) {
	report := newReport(c.dialect.Name(), c.dryRun)
	log := c.logger.With(zap.String("run_id", report.RunID), zap.String("dialect", c.dialect.Name()))

	err := c.withTransaction(ctx, report, log, func(tx *sql.Tx) error {
		if err := c.apply(ctx, tx, source, report, log); err != nil {
			return err
		}
		if c.dryRun {
			return errDiscard
		}
		return nil
	})
	if err != nil {
		log.Error("reconciliation failed", zap.Error(err), zap.Int("changes_discarded", len(report.Changes)))
		return report, err
	}

	log.Info("reconciliation finished",
		zap.Bool("dry_run", c.dryRun),
		zap.Int("entities", report.Entities),
		zap.Int("added", report.Count(catalog.OpAdd)),
		zap.Int("updated", report.Count(catalog.OpUpdate)))
	return report, nil
}

// withTransaction owns the connection and transaction boundary. fn returning
// errDiscard rolls back without failing the run.
func (c *Coordinator) withTransaction(ctx context.Context, report *Report, log *zap.Logger, fn func(tx *sql.Tx) error) error {
	transition := func(s State) { report.transition(s, log) }

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return newCatalogIOError("connect", nil, err)
	}
	transition(StateConnectionOpen)

	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn("failed to close connection", zap.Error(err))
		}
		transition(StateConnectionClosed)
	}()

	began, finished := false, false
	err = transaction.NewManager(conn).WithTransactionIsolation(ctx, c.isolation, func(tx *sql.Tx) error {
		began = true
		transition(StateTransactionOpen)
		err := fn(tx)
		finished = err == nil
		return err
	})

	switch {
	case !began:
		return newCatalogIOError("begin", nil, err)
	case err == nil:
		transition(StateCommitted)
		return nil
	case errors.Is(err, errDiscard):
		transition(StateRolledBack)
		if err != errDiscard {
			// the rollback itself failed
			return newCatalogIOError("rollback", nil, err)
		}
		return nil
	case finished:
		// fn succeeded, so the commit failed
		transition(StateRolledBack)
		return newCatalogIOError("commit", nil, err)
	default:
		transition(StateRolledBack)
		return err
	}
}

// target is one declared description and the catalog entry it belongs to
type target struct {
	key         catalog.Key
	description string
}

// prepare scans the model, resolves every name and lists the declared
// descriptions in processing order. Names are all resolved before the first
// catalog round trip.
func (c *Coordinator) prepare(ctx context.Context, tx *sql.Tx, source Source, report *Report, log *zap.Logger) ([]target, error) {
	transition := func(s State) { report.transition(s, log) }

	transition(StateScanning)
	entities, err := source()
	if err != nil {
		return nil, &ScanError{Err: err}
	}
	if err := schema.Validate(entities); err != nil {
		return nil, &ScanError{Err: err}
	}
	report.Entities = len(entities)

	transition(StateResolving)
	for _, e := range entities {
		if err := c.resolver.Resolve(e); err != nil {
			return nil, &ResolutionError{Entity: e.Name, Err: err}
		}
	}

	if p, ok := c.dialect.(catalog.Preparer); ok {
		if err := p.Prepare(ctx, tx); err != nil {
			return nil, newCatalogIOError("prepare", nil, err)
		}
	}

	targets := make([]target, 0)
	for _, e := range entities {
		if e.HasTableDescription() {
			targets = append(targets, target{
				key:         catalog.TableKey(c.schema, e.TableName),
				description: *e.TableDescription,
			})
		}

		for _, col := range e.Columns {
			if !col.IsPersisted {
				report.SkippedVirtual++
				continue
			}
			if !col.HasDescription() {
				report.SkippedUndescribed++
				continue
			}
			targets = append(targets, target{
				key:         catalog.ColumnKey(c.schema, e.TableName, col.ColumnName),
				description: *col.Description,
			})
		}
	}
	return targets, nil
}

// apply is the body of a run inside the transaction
func (c *Coordinator) apply(ctx context.Context, tx *sql.Tx, source Source, report *Report, log *zap.Logger) error {
	targets, err := c.prepare(ctx, tx, source, report, log)
	if err != nil {
		return err
	}

	report.transition(StateDescribing, log)
	for _, t := range targets {
		if err := c.describe(ctx, tx, t.key, t.description, report, log); err != nil {
			return err
		}
	}
	return nil
}

// describe reads the current state of key and issues the add or update
func (c *Coordinator) describe(ctx context.Context, tx *sql.Tx, key catalog.Key, description string, report *Report, log *zap.Logger) error {
	exists, err := c.reader.Exists(ctx, tx, key)
	if err != nil {
		return newCatalogIOError("read", &key, err)
	}

	op, err := c.writer.Write(ctx, tx, key, description, exists)
	if err != nil {
		return newCatalogIOError(op.String(), &key, err)
	}

	report.Changes = append(report.Changes, Change{Key: key, Op: op, Description: description})
	log.Debug("description written",
		zap.Stringer("scope", key.Scope),
		zap.String("table", key.Table),
		zap.String("column", key.Column),
		zap.Stringer("op", op))
	return nil
}

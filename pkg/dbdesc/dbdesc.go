// Package dbdesc writes the table and column descriptions declared on a Go
// model into the database catalog.
//
// A model root is a struct whose exported fields are entity collections:
//
//	type CRM struct {
//		People model.EntitySet[Person]
//	}
//
//	type Person struct {
//		ID        int
//		FirstName string `desc:"Given name"`
//	}
//
//	func (Person) TableDescription() string { return "People records" }
//
//	report, err := dbdesc.Reconcile(ctx, db, CRM{}, dbdesc.WithDialect("mssql"))
//
// Each run is one transaction: either every description is written or none.
package dbdesc

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
	"github.com/conduit-lang/dbdesc/internal/reconcile"
	"github.com/conduit-lang/dbdesc/pkg/model"
)

// Run results, descriptors and error kinds of the engine
type (
	Report          = reconcile.Report
	Change          = reconcile.Change
	Entry           = reconcile.Entry
	State           = reconcile.State
	ScanError       = reconcile.ScanError
	ResolutionError = reconcile.ResolutionError
	CatalogIOError  = reconcile.CatalogIOError
	EntityType      = schema.EntityType
	ColumnMeta      = schema.ColumnMeta
	QueryTracer     = naming.QueryTracer
	Convention      = naming.Convention
)

var (
	ErrScan       = reconcile.ErrScan
	ErrResolution = reconcile.ErrResolution
	ErrCatalogIO  = reconcile.ErrCatalogIO
)

// Naming conventions
const (
	Verbatim  = naming.Verbatim
	SnakeCase = naming.SnakeCase
)

// DefaultDialect is used when no dialect is configured
const DefaultDialect = "mssql"

type options struct {
	dialect    string
	schema     string
	tracer     QueryTracer
	convention Convention
	registry   *model.Registry
	logger     *zap.Logger
	dryRun     bool
	isolation  string
}

// Option configures a run
type Option func(*options)

// WithDialect selects the catalog dialect: mssql, postgres or sqlite
func WithDialect(name string) Option {
	return func(o *options) { o.dialect = name }
}

// WithSchema sets the schema qualifier
func WithSchema(name string) Option {
	return func(o *options) { o.schema = name }
}

// WithTracer enables table name extraction from ORM query traces
func WithTracer(t QueryTracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithConvention sets the naming convention of fallback names
func WithConvention(c Convention) Option {
	return func(o *options) { o.convention = c }
}

// WithRegistry supplies explicit per-type metadata
func WithRegistry(r *model.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDryRun rolls the run back after issuing every change
func WithDryRun(dryRun bool) Option {
	return func(o *options) { o.dryRun = dryRun }
}

// WithIsolation sets the transaction isolation level by name, e.g. "serializable"
func WithIsolation(level string) Option {
	return func(o *options) { o.isolation = level }
}

func build(db *sql.DB, opts []Option) (*reconcile.Coordinator, *options, error) {
	o := &options{dialect: DefaultDialect, convention: Verbatim}
	for _, opt := range opts {
		opt(o)
	}

	if db == nil {
		return nil, nil, errors.New("database handle is required")
	}

	dialect, err := catalog.Lookup(o.dialect)
	if err != nil {
		return nil, nil, err
	}
	isolation, err := transaction.ParseIsolationLevel(o.isolation)
	if err != nil {
		return nil, nil, err
	}

	resolver := naming.NewResolver(naming.WithTracer(o.tracer), naming.WithConvention(o.convention))
	c := reconcile.New(db, dialect,
		reconcile.WithSchema(o.schema),
		reconcile.WithResolver(resolver),
		reconcile.WithIsolation(isolation),
		reconcile.WithDryRun(o.dryRun),
		reconcile.WithLogger(o.logger))
	return c, o, nil
}

func modelSource(root any, o *options) reconcile.Source {
	return reconcile.FromModel(scan.NewScanner(scan.WithRegistry(o.registry)), root)
}

// Reconcile scans root and writes every declared description in one
// transaction. The report is nil only when the options are invalid.
func Reconcile(ctx context.Context, db *sql.DB, root any, opts ...Option) (*Report, error) {
	c, o, err := build(db, opts)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, modelSource(root, o))
}

// ReconcileEntities writes the descriptions of explicit descriptors
func ReconcileEntities(ctx context.Context, db *sql.DB, entities []*EntityType, opts ...Option) (*Report, error) {
	c, _, err := build(db, opts)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, reconcile.FromEntities(entities))
}

// ReconcileManifest loads a YAML manifest and reconciles its entities
func ReconcileManifest(ctx context.Context, db *sql.DB, path string, opts ...Option) (*Report, error) {
	manifest, err := schema.LoadManifest(path)
	if err != nil {
		return nil, &ScanError{Err: err}
	}
	entities, err := manifest.EntityTypes()
	if err != nil {
		return nil, &ScanError{Err: err}
	}
	if manifest.Schema != "" {
		opts = append([]Option{WithSchema(manifest.Schema)}, opts...)
	}
	return ReconcileEntities(ctx, db, entities, opts...)
}

// Inspect compares the descriptions declared on root with the catalog
// without changing it
func Inspect(ctx context.Context, db *sql.DB, root any, opts ...Option) ([]Entry, error) {
	c, o, err := build(db, opts)
	if err != nil {
		return nil, err
	}
	return c.Inspect(ctx, modelSource(root, o))
}

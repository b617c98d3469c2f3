package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver (pgx)
	_ "github.com/lib/pq"               // PostgreSQL driver (postgres)
	_ "github.com/mattn/go-sqlite3"     // SQLite driver
	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/dbdesc/internal/cli/config"
	"github.com/conduit-lang/dbdesc/internal/orm/catalog"
	"github.com/conduit-lang/dbdesc/internal/orm/naming"
	"github.com/conduit-lang/dbdesc/internal/orm/schema"
	"github.com/conduit-lang/dbdesc/internal/orm/transaction"
	"github.com/conduit-lang/dbdesc/internal/reconcile"
	"github.com/conduit-lang/dbdesc/internal/runlock"
)

// configError marks failures to assemble the configuration
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// runError carries the number of changes a failed run discarded
type runError struct {
	err       error
	discarded int
}

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

// session holds everything a subcommand needs to talk to one database
type session struct {
	cfg      *config.Config
	db       *sql.DB
	dialect  catalog.Dialect
	schema   string
	source   reconcile.Source
	logger   *zap.Logger
	resolver *naming.Resolver
	level    transaction.IsolationLevel
}

// openSession loads the configuration and manifest and connects to the
// database. The caller must Close the session.
func openSession(ctx context.Context, g *globalFlags, logOut io.Writer) (*session, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, &configError{err: err}
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, &configError{err: err}
	}

	manifest, err := schema.LoadManifest(cfg.Manifest)
	if err != nil {
		return nil, &reconcile.ScanError{Err: err}
	}
	entities, err := manifest.EntityTypes()
	if err != nil {
		return nil, &reconcile.ScanError{Err: err}
	}

	dialect, err := catalog.Lookup(cfg.Catalog.Dialect)
	if err != nil {
		return nil, &configError{err: err}
	}
	// validated by config.Load
	level, _ := transaction.ParseIsolationLevel(cfg.Catalog.Isolation)
	convention, _ := naming.ParseConvention(cfg.Naming.Convention)

	logger, err := newLogger(cfg.Log.Level, logOut)
	if err != nil {
		return nil, &configError{err: err}
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &reconcile.CatalogIOError{Op: "connect", Code: catalog.ErrorCode(err), Err: err}
	}

	schemaName := cfg.Catalog.Schema
	if schemaName == "" {
		schemaName = manifest.Schema
	}

	return &session{
		cfg:      cfg,
		db:       db,
		dialect:  dialect,
		schema:   schemaName,
		source:   reconcile.FromEntities(entities),
		logger:   logger,
		resolver: naming.NewResolver(naming.WithConvention(convention)),
		level:    level,
	}, nil
}

// coordinator creates a coordinator for the session's database
func (s *session) coordinator(dryRun bool) *reconcile.Coordinator {
	return reconcile.New(s.db, s.dialect,
		reconcile.WithSchema(s.schema),
		reconcile.WithResolver(s.resolver),
		reconcile.WithIsolation(s.level),
		reconcile.WithDryRun(dryRun),
		reconcile.WithLogger(s.logger))
}

// run executes a reconciliation, wrapping failures with the discarded count
func (s *session) run(ctx context.Context, dryRun bool) (*reconcile.Report, error) {
	report, err := s.coordinator(dryRun).Run(ctx, s.source)
	if err != nil {
		return report, &runError{err: err, discarded: len(report.Changes)}
	}
	return report, nil
}

// Close closes the database and flushes the logger
func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// lockName identifies the session's schema for the run lock. Credentials
// are dropped from the database URL.
func (s *session) lockName() string {
	target := s.cfg.Database.URL
	if u, err := url.Parse(target); err == nil {
		u.User = nil
		u.RawQuery = ""
		target = u.String()
	}
	schemaName := s.schema
	if schemaName == "" {
		schemaName = s.dialect.DefaultSchema()
	}
	return runlock.Name(s.dialect.Name(), target, schemaName)
}

// newLogger builds a console logger writing to w at the given level
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// discarded returns the number of changes lost by a failed run
func discarded(err error) int {
	var re *runError
	if errors.As(err, &re) {
		return re.discarded
	}
	return 0
}

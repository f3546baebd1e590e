// Package bootstrap initializes process-wide infrastructure: the logger and,
// for Postgres-backed storage, migrations and the connection pool.
package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/mediabot/core/config"
	coredatabase "github.com/m3rciful/mediabot/core/database"
	"github.com/m3rciful/mediabot/core/logger"
)

// Options select what Run initializes. The function fields replace the real
// initializers in tests.
type Options struct {
	Config *coreconfig.Config
	// Database is used only when UseDatabase is set.
	Database    coredatabase.Config
	UseDatabase bool

	LoggerInit func(*coreconfig.Config) error
	Migrate    func(coredatabase.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
}

// Result holds what Run initialized.
type Result struct {
	// DB is nil unless the database was requested.
	DB *sqlx.DB
}

// Close releases the database pool, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger and, when UseDatabase is set, applies
// migrations and then opens the pool.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	initLogger, migrate, connect := opts.LoggerInit, opts.Migrate, opts.Connect
	if initLogger == nil {
		initLogger = logger.InitLogger
	}
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if connect == nil {
		connect = coredatabase.Connect
	}

	if err := initLogger(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	if !opts.UseDatabase {
		return &Result{}, nil
	}
	if err := migrate(opts.Database); err != nil {
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	db, err := connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	return &Result{DB: db}, nil
}

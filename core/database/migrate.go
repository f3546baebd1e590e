package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/mediabot/core/logger"
)

// DefaultMigrationsDir is used when Config.MigrationsDir is empty.
const DefaultMigrationsDir = "migrations"

const readyTimeout = 30 * time.Second

// RunMigrations applies every pending up migration found in cfg.MigrationsDir.
func RunMigrations(cfg Config) error {
	if err := WaitForPostgres(cfg.DSN(), readyTimeout); err != nil {
		logger.MIG.Error("db not ready", slog.String("event", "db.migrate"), slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := migrationsDir(cfg)
	if err != nil {
		return err
	}
	files := upFiles(dir)
	logMigrationFiles("migrations resolved", "resolve", files, slog.String("path", dir))

	m, err := migrate.New("file://"+dir, cfg.URL())
	if err != nil {
		logger.MIG.Error("init failed", slog.String("event", "db.migrate"), slog.String("err", err.Error()))
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.Duration("duration", took),
			slog.String("err", upErr.Error()),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	to := from
	if upErr == nil {
		to, _, _ = m.Version()
	}
	applied := appliedBetween(files, uint64(from), uint64(to))
	if len(applied) > 0 {
		logMigrationFiles("applied files", "apply", applied)
	}
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

func migrationsDir(cfg Config) (string, error) {
	dir := cfg.MigrationsDir
	if dir == "" {
		dir = DefaultMigrationsDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve migrations dir: %w", err)
	}
	return abs, nil
}

func logMigrationFiles(msg, event string, files []string, extra ...any) {
	args := append([]any{slog.String("event", event), slog.Int("files_total", len(files))}, extra...)
	if preview, truncated := logger.SummarizeStrings(files, 6); preview != "" {
		args = append(args, slog.String("files_preview", preview))
		if truncated {
			args = append(args, slog.Bool("files_truncated", true))
		}
	}
	logger.MIG.Debug(msg, args...)
}

// upFiles lists *.up.sql names in dir, sorted.
func upFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// fileVersion reads the numeric prefix of a migration file name.
func fileVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// appliedBetween returns files with a version in (from, to].
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := fileVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}

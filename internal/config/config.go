// Package config loads the bot configuration: the reusable core sections plus
// the storage, engine and metrics settings of the media bot.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/mediabot/core/config"
	coredatabase "github.com/m3rciful/mediabot/core/database"
)

const (
	// StorageFile keeps the registry in a JSON file inside the workdir.
	StorageFile = "file"
	// StoragePostgres keeps the registry in PostgreSQL.
	StoragePostgres = "postgres"

	defaultSnapshotFile          = "db.json"
	defaultEngineTimeoutSeconds  = 600
	defaultUpdateIntervalMinutes = 60
)

// AppConfig holds process-level settings.
type AppConfig struct {
	// Workdir stores the engine binaries, temporary downloads and the file snapshot.
	Workdir string `yaml:"workdir" envconfig:"WORKDIR"`
}

// StorageConfig selects the registry persistence backend.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	File   string `yaml:"file" envconfig:"STORAGE_FILE"`
}

// EngineConfig tunes the download engine.
type EngineConfig struct {
	TimeoutSeconds        int  `yaml:"timeout_seconds" envconfig:"ENGINE_TIMEOUT_SECONDS"`
	UpdateIntervalMinutes int  `yaml:"update_interval_minutes" envconfig:"ENGINE_UPDATE_INTERVAL_MINUTES"`
	SkipInstall           bool `yaml:"skip_install" envconfig:"ENGINE_SKIP_INSTALL"`
}

// Timeout is the per-invocation engine timeout.
func (e EngineConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// UpdateInterval is the time between two engine self-updates.
func (e EngineConfig) UpdateInterval() time.Duration {
	return time.Duration(e.UpdateIntervalMinutes) * time.Minute
}

// MetricsConfig controls the Prometheus listener; an empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	App      AppConfig           `yaml:"app"`
	Storage  StorageConfig       `yaml:"storage"`
	Database coredatabase.Config `yaml:"database"`
	Engine   EngineConfig        `yaml:"engine"`
	Metrics  MetricsConfig       `yaml:"metrics"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path (optional) and the environment, then validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	workdir := strings.TrimSpace(cfg.App.Workdir)
	if workdir == "" {
		return fmt.Errorf("app.workdir is required")
	}
	abs, err := filepath.Abs(workdir)
	if err != nil {
		return fmt.Errorf("app.workdir: %w", err)
	}
	cfg.App.Workdir = abs

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" {
		driver = StorageFile
	}
	switch driver {
	case StorageFile:
		if strings.TrimSpace(cfg.Storage.File) == "" {
			cfg.Storage.File = filepath.Join(cfg.App.Workdir, defaultSnapshotFile)
		}
	case StoragePostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres storage driver")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MigrationsDir == "" {
			cfg.Database.MigrationsDir = coredatabase.DefaultMigrationsDir
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: file, postgres", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver

	if cfg.Engine.TimeoutSeconds < 0 || cfg.Engine.UpdateIntervalMinutes < 0 {
		return fmt.Errorf("engine timeouts must be >= 0")
	}
	if cfg.Engine.TimeoutSeconds == 0 {
		cfg.Engine.TimeoutSeconds = defaultEngineTimeoutSeconds
	}
	if cfg.Engine.UpdateIntervalMinutes == 0 {
		cfg.Engine.UpdateIntervalMinutes = defaultUpdateIntervalMinutes
	}

	cfg.Metrics.Listen = strings.TrimSpace(cfg.Metrics.Listen)
	return nil
}

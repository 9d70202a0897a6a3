package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ignatij/memoflow/pkg/lock"
	"github.com/ignatij/memoflow/pkg/task"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config is the explicit configuration object assembled once at the
// composition root: defaults, then the TOML file, then environment overrides.
type Config struct {
	// Workspace is the root directory for task outputs and auxiliary records.
	Workspace string `toml:"workspace"`
	// Port is the HTTP listen port for the run-history server.
	Port     string         `toml:"port"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Flags    FlagsConfig    `toml:"flags"`
}

type DatabaseConfig struct {
	// URL wins over the discrete fields when set.
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Name     string `toml:"name"`
}

type RedisConfig struct {
	// An empty host disables cross-process locking.
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	LeaseSeconds int    `toml:"lease_seconds"`
}

// FlagsConfig holds the engine-level defaults for the per-node option flags.
type FlagsConfig struct {
	ForceRerun            bool `toml:"force_rerun"`
	StrictCheck           bool `toml:"strict_check"`
	ModificationTimeCheck bool `toml:"modification_time_check"`
	CodeFingerprintCheck  bool `toml:"code_fingerprint_check"`
	CacheIdentity         bool `toml:"cache_identity"`
	Significant           bool `toml:"significant"`
	AuxiliaryWrites       bool `toml:"auxiliary_writes"`
	LockAtDump            bool `toml:"lock_at_dump"`
	LockAtRun             bool `toml:"lock_at_run"`
	RejectEmptyDump       bool `toml:"reject_empty_dump"`
}

func defaultConfig() Config {
	return Config{
		Workspace: "./workspace",
		Port:      "8080",
		Redis: RedisConfig{
			Port:         6379,
			LeaseSeconds: 180,
		},
		Flags: FlagsConfig{
			CacheIdentity:   true,
			Significant:     true,
			AuxiliaryWrites: true,
			LockAtDump:      true,
		},
	}
}

// Load builds the configuration. The TOML path may be empty; .env and
// environment variables are applied last.
func Load(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "decode config file %s", path)
		}
	}
	// A missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MEMOFLOW_WORKSPACE"); v != "" {
		cfg.Workspace = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DB_USERNAME"); v != "" {
		cfg.Database.Username = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_LEASE_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Redis.LeaseSeconds = secs
		}
	}
}

// DBConnStr returns the postgres connection string, or "" when the database
// is not configured.
func (c Config) DBConnStr() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	d := c.Database
	if d.Username == "" || d.Password == "" || d.Host == "" || d.Port == "" || d.Name == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.Username, d.Password, d.Host, d.Port, d.Name)
}

// NodeDefaults maps the configured flags onto engine-level node defaults.
func (c Config) NodeDefaults() *task.Config {
	return &task.Config{
		ForceRerun:            c.Flags.ForceRerun,
		StrictCheck:           c.Flags.StrictCheck,
		ModificationTimeCheck: c.Flags.ModificationTimeCheck,
		CodeFingerprintCheck:  c.Flags.CodeFingerprintCheck,
		CacheIdentity:         c.Flags.CacheIdentity,
		Significant:           c.Flags.Significant,
		AuxiliaryWrites:       c.Flags.AuxiliaryWrites,
		LockAtDump:            c.Flags.LockAtDump,
		LockAtRun:             c.Flags.LockAtRun,
		RejectEmptyDump:       c.Flags.RejectEmptyDump,
	}
}

// BuildEngine assembles the engine and, when redis is configured, the lock
// backend behind its coordinator. The caller owns closing the backend.
func BuildEngine(cfg Config, logger task.Logger) (*task.Engine, *lock.RedisBackend, error) {
	var coordinator *lock.Coordinator
	var backend *lock.RedisBackend
	if cfg.Redis.Host != "" {
		backend = lock.NewRedisBackendFromAddr(cfg.Redis.Host, cfg.Redis.Port)
		coordinator = lock.NewCoordinator(backend, time.Duration(cfg.Redis.LeaseSeconds)*time.Second, logger)
	}
	engine, err := task.NewEngine(task.Options{
		WorkspaceDir: cfg.Workspace,
		Locks:        coordinator,
		Defaults:     cfg.NodeDefaults(),
		Logger:       logger,
	})
	if err != nil {
		if backend != nil {
			_ = backend.Close()
		}
		return nil, nil, err
	}
	return engine, backend, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/dbdesc/internal/orm/catalog"
	"github.com/conduit-lang/dbdesc/internal/orm/naming"
	"github.com/conduit-lang/dbdesc/internal/orm/transaction"
)

// FileName is the config file name without extension
const FileName = "dbdesc"

// Config represents the dbdesc configuration
type Config struct {
	Manifest string         `mapstructure:"manifest"`
	Database DatabaseConfig `mapstructure:"database"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Naming   NamingConfig   `mapstructure:"naming"`
	Lock     LockConfig     `mapstructure:"lock"`
	Log      LogConfig      `mapstructure:"log"`

	driverDerived  bool
	dialectDerived bool
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
	// Driver is the database/sql driver name; derived from the URL when empty
	Driver string `mapstructure:"driver"`
}

// CatalogConfig selects where and how descriptions are written
type CatalogConfig struct {
	// Dialect is derived from the driver when empty
	Dialect   string `mapstructure:"dialect"`
	Schema    string `mapstructure:"schema"`
	Isolation string `mapstructure:"isolation"`
}

// NamingConfig represents fallback naming configuration
type NamingConfig struct {
	Convention string `mapstructure:"convention"`
}

// LockConfig configures the optional redis run lock
type LockConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads the configuration from path, or from dbdesc.yml found in the
// current directory or one of its parents when path is empty
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("manifest", "descriptions.yml")
	v.SetDefault("database.url", "")
	v.SetDefault("database.driver", "")
	v.SetDefault("catalog.dialect", "")
	v.SetDefault("catalog.schema", "")
	v.SetDefault("catalog.isolation", "read committed")
	v.SetDefault("naming.convention", string(naming.Verbatim))
	v.SetDefault("lock.redis_addr", "")
	v.SetDefault("lock.ttl", 5*time.Minute)
	v.SetDefault("log.level", "info")

	if path == "" {
		if found, err := FindConfigFile(); err == nil {
			path = found
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
	}

	// Enable environment variable support: DBDESC_CATALOG_SCHEMA etc.
	v.SetEnvPrefix("DBDESC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.url", "DBDESC_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.derive()

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) derive() {
	if c.Database.Driver == "" || c.driverDerived {
		c.Database.Driver = DriverFor(c.Database.URL)
		c.driverDerived = true
	}
	if c.Catalog.Dialect == "" || c.dialectDerived {
		c.Catalog.Dialect = c.Database.Driver
		c.dialectDerived = true
	}
}

// Overrides are command-line values. Non-empty fields take precedence over
// the config file and the environment.
type Overrides struct {
	DatabaseURL string
	Driver      string
	Dialect     string
	Schema      string
	Manifest    string
	Convention  string
	Isolation   string
	LogLevel    string
	RedisAddr   string
}

// Apply merges overrides into the configuration and validates the result
func (c *Config) Apply(o Overrides) error {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&c.Database.URL, o.DatabaseURL)
	if o.Driver != "" {
		c.Database.Driver = o.Driver
		c.driverDerived = false
	}
	if o.Dialect != "" {
		c.Catalog.Dialect = o.Dialect
		c.dialectDerived = false
	}
	set(&c.Catalog.Schema, o.Schema)
	set(&c.Manifest, o.Manifest)
	set(&c.Naming.Convention, o.Convention)
	set(&c.Catalog.Isolation, o.Isolation)
	set(&c.Log.Level, o.LogLevel)
	set(&c.Lock.RedisAddr, o.RedisAddr)

	c.derive()
	return validateConfig(c)
}

// FindConfigFile looks for dbdesc.yml or dbdesc.yaml from the current
// directory upwards
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range []string{".yml", ".yaml"} {
			candidate := filepath.Join(dir, FileName+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yml found", FileName)
		}
		dir = parent
	}
}

// DriverFor derives the database/sql driver name from a database URL
func DriverFor(url string) string {
	switch {
	case strings.HasPrefix(url, "sqlserver://"), strings.HasPrefix(url, "mssql://"):
		return "sqlserver"
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "pgx"
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "file:"),
		strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"):
		return "sqlite3"
	default:
		return ""
	}
}

// DSN returns the data source name to pass to sql.Open
func (d DatabaseConfig) DSN() string {
	switch {
	case strings.HasPrefix(d.URL, "sqlite://"):
		return strings.TrimPrefix(d.URL, "sqlite://")
	case strings.HasPrefix(d.URL, "mssql://"):
		return "sqlserver://" + strings.TrimPrefix(d.URL, "mssql://")
	default:
		return d.URL
	}
}

// RequireDatabase reports a missing database URL
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return errors.New("database.url is not set (use --database-url, DATABASE_URL or dbdesc.yml)")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("cannot derive a driver from database.url %q, set database.driver", c.Database.URL)
	}
	return nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Catalog.Dialect != "" {
		if _, err := catalog.Lookup(cfg.Catalog.Dialect); err != nil {
			return fmt.Errorf("catalog.dialect: %w", err)
		}
	}
	if _, err := transaction.ParseIsolationLevel(cfg.Catalog.Isolation); err != nil {
		return fmt.Errorf("catalog.isolation: %w", err)
	}
	if _, err := naming.ParseConvention(cfg.Naming.Convention); err != nil {
		return fmt.Errorf("naming.convention: %w", err)
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Lock.RedisAddr != "" && cfg.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be greater than 0, got: %s", cfg.Lock.TTL)
	}
	return nil
}

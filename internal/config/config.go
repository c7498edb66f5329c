package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/docfusion/docfusion/docfusion"
	"github.com/docfusion/docfusion/docfusion/storage"
)

const (
	EnvPrefix       = "DOCFUSION"
	DefaultFileName = "config.yaml"
)

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Documents DocumentsConfig `mapstructure:"documents"`
}

type DatabaseConfig struct {
	Backend string `mapstructure:"backend"` // sqlite or postgres
	DSN     string `mapstructure:"dsn"`     // postgres; overrides host/port/user/password/name
	Path    string `mapstructure:"path"`    // sqlite file or :memory:
	Table   string `mapstructure:"table"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`

	MaxConnections int32         `mapstructure:"max_connections"`
	MinConnections int32         `mapstructure:"min_connections"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	RateLimit int    `mapstructure:"rate_limit"` // requests per minute per client, 0 disables
	Burst     int    `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
	MaxRows int           `mapstructure:"max_rows"`
}

type DocumentsConfig struct {
	SchemaFile string `mapstructure:"schema_file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.backend", string(storage.BackendSQLite))
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", "docfusion.db")
	v.SetDefault("database.table", docfusion.DefaultTable)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "docfusion")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.connect_timeout", 30*time.Second)
	v.SetDefault("database.acquire_timeout", 30*time.Second)
	v.SetDefault("database.idle_timeout", 600*time.Second)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 600)
	v.SetDefault("server.burst", 50)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.max_size", 100)
	v.SetDefault("cache.max_rows", docfusion.DefaultCacheMaxRows)

	v.SetDefault("documents.schema_file", "")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// conventional names used by hosting platforms
	_ = v.BindEnv("database.dsn", EnvPrefix+"_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("auth.api_key", EnvPrefix+"_AUTH_API_KEY", "API_KEY")
	return v
}

// Load reads path (or ./config.yaml when path is empty and the file exists),
// overlays DOCFUSION_* environment variables and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, docfusion.Wrap(docfusion.ErrConfig, "read config file "+path, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, docfusion.Wrap(docfusion.ErrConfig, "read config file", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, docfusion.Wrap(docfusion.ErrConfig, "decode config", err)
	}
	cfg.Database.Backend = strings.ToLower(cfg.Database.Backend)
	if cfg.Auth.APIKey != "" {
		cfg.Auth.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied and no overlays.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func (c *Config) Validate() error {
	fail := func(field, msg string) error {
		e := docfusion.New(docfusion.ErrConfig, msg)
		e.Field = field
		return e
	}

	switch storage.Backend(c.Database.Backend) {
	case storage.BackendSQLite:
		if c.Database.Path == "" {
			return fail("database.path", "sqlite path is required")
		}
	case storage.BackendPostgres:
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fail("database.dsn", "postgres needs a dsn or a host")
		}
	default:
		return fail("database.backend", fmt.Sprintf("unknown backend %q", c.Database.Backend))
	}
	if err := storage.ValidateTableName(c.Database.Table); err != nil {
		return fail("database.table", err.Error())
	}
	if c.Database.MaxConnections < 1 {
		return fail("database.max_connections", "must be at least 1")
	}
	if c.Database.MinConnections < 0 || c.Database.MinConnections > c.Database.MaxConnections {
		return fail("database.min_connections", "must be between 0 and max_connections")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fail("server.port", "must be between 1 and 65535")
	}
	if c.Server.RateLimit < 0 {
		return fail("server.rate_limit", "must not be negative")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fail("auth.api_key", "required when auth is enabled")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fail("logging.format", "must be json or text")
	}
	return nil
}

// ConnectionString returns the postgres DSN, built from the discrete fields when
// no DSN is configured.
func (c *DatabaseConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = url.User(c.User)
	}
	return u.String()
}

// WriteDefault writes a config file holding the defaults. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if path == "" {
		path = DefaultFileName
	}
	v := viper.New()
	setDefaults(v)
	if err := v.SafeWriteConfigAs(path); err != nil {
		return docfusion.Wrap(docfusion.ErrConfig, "write config file "+path, err)
	}
	return nil
}

package cliopt

import (
	"github.com/spf13/cobra"

	"github.com/docfusion/docfusion/internal/config"
)

// GlobalOptions are bound once on the root command and passed to subcommands.
// Non-empty values override the loaded config.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command and per-command code.
type GlobalOptions struct {
	ConfigPath string

	Backend     string
	SQLitePath  string
	PostgresDSN string
	Table       string

	LogLevel string
	Format   string
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{Format: "table"}
}

func BindGlobalFlags(cmd *cobra.Command, g *GlobalOptions) {
	fs := cmd.PersistentFlags()
	fs.StringVarP(&g.ConfigPath, "config", "c", g.ConfigPath, "config file (default ./config.yaml if present)")
	fs.StringVar(&g.Backend, "backend", g.Backend, "backend: sqlite|postgres")
	fs.StringVar(&g.SQLitePath, "sqlite-path", g.SQLitePath, "sqlite database file or :memory:")
	fs.StringVar(&g.PostgresDSN, "pg-dsn", g.PostgresDSN, "postgres DSN")
	fs.StringVar(&g.Table, "table", g.Table, "documents table name")
	fs.StringVar(&g.LogLevel, "log-level", g.LogLevel, "log level: debug|info|warn|error")
	fs.StringVarP(&g.Format, "format", "o", g.Format, "output format: table|json")
}

// Apply overlays the flags that were set onto cfg.
func (g GlobalOptions) Apply(cfg *config.Config) {
	if g.Backend != "" {
		cfg.Database.Backend = g.Backend
	}
	if g.SQLitePath != "" {
		cfg.Database.Path = g.SQLitePath
	}
	if g.PostgresDSN != "" {
		cfg.Database.DSN = g.PostgresDSN
		if g.Backend == "" {
			cfg.Database.Backend = "postgres"
		}
	}
	if g.Table != "" {
		cfg.Database.Table = g.Table
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
}

// Load reads the config file and environment, then applies the flags.
func (g GlobalOptions) Load() (*config.Config, error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	g.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

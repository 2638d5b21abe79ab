// Package config loads the service configuration from defaults, an optional
// YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "WIKI"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Wiki     WikiConfig     `mapstructure:"wiki"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `mapstructure:"driver"`
	// DSN wins over the discrete connection fields when set.
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type CacheConfig struct {
	// Path of the badger directory. Empty keeps the lease cache in memory.
	Path string `mapstructure:"path"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WikiConfig struct {
	DefaultMarkupType     string        `mapstructure:"default_markup_type"`
	MarkupTypes           []string      `mapstructure:"markup_types"`
	WriteLockTTL          time.Duration `mapstructure:"write_lock_ttl"`
	CreateMissingArticles bool          `mapstructure:"create_missing_articles"`
	MaxRedirectHops       int           `mapstructure:"max_redirect_hops"`
	// EditorRoles empty means any authenticated user may edit.
	EditorRoles []string `mapstructure:"editor_roles"`
	// AnonymousEdits lets signed-out callers edit public articles.
	AnonymousEdits bool     `mapstructure:"anonymous_edits"`
	ModeratorRoles []string `mapstructure:"moderator_roles"`
	// AutolockAfter zero disables autolocking.
	AutolockAfter    time.Duration `mapstructure:"autolock_after"`
	AutolockInterval time.Duration `mapstructure:"autolock_interval"`
	BasePath         string        `mapstructure:"base_path"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Mode:            "release",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    "5432",
			User:    "wiki",
			Name:    "wiki",
			SSLMode: "disable",
		},
		JWT: JWTConfig{
			Secret:     "your-secret-key-change-this-in-production",
			Expiration: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Wiki: WikiConfig{
			DefaultMarkupType:     "plain",
			MarkupTypes:           []string{"plain", "markdown"},
			WriteLockTTL:          5 * time.Minute,
			CreateMissingArticles: true,
			MaxRedirectHops:       1,
			ModeratorRoles:        []string{"editor", "admin"},
			AutolockInterval:      time.Hour,
			BasePath:              "/api/v1/articles",
		},
	}
}

// legacyEnv keeps the environment names used by earlier deployments working.
var legacyEnv = map[string]string{
	"server.port":       "PORT",
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.name":     "DB_NAME",
	"jwt.secret":        "JWT_SECRET",
}

// Load builds the configuration. path may be empty; a missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envName := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, legacy); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.sslmode", d.Database.SSLMode)

	v.SetDefault("cache.path", d.Cache.Path)

	v.SetDefault("jwt.secret", d.JWT.Secret)
	v.SetDefault("jwt.expiration", d.JWT.Expiration)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("wiki.default_markup_type", d.Wiki.DefaultMarkupType)
	v.SetDefault("wiki.markup_types", d.Wiki.MarkupTypes)
	v.SetDefault("wiki.write_lock_ttl", d.Wiki.WriteLockTTL)
	v.SetDefault("wiki.create_missing_articles", d.Wiki.CreateMissingArticles)
	v.SetDefault("wiki.max_redirect_hops", d.Wiki.MaxRedirectHops)
	v.SetDefault("wiki.editor_roles", d.Wiki.EditorRoles)
	v.SetDefault("wiki.moderator_roles", d.Wiki.ModeratorRoles)
	v.SetDefault("wiki.anonymous_edits", d.Wiki.AnonymousEdits)
	v.SetDefault("wiki.autolock_after", d.Wiki.AutolockAfter)
	v.SetDefault("wiki.autolock_interval", d.Wiki.AutolockInterval)
	v.SetDefault("wiki.base_path", d.Wiki.BasePath)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	w := c.Wiki
	if len(w.MarkupTypes) == 0 {
		return errors.New("config: wiki.markup_types must not be empty")
	}
	if !slices.Contains(w.MarkupTypes, w.DefaultMarkupType) {
		return fmt.Errorf("config: default markup type %q is not enabled", w.DefaultMarkupType)
	}
	if w.WriteLockTTL < time.Second {
		return fmt.Errorf("config: wiki.write_lock_ttl must be at least 1s, got %s", w.WriteLockTTL)
	}
	if w.MaxRedirectHops < 1 {
		return errors.New("config: wiki.max_redirect_hops must be positive")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// ConnectionString returns the DSN for the configured driver.
func (c DatabaseConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == "sqlite" {
		return "file:wiki.db"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Package config loads the sections configuration with Viper from a YAML
// file, SECTIONS_ environment variables and command-line flags.
//
// Configuration Loading Priority (highest to lowest):
//  1. Flags bound with WithFlag
//  2. Environment variables following SECTIONS_<SECTION>_<KEY>
//  3. The file named by --config, else SECTIONS_CONFIG_FILE, else
//     ./sections.yaml when present
//  4. Defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/goliatone/go-sections/internal/logging"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "SECTIONS"

// Store drivers.
const (
	DriverFS    = "fs"
	DriverRedis = "redis"
)

type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Schemas SchemasConfig `mapstructure:"schemas"`
	Server  ServerConfig  `mapstructure:"server"`
	Editor  EditorConfig  `mapstructure:"editor"`
	Log     LogConfig     `mapstructure:"log"`
	Theme   ThemeConfig   `mapstructure:"theme"`

	// File is the config file that was read, empty when none was.
	File string `mapstructure:"-"`
}

type StoreConfig struct {
	Driver       string `mapstructure:"driver"`
	TemplatesDir string `mapstructure:"templates_dir"`
	RedisURL     string `mapstructure:"redis_url"`
	RedisPrefix  string `mapstructure:"redis_prefix"`
}

type SchemasConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
}

type EditorConfig struct {
	MessageTTL     time.Duration `mapstructure:"message_ttl"`
	ConfirmDiscard bool          `mapstructure:"confirm_discard"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ThemeConfig struct {
	Name       string            `mapstructure:"name"`
	Variant    string            `mapstructure:"variant"`
	Stylesheet string            `mapstructure:"stylesheet"`
	Tokens     map[string]string `mapstructure:"tokens"`
}

// SetDefaults registers every key with its default so environment
// overrides apply to keys absent from the file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", DriverFS)
	v.SetDefault("store.templates_dir", "templates")
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.redis_prefix", "sections:")
	v.SetDefault("schemas.dir", "sections")
	v.SetDefault("schemas.watch", false)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.session_ttl", 30*time.Minute)
	v.SetDefault("editor.message_ttl", 5*time.Second)
	v.SetDefault("editor.confirm_discard", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("theme.name", "")
	v.SetDefault("theme.variant", "")
	v.SetDefault("theme.stylesheet", "")
}

// Option customises Load.
type Option func(*loader)

type loader struct {
	file  string
	flags map[string]*pflag.Flag
}

// WithFile reads the given config file. It must exist.
func WithFile(path string) Option {
	return func(l *loader) {
		l.file = strings.TrimSpace(path)
	}
}

// WithFlag binds a command-line flag to a config key. Nil flags are
// ignored.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(l *loader) {
		if flag == nil {
			return
		}
		if l.flags == nil {
			l.flags = make(map[string]*pflag.Flag)
		}
		l.flags[key] = flag
	}
}

// Load resolves the configuration. The result is not validated; call
// Validate before use.
func Load(options ...Option) (*Config, error) {
	l := &loader{}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range l.flags {
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("config: bind flag %q: %w", key, err)
		}
	}

	file := l.file
	if file == "" {
		file = strings.TrimSpace(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	} else {
		v.SetConfigName("sections")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read sections.yaml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if cfg.Theme.Tokens == nil {
		cfg.Theme.Tokens = map[string]string{}
	}
	return &cfg, nil
}

// Validate rejects configurations the commands cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverFS:
		if strings.TrimSpace(c.Store.TemplatesDir) == "" {
			errs = append(errs, errors.New("store.templates_dir is required for the fs driver"))
		}
	case DriverRedis:
		if strings.TrimSpace(c.Store.RedisURL) == "" {
			errs = append(errs, errors.New("store.redis_url is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of fs, redis", c.Store.Driver))
	}
	if strings.TrimSpace(c.Schemas.Dir) == "" {
		errs = append(errs, errors.New("schemas.dir is required"))
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.SessionTTL < 0 {
		errs = append(errs, errors.New("server.session_ttl must not be negative"))
	}
	if c.Editor.MessageTTL <= 0 {
		errs = append(errs, errors.New("editor.message_ttl must be positive"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}

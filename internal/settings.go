package internal

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/relay/pkg/config"
	"github.com/dmitrymomot/relay/pkg/db"
	"github.com/dmitrymomot/relay/pkg/logger"
)

// EnvPrefix prefixes every environment variable that overrides a setting,
// e.g. RELAY_APP_SHOW_ERRORS=true.
const EnvPrefix = "RELAY_"

// Settings is the runtime configuration of a Kernel.
type Settings struct {
	App            AppSettings      `yaml:"app" envPrefix:"APP_"`
	Session        SessionSettings  `yaml:"session" envPrefix:"SESSION_"`
	Database       DatabaseSettings `yaml:"database" envPrefix:"DATABASE_"`
	Log            LogSettings      `yaml:"log" envPrefix:"LOG_"`
	Server         ServerSettings   `yaml:"server" envPrefix:"SERVER_"`
	Sentry         SentrySettings   `yaml:"sentry" envPrefix:"SENTRY_"`
	ErrorReporting string           `yaml:"error_reporting" env:"ERROR_REPORTING"`
	Middleware     []string         `yaml:"middleware" env:"MIDDLEWARE" envSeparator:","`
}

// AppSettings configures dispatch and views.
type AppSettings struct {
	Timezone      string   `yaml:"timezone" env:"TIMEZONE"`
	DefaultLayout string   `yaml:"default_layout" env:"DEFAULT_LAYOUT"`
	BasePath      string   `yaml:"base_path" env:"BASE_PATH"`
	BaseURL       string   `yaml:"base_url" env:"BASE_URL"`
	Language      string   `yaml:"language" env:"LANGUAGE"`
	Languages     []string `yaml:"languages" env:"LANGUAGES" envSeparator:","`
	MaxBodySize   int64    `yaml:"max_body_size" env:"MAX_BODY_SIZE"`
	ShowErrors    bool     `yaml:"show_errors" env:"SHOW_ERRORS"`
	Buffering     bool     `yaml:"buffering" env:"BUFFERING"`
	StripTags     bool     `yaml:"strip_tags" env:"STRIP_TAGS"`
}

// SessionSettings configures the session cookie and backend.
type SessionSettings struct {
	Type     string        `yaml:"type" env:"TYPE"`
	Name     string        `yaml:"name" env:"NAME"`
	Path     string        `yaml:"path" env:"PATH"`
	Domain   string        `yaml:"domain" env:"DOMAIN"`
	Secret   string        `yaml:"secret" env:"SECRET"`
	RedisURL string        `yaml:"redis_url" env:"REDIS_URL"`
	Lifetime time.Duration `yaml:"lifetime" env:"LIFETIME"`
	Secure   bool          `yaml:"secure" env:"SECURE"`
	HTTPOnly bool          `yaml:"http_only" env:"HTTP_ONLY"`
	Disabled bool          `yaml:"disabled" env:"DISABLED"`
}

// DatabaseSettings lists named connections. Default names the connection
// opened at boot; leaving it empty disables the database.
type DatabaseSettings struct {
	Connections map[string]db.Config `yaml:"connections"`
	Default     string               `yaml:"default" env:"DEFAULT"`
}

// LogSettings configures the application logger.
type LogSettings struct {
	Dir   string `yaml:"dir" env:"DIR"`
	Level string `yaml:"level" env:"LEVEL"`
}

// ServerSettings configures the HTTP server started by Run.
type ServerSettings struct {
	Address         string        `yaml:"address" env:"ADDRESS"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// SentrySettings enables error reporting to Sentry.
type SentrySettings struct {
	DSN         string `yaml:"dsn" env:"DSN"`
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
}

// DefaultSettings returns the settings used for keys that are not configured.
func DefaultSettings() Settings {
	return Settings{
		App: AppSettings{
			Timezone:  "UTC",
			Buffering: true,
		},
		Session: SessionSettings{
			Type:     "memory",
			Name:     "__sid",
			Path:     "/",
			Lifetime: 24 * time.Hour,
			HTTPOnly: true,
		},
		Log:            LogSettings{Level: "info"},
		Server:         ServerSettings{Address: ":8080", ShutdownTimeout: defaultShutdownTimeout},
		Sentry:         SentrySettings{Environment: "production"},
		ErrorReporting: "all",
	}
}

// LoadSettings decodes cfg over the defaults and applies RELAY_* environment
// overrides. A nil cfg yields defaults plus environment.
func LoadSettings(cfg *config.Config) (Settings, error) {
	s := DefaultSettings()
	if cfg != nil {
		if err := cfg.Decode("", &s); err != nil {
			return s, &ConfigurationError{Err: err, Message: "cannot decode settings"}
		}
	}
	if err := env.ParseWithOptions(&s, env.Options{Prefix: EnvPrefix}); err != nil {
		return s, &ConfigurationError{Err: err, Message: "cannot apply environment overrides"}
	}
	return s, nil
}

// Validate checks settings that must be correct before boot.
func (s Settings) Validate() error {
	var errs []error

	if _, err := ParseSeverity(s.ErrorReporting); err != nil {
		errs = append(errs, &ConfigurationError{Key: "error_reporting", Err: err, Message: err.Error()})
	}
	if _, err := time.LoadLocation(s.App.Timezone); err != nil {
		errs = append(errs, &ConfigurationError{Key: "app.timezone", Err: err, Message: "unknown time zone " + s.App.Timezone})
	}
	if _, err := logger.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, &ConfigurationError{Key: "log.level", Err: err, Message: err.Error()})
	}
	if err := s.Database.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (d DatabaseSettings) validate() error {
	if d.Default == "" {
		return nil
	}
	key := "database.connections." + d.Default
	conn, ok := d.Connections[d.Default]
	if !ok || !conn.HasCredentials() {
		return &ConfigurationError{
			Key:     key,
			Err:     db.ErrMissingCredentials,
			Message: fmt.Sprintf("credentials for the default connection %q are not defined", d.Default),
		}
	}
	return nil
}

// DefaultConnection returns the config of the default connection.
func (d DatabaseSettings) DefaultConnection() (db.Config, bool) {
	if d.Default == "" {
		return db.Config{}, false
	}
	c, ok := d.Connections[d.Default]
	return c, ok
}

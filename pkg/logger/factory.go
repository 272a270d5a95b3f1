package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Config selects where log records go. Records always go to stdout.
type Config struct {
	// Dir enables dated log files in this directory.
	Dir string
	// Level is the minimum level for stdout and files.
	Level slog.Level
	// Sentry enables error reporting when DSN is set.
	Sentry SentryConfig
	// Location converts record timestamps and file dates. Nil keeps the
	// process local time.
	Location *time.Location
}

// SentryConfig enables error reporting. Without a DSN nothing is sent.
type SentryConfig struct {
	DSN         string
	Environment string
	// MinLevel set to error keeps warnings out of Sentry logs.
	// Error records always create issues.
	MinLevel slog.Level
}

// NewFromConfig builds a logger fanning out to stdout, dated files and
// Sentry as configured. The returned closer releases the log file.
func NewFromConfig(cfg Config, extractors ...ContextExtractor) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Location != nil {
		opts.ReplaceAttr = timeIn(cfg.Location)
	}
	handlers := []slog.Handler{slog.NewJSONHandler(os.Stdout, opts)}

	var closer io.Closer = nopCloser{}
	if cfg.Dir != "" {
		fw, err := NewFileWriter(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		if loc := cfg.Location; loc != nil {
			fw.now = func() time.Time { return time.Now().In(loc) }
		}
		handlers = append(handlers, slog.NewJSONHandler(fw, opts))
		closer = fw
	}
	if h := sentryHandler(cfg.Sentry, handlers[0]); h != nil {
		handlers = append(handlers, h)
	}

	return slog.New(WithExtractors(newFanout(handlers...), extractors...)), closer, nil
}

// NewFile creates a logger writing JSON records only to dated files in dir.
func NewFile(dir string, level slog.Level, extractors ...ContextExtractor) (*slog.Logger, *FileWriter, error) {
	fw, err := NewFileWriter(dir)
	if err != nil {
		return nil, nil, err
	}
	h := slog.NewJSONHandler(fw, &slog.HandlerOptions{Level: level})
	return slog.New(WithExtractors(h, extractors...)), fw, nil
}

// timeIn rewrites the record time into loc.
func timeIn(loc *time.Location) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
			a.Value = slog.TimeValue(a.Value.Time().In(loc))
		}
		return a
	}
}

// ParseLevel parses "debug", "info", "warn" or "error". Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// sentryHandler initializes the Sentry SDK and returns its handler, or nil
// when Sentry is not configured or fails to start.
func sentryHandler(cfg SentryConfig, fallback slog.Handler) slog.Handler {
	if cfg.DSN == "" {
		return nil
	}
	env := cfg.Environment
	if env == "" {
		env = "production"
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: env,
		EnableLogs:  true,
	}); err != nil {
		slog.New(fallback).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return nil
	}

	eventLevel := []slog.Level{slog.LevelError}
	logLevel := []slog.Level{slog.LevelWarn, slog.LevelError}
	if cfg.MinLevel == slog.LevelError {
		logLevel = []slog.Level{slog.LevelError}
	}
	return sentryslog.Option{
		EventLevel: eventLevel,
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

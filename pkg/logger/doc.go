// Package logger builds the application's slog.Logger.
//
// Records are written as JSON to stdout and, when configured, to dated
// files (log-YYYY-MM-DD.txt) and Sentry. [ContextExtractor] functions add
// request-scoped attributes such as a request ID to every record logged
// with that request's context.
//
//	log, closer, err := logger.NewFromConfig(logger.Config{
//		Dir:    "var/log",
//		Level:  slog.LevelInfo,
//		Sentry: logger.SentryConfig{DSN: os.Getenv("SENTRY_DSN")},
//	}, requestIDExtractor)
//	if err != nil {
//		return err
//	}
//	defer closer.Close()
package logger

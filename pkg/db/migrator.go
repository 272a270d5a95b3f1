package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// goose keeps its base FS, logger and table name in package state.
var migrateMu sync.Mutex

// Migrate applies pending goose migrations found at the root of fsys.
// An empty table keeps goose's default version table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, table string, log *slog.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	if log == nil {
		log = slog.Default()
	}
	goose.SetBaseFS(fsys)
	goose.SetLogger(gooseLogger{log: log.With(slog.String("component", "migrations"))})
	defer goose.SetBaseFS(nil)
	if table != "" {
		prev := goose.TableName()
		goose.SetTableName(table)
		defer goose.SetTableName(prev)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrSetDialect, err)
	}
	// Shares the pool's connections; closing it would close the pool.
	sqlDB := stdlib.OpenDBFromPool(pool)
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}
	return nil
}

// Migrate runs Migrate against the pool opened under name.
func (m *Manager) Migrate(ctx context.Context, name string, fsys fs.FS, table string, log *slog.Logger) error {
	pool, err := m.Pool(name)
	if err != nil {
		return err
	}
	return Migrate(ctx, pool, fsys, table, log)
}

type gooseLogger struct{ log *slog.Logger }

func (g gooseLogger) Printf(format string, args ...any) {
	g.log.Info(fmt.Sprintf(format, args...))
}

// Fatalf must not exit; goose also returns the error.
func (g gooseLogger) Fatalf(format string, args ...any) {
	g.log.Error(fmt.Sprintf(format, args...))
}

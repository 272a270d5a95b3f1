package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// InTx runs fn in a transaction on the pool opened under name, or the
// default pool when name is empty. The transaction commits when fn returns
// nil and rolls back on an error or panic.
func (m *Manager) InTx(ctx context.Context, name string, fn func(pgx.Tx) error) error {
	pool, err := m.lookup(name)
	if err != nil {
		return err
	}
	if err := pgx.BeginFunc(ctx, pool, fn); err != nil {
		return fmt.Errorf("db: transaction: %w", err)
	}
	return nil
}

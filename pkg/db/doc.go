// Package db manages PostgreSQL connection pools built on
// [github.com/jackc/pgx/v5/pgxpool].
//
// A [Manager] keeps named pools; the runtime opens the configured default
// connection at boot and closes every pool on shutdown:
//
//	m := db.NewManager()
//	pool, err := m.Connect(ctx, "main", db.Config{
//		Host: "localhost", User: "app", Password: "secret", Name: "app",
//	})
//	defer m.Close()
//
// [Connect] retries with a growing delay. [Migrate] applies goose
// migrations from any fs.FS, and [Manager.InTx] runs a function in a
// transaction on a named connection.
package db

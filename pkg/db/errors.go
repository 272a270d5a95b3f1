package db

import "errors"

var (
	// ErrMissingCredentials means neither a DSN nor a host was configured.
	ErrMissingCredentials = errors.New("db: connection credentials are not defined")
	ErrInvalidConfig      = errors.New("db: invalid connection configuration")
	ErrConnectionFailed   = errors.New("db: failed to open connection")
	ErrUnknownConnection  = errors.New("db: unknown connection")
	ErrHealthcheckFailed  = errors.New("db: healthcheck failed")

	ErrSetDialect      = errors.New("db: migrations: failed to set dialect")
	ErrApplyMigrations = errors.New("db: migrations: failed to apply")
)

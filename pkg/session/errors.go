package session

import "errors"

var (
	ErrNotConfigured = errors.New("session: not configured")
	ErrNotFound      = errors.New("session: not found")
	ErrExpired       = errors.New("session: expired")
	ErrTypeMismatch  = errors.New("session: type mismatch")

	// ErrInvalidToken means the session cookie failed signature verification.
	ErrInvalidToken = errors.New("session: invalid token")

	// ErrUnknownStore is returned by NewStore for unregistered backends.
	ErrUnknownStore = errors.New("session: unknown store type")
)

package session

import "context"

// Store persists sessions by token.
//
// Get returns ErrNotFound for unknown tokens and ErrExpired for sessions
// past ExpiresAt. Stores are used concurrently and must not retain the
// *Session passed to Create or Update.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, token string) error
}

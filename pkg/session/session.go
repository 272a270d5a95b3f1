package session

import (
	"fmt"
	"time"
)

// Session is server-side state addressed by the token in the session
// cookie. Values must survive a JSON round trip when the store is Redis,
// so numbers come back as float64 there.
type Session struct {
	Values       map[string]any `json:"values"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
	ID           string         `json:"id"`
	Token        string         `json:"token"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`

	dirty bool
}

// New returns an unsaved session expiring at expiresAt.
func New(id, token string, expiresAt time.Time) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Token:        token,
		Values:       make(map[string]any),
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    expiresAt,
		dirty:        true,
	}
}

func (s *Session) SetValue(key string, val any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = val
	s.dirty = true
}

func (s *Session) GetValue(key string) (any, bool) {
	val, ok := s.Values[key]
	return val, ok
}

// DeleteValue removes key. Removing a missing key leaves the session clean.
func (s *Session) DeleteValue(key string) {
	if _, ok := s.Values[key]; ok {
		delete(s.Values, key)
		s.dirty = true
	}
}

// Clear removes every value.
func (s *Session) Clear() {
	if len(s.Values) == 0 {
		return
	}
	clear(s.Values)
	s.dirty = true
}

// IsDirty reports whether the session changed since it was loaded or saved.
func (s *Session) IsDirty() bool { return s.dirty }

// ClearDirty is called by the Manager once changes are persisted.
func (s *Session) ClearDirty() { s.dirty = false }

func (s *Session) IsExpired() bool {
	return !time.Now().Before(s.ExpiresAt)
}

// Value returns the value under key as T.
// JSON numbers are converted when T is int or int64.
func Value[T any](s *Session, key string) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNotFound
	}
	val, ok := s.GetValue(key)
	if !ok {
		return zero, ErrNotFound
	}
	if typed, ok := val.(T); ok {
		return typed, nil
	}
	if f, ok := val.(float64); ok {
		switch any(zero).(type) {
		case int:
			return any(int(f)).(T), nil
		case int64:
			return any(int64(f)).(T), nil
		}
	}
	return zero, fmt.Errorf("%w: %q holds %T", ErrTypeMismatch, key, val)
}

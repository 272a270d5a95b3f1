package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/relay/pkg/cookie"
)

// Default cookie parameters.
const (
	DefaultCookieName = "__sid"
	DefaultLifetime   = 24 * time.Hour
)

// CookieParams describes the session cookie.
type CookieParams struct {
	Name     string
	Path     string
	Domain   string
	Lifetime time.Duration
	SameSite http.SameSite
	Secure   bool
	HTTPOnly bool
}

func (p CookieParams) withDefaults() CookieParams {
	if p.Name == "" {
		p.Name = DefaultCookieName
	}
	if p.Path == "" {
		p.Path = "/"
	}
	if p.Lifetime <= 0 {
		p.Lifetime = DefaultLifetime
	}
	if p.SameSite == 0 {
		p.SameSite = http.SameSiteLaxMode
	}
	return p
}

// Manager starts, saves and destroys sessions and keeps the session
// cookie in sync with the store.
type Manager struct {
	store   Store
	cookies *cookie.Manager
	logger  *slog.Logger
	secret  string
	params  CookieParams
	mu      sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithSecret signs the session cookie with secret (32+ bytes).
// Shorter secrets leave the cookie unsigned.
func WithSecret(secret string) Option {
	return func(m *Manager) {
		m.secret = secret
	}
}

// WithLogger sets the logger for session events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager persisting sessions in store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.SetCookieParams(CookieParams{HTTPOnly: true})
	return m
}

// SetCookieParams replaces the cookie parameters. Zero fields take defaults.
func (m *Manager) SetCookieParams(p CookieParams) {
	p = p.withDefaults()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = p
	m.cookies = cookie.New(
		cookie.WithSecret(m.secret),
		cookie.WithPath(p.Path),
		cookie.WithDomain(p.Domain),
		cookie.WithSecure(p.Secure),
		cookie.WithHTTPOnly(p.HTTPOnly),
		cookie.WithSameSite(p.SameSite),
	)
}

// CookieParams returns the active cookie parameters.
func (m *Manager) CookieParams() CookieParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params
}

// Store returns the underlying session store.
func (m *Manager) Store() Store {
	return m.store
}

// Start loads the session referenced by the request cookie or creates a new
// one and sets its cookie on w. w must not have sent its headers yet.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	m.mu.RLock()
	params, cookies := m.params, m.cookies
	m.mu.RUnlock()

	token, err := m.readToken(cookies, r, params.Name)
	if err == nil && token != "" {
		sess, err := m.store.Get(ctx, token)
		switch {
		case err == nil:
			return sess, nil
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired):
			m.logger.DebugContext(ctx, "session not found, starting a new one", slog.Any("reason", err))
		default:
			return nil, err
		}
	} else if err != nil && !errors.Is(err, cookie.ErrNotFound) {
		m.logger.WarnContext(ctx, "rejected session cookie", slog.Any("error", err))
	}

	sess, err := m.create(ctx, r, params)
	if err != nil {
		return nil, err
	}
	if err := m.writeCookie(cookies, w, params, sess.Token); err != nil {
		return nil, err
	}
	return sess, nil
}

// Save persists sess when it has unsaved changes.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	if sess == nil || !sess.IsDirty() {
		return nil
	}
	sess.LastActiveAt = time.Now()
	if err := m.store.Update(ctx, sess); err != nil {
		return err
	}
	sess.ClearDirty()
	return nil
}

// Regenerate issues a new token for sess and rewrites the cookie.
// Call it after login so a token known before authentication stops working.
func (m *Manager) Regenerate(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	m.mu.RLock()
	params, cookies := m.params, m.cookies
	m.mu.RUnlock()

	oldToken := sess.Token
	token, err := generateToken()
	if err != nil {
		return err
	}
	sess.Token = token
	if err := m.store.Create(ctx, sess); err != nil {
		sess.Token = oldToken
		return err
	}
	if err := m.store.Delete(ctx, oldToken); err != nil {
		m.logger.WarnContext(ctx, "failed to delete rotated session", slog.Any("error", err))
	}
	sess.ClearDirty()
	return m.writeCookie(cookies, w, params, token)
}

// Destroy removes sess from the store and expires its cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	m.mu.RLock()
	params, cookies := m.params, m.cookies
	m.mu.RUnlock()

	cookies.Delete(w, params.Name)
	if sess == nil {
		return nil
	}
	return m.store.Delete(ctx, sess.Token)
}

func (m *Manager) create(ctx context.Context, r *http.Request, params CookieParams) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	sess := New(uuid.NewString(), token, time.Now().Add(params.Lifetime))
	sess.UserAgent = r.UserAgent()
	sess.IP = r.RemoteAddr

	if err := m.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	sess.ClearDirty()
	return sess, nil
}

func (m *Manager) readToken(cookies *cookie.Manager, r *http.Request, name string) (string, error) {
	if len(m.secret) >= 32 {
		token, err := cookies.GetSigned(r, name)
		if errors.Is(err, cookie.ErrBadSig) {
			return "", ErrInvalidToken
		}
		return token, err
	}
	return cookies.Get(r, name)
}

func (m *Manager) writeCookie(cookies *cookie.Manager, w http.ResponseWriter, params CookieParams, token string) error {
	maxAge := int(params.Lifetime / time.Second)
	if len(m.secret) >= 32 {
		return cookies.SetSigned(w, params.Name, token, maxAge)
	}
	cookies.Set(w, params.Name, token, maxAge)
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

package db

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Manager holds named connection pools. The first connection opened
// becomes the default unless SetDefault says otherwise.
type Manager struct {
	pools map[string]*pgxpool.Pool
	def   string
	mu    sync.RWMutex
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		pools: make(map[string]*pgxpool.Pool),
	}
}

// Connect opens the pool for name. Connecting a name twice returns the
// existing pool.
func (m *Manager) Connect(ctx context.Context, name string, cfg Config) (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pool, ok := m.pools[name]; ok {
		return pool, nil
	}
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: connect %q: %w", name, err)
	}
	m.pools[name] = pool
	if m.def == "" {
		m.def = name
	}
	return pool, nil
}

// SetDefault selects the pool returned by Default.
func (m *Manager) SetDefault(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.def = name
}

// Pool returns the pool opened under name.
func (m *Manager) Pool(name string) (*pgxpool.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pool, ok := m.pools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
	}
	return pool, nil
}

// Default returns the default pool.
func (m *Manager) Default() (*pgxpool.Pool, error) {
	return m.lookup("")
}

// lookup resolves name, with "" meaning the default connection.
func (m *Manager) lookup(name string) (*pgxpool.Pool, error) {
	if name == "" {
		m.mu.RLock()
		name = m.def
		m.mu.RUnlock()
	}
	return m.Pool(name)
}

// Names lists the open connections in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.pools))
}

// Close closes every pool.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, pool := range m.pools {
		pool.Close()
		delete(m.pools, name)
	}
	m.def = ""
}

// Shutdown returns a shutdown hook closing every pool of m.
func (m *Manager) Shutdown() func(context.Context) error {
	return func(context.Context) error {
		m.Close()
		return nil
	}
}

// Healthcheck returns a check pinging every open pool.
func (m *Manager) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		m.mu.RLock()
		pools := maps.Clone(m.pools)
		m.mu.RUnlock()
		for name, pool := range pools {
			if err := Healthcheck(pool)(ctx); err != nil {
				return fmt.Errorf("%q: %w", name, err)
			}
		}
		return nil
	}
}

package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// StoreConfig carries the settings a store backend may need.
type StoreConfig struct {
	RedisURL string
}

// StoreFactory builds a Store of one backend type.
type StoreFactory func(ctx context.Context, cfg StoreConfig) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]StoreFactory{
		"memory": func(context.Context, StoreConfig) (Store, error) {
			return NewMemoryStore(), nil
		},
	}
)

// RegisterStore makes a backend available to NewStore under kind.
// Registering an existing kind replaces it.
func RegisterStore(kind string, f StoreFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = f
}

// NewStore builds the backend registered under kind.
// An empty kind selects "memory".
func NewStore(ctx context.Context, kind string, cfg StoreConfig) (Store, error) {
	if kind == "" {
		kind = "memory"
	}
	registryMu.RLock()
	f, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownStore, kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists the registered backend names.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

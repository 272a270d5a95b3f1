package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned by Decode for keys that are not set.
	ErrNotFound = errors.New("config: key not found")

	// ErrRead is returned when a config file cannot be read or parsed.
	ErrRead = errors.New("config: failed to read file")
)

// Config is a tree of settings addressed by dotted keys such as "app.timezone".
type Config struct {
	data map[string]any
}

// New wraps an already decoded tree.
func New(data map[string]any) *Config {
	if data == nil {
		data = make(map[string]any)
	}
	return &Config{data: normalize(data).(map[string]any)}
}

// Load reads YAML files in order; later files override earlier keys.
// ${VAR} references are expanded from the environment before parsing.
func Load(paths ...string) (*Config, error) {
	c := New(nil)
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Join(ErrRead, err)
		}
		if err := c.merge(raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
		}
	}
	return c, nil
}

// Parse builds a Config from YAML bytes.
func Parse(raw []byte) (*Config, error) {
	c := New(nil)
	if err := c.merge(raw); err != nil {
		return nil, errors.Join(ErrRead, err)
	}
	return c, nil
}

// LoadEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func (c *Config) merge(raw []byte) error {
	expanded := os.Expand(string(raw), func(name string) string {
		if name == "$" {
			return "$"
		}
		return os.Getenv(name)
	})
	var data map[string]any
	if err := yaml.NewDecoder(bytes.NewReader([]byte(expanded))).Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	deepMerge(c.data, normalize(data).(map[string]any))
	return nil
}

// Has reports whether key is set.
func (c *Config) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Get returns the raw value under key, or nil.
func (c *Config) Get(key string) any {
	v, _ := c.lookup(key)
	return v
}

// String returns key as a string, or def when unset.
func (c *Config) String(key, def string) string {
	v, ok := c.lookup(key)
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns key as a bool, or def when unset or not a bool.
func (c *Config) Bool(key string, def bool) bool {
	switch v := c.Get(key).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Int returns key as an int, or def when unset or not numeric.
func (c *Config) Int(key string, def int) int {
	switch v := c.Get(key).(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Duration returns key parsed with time.ParseDuration, or def.
func (c *Config) Duration(key string, def time.Duration) time.Duration {
	if s, ok := c.Get(key).(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return def
}

// StringSlice returns a list value as strings.
func (c *Config) StringSlice(key string) []string {
	list, ok := c.Get(key).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

// Sub returns the subtree under key. Missing keys yield an empty Config.
func (c *Config) Sub(key string) *Config {
	if m, ok := c.Get(key).(map[string]any); ok {
		return &Config{data: m}
	}
	return New(nil)
}

// Decode re-encodes the subtree under key and decodes it into out using
// yaml struct tags. An empty key decodes the whole tree.
func (c *Config) Decode(key string, out any) error {
	var v any = c.data
	if key != "" {
		var ok bool
		if v, ok = c.lookup(key); !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
	}
	raw, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("config: encode %q: %w", key, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("config: decode %q: %w", key, err)
	}
	return nil
}

// Map returns a shallow copy of the top-level tree.
func (c *Config) Map() map[string]any {
	return maps.Clone(c.data)
}

func (c *Config) lookup(key string) (any, bool) {
	var cur any = c.data
	for part := range strings.SplitSeq(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// normalize converts nested map[any]any values to map[string]any.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				deepMerge(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
}

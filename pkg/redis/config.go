package redis

import (
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config describes one Redis connection.
type Config struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string `yaml:"url" env:"URL"`

	PoolSize     int           `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time" env:"MAX_IDLE_TIME"`
	MaxLifetime  time.Duration `yaml:"max_lifetime" env:"MAX_LIFETIME"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	IOTimeout    time.Duration `yaml:"io_timeout" env:"IO_TIMEOUT"`

	RetryAttempts int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryInterval time.Duration `yaml:"retry_interval" env:"RETRY_INTERVAL"`
}

// WithDefaults fills unset pool settings.
func (c Config) WithDefaults() Config {
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = 2
	}
	if c.MaxIdleTime == 0 {
		c.MaxIdleTime = 10 * time.Minute
	}
	if c.MaxLifetime == 0 {
		c.MaxLifetime = 30 * time.Minute
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.IOTimeout == 0 {
		c.IOTimeout = 3 * time.Second
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = 2 * time.Second
	}
	return c
}

// options converts c into client options. Only redis:// and rediss://
// URLs are accepted.
func (c Config) options() (*redis.Options, error) {
	if c.URL == "" {
		return nil, ErrMissingURL
	}
	if !strings.HasPrefix(c.URL, "redis://") && !strings.HasPrefix(c.URL, "rediss://") {
		return nil, ErrInvalidURL
	}
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}

	c = c.WithDefaults()
	opts.PoolSize = c.PoolSize
	opts.MinIdleConns = c.MinIdleConns
	opts.ConnMaxIdleTime = c.MaxIdleTime
	opts.ConnMaxLifetime = c.MaxLifetime
	opts.DialTimeout = c.DialTimeout
	opts.ReadTimeout = c.IOTimeout
	opts.WriteTimeout = c.IOTimeout
	return opts, nil
}

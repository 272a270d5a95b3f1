package redis

import "errors"

var (
	ErrMissingURL        = errors.New("redis: connection URL is not set")
	ErrInvalidURL        = errors.New("redis: invalid connection URL")
	ErrConnectionFailed  = errors.New("redis: failed to connect")
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)

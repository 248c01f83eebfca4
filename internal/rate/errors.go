package rate

import "errors"

var (
	// ErrRateLimited reports an exhausted budget for the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis command failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

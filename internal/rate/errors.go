package rate

import "errors"

// ErrRedisUnavailable wraps failures from the Redis backend.
var ErrRedisUnavailable = errors.New("redis unavailable")

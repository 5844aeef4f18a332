package ratelimit

import "errors"

var ErrInvalidConfig = errors.New("ratelimit: capacity, refill rate and interval must be positive")

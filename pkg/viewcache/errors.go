package viewcache

import "errors"

var (
	// ErrCacheUnavailable wraps transport failures talking to the cache
	// backend. Callers on the view registration path treat it as a signal to
	// fall through to the durable store, never as a request failure.
	ErrCacheUnavailable = errors.New("view dedup cache unavailable")
)

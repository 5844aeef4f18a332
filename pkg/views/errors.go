package views

import "errors"

var (
	// ErrInvalidRequest means a missing or empty identifier. Never retried;
	// the caller must fix the input.
	ErrInvalidRequest = errors.New("invalid view registration request")

	// ErrTransientStore wraps durable-store failures. RegisterView is safe to
	// retry on it because the uniqueness constraint absorbs replays; the
	// service itself never retries, so an ambiguous increment is never
	// applied twice.
	ErrTransientStore = errors.New("transient tenant store error")

	// ErrUnknownTenant means a view arrived for a storefront that was never
	// authorized (or was removed). The view record is kept but no counter
	// exists to increment.
	ErrUnknownTenant = errors.New("unknown tenant")
)

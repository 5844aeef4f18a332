// Package redis wraps the go-redis client with the small amount of plumbing
// the service needs: a Connect with bounded retry, env-driven configuration
// and a readiness probe.
//
// The connected client backs the view dedup cache (pkg/viewcache); its loss
// degrades the hot path to durable-store lookups but never affects counting
// correctness.
package redis

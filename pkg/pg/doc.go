// Package pg provides PostgreSQL plumbing for the tenant counter store:
// pooled connection setup with retry, error classification helpers, goose
// migration wiring and a readiness probe.
//
// The database is the system's source of truth for view counting. The schema
// carries the two constraints correctness depends on: the tenants primary key
// for atomic counter updates and the (tenant, product, session) primary key
// on product_views that makes registration exactly-once.
package pg

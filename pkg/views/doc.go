// Package views implements the view registration service: the entry point for
// "a visitor loaded a product page" events and for the widget's status query.
//
// Registration is exactly-once per (tenant, product, session). The hot path
// consults a TTL'd cache marker; a miss falls through to a uniqueness-
// constrained insert in the durable store, and only a first successful insert
// increments the tenant counter. Cache failures are absorbed (fail-open),
// durable-store failures surface as ErrTransientStore for the caller to retry
// with its own backoff — replays are safe because of the constraint.
package views

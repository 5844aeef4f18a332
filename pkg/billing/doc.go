// Package billing reconciles asynchronous subscription lifecycle events from
// the host commerce platform into tenant billing state.
//
// The event transport and signature verification live at the HTTP edge; this
// package only sees an already-verified SubscriptionEvent. Delivery is
// at-least-once, so every reconciliation path is idempotent: applying the
// same event twice leaves the tenant row identical.
//
// The plan for an activated subscription is derived from its charged price
// through the fixed ladder in package quota. Events that carry only a
// subscription identifier are resolved to a tenant via the store's
// subscription index.
package billing

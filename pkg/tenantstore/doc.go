// Package tenantstore is the durable source of truth for per-storefront view
// counters, billing flags and widget settings.
//
// The store exposes exactly the primitives the metering engine needs and
// nothing more:
//
//   - an upsert whose conflict clause only touches the access token, so a
//     storefront re-authorizing never resets its counters or plan;
//   - an atomic single-statement counter increment, safe under arbitrary
//     concurrent callers with no lost updates;
//   - an insert-or-ignore view record backed by the (tenant, product, session)
//     primary key, which is the system's durable dedup guarantee;
//   - an idempotent subscription update plus a subscription-ID lookup for
//     billing events that arrive without a tenant key;
//   - a one-round-trip get-or-create for widget display settings.
//
// Two implementations ship: PGStore on a pgx connection pool for production
// and MemoryStore for tests and local development. Both honor identical
// semantics so the service layer can be exercised against either.
package tenantstore

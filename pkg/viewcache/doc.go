// Package viewcache provides the fast-path deduplication markers for product
// view counting, plus two small auxiliary counters the storefront widget uses:
// visitor session tracking and a short-window active-viewer count.
//
// The cache answers "has this session very likely already been counted for
// this product" without touching the durable store. It is explicitly a hint:
// a marker may expire or the whole cache may be flushed without affecting
// correctness, because the tenant store enforces uniqueness durably. For the
// same reason every implementation fails open — callers bypass the cache on
// any error instead of failing the request.
//
// The Redis implementation relies on SET NX EX for atomic test-and-set, so
// concurrent registrations for the same (session, product) pair resolve to a
// single marker creation without any client-side locking.
//
// # Usage
//
//	cache := viewcache.NewRedis(client, viewcache.WithTTL(time.Hour))
//	already, err := cache.CheckAndMark(ctx, sessionID, productID)
//	if err != nil {
//	    // fall through to the durable store
//	}
package viewcache

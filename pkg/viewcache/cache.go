package viewcache

import (
	"context"
	"time"
)

// DefaultTTL is how long a dedup marker lives. Expiry only costs an extra
// round trip to the durable store; it can never cause double counting.
const DefaultTTL = time.Hour

// ActiveViewerWindow bounds the social-proof viewer counter per product.
const ActiveViewerWindow = 5 * time.Minute

// Cache is the fast-path dedup marker for (session, product) view pairs.
// It is a hint only: the durable uniqueness constraint in the tenant store is
// the source of truth, so implementations may lose entries at any time.
type Cache interface {
	// CheckAndMark atomically tests whether a marker exists for the
	// (session, product) pair and creates one with a TTL if it does not.
	// It returns whether the marker already existed before this call.
	CheckAndMark(ctx context.Context, sessionID, productID string) (bool, error)
}

// SessionTracker records which storefront a visitor session belongs to.
type SessionTracker interface {
	MarkSession(ctx context.Context, sessionID, tenantKey string) error
	Session(ctx context.Context, sessionID string) (string, error)
}

// ViewerCounter maintains a short-lived per-product count of active viewers
// used by the widget for social proof. Values are approximate by design.
type ViewerCounter interface {
	IncrementActiveViewers(ctx context.Context, productID string) (int64, error)
	ActiveViewers(ctx context.Context, productID string) (int64, error)
}

func dedupKey(sessionID, productID string) string {
	return "view:" + sessionID + ":" + productID
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func viewersKey(productID string) string {
	return "viewers:" + productID
}

// Package handler is the HTTP edge of the metering service. It wires three
// surfaces onto one chi router:
//
//   - public collector endpoints (register-view, status) hit cross-origin by
//     the storefront widget;
//   - dashboard endpoints for usage stats and widget display settings;
//   - billing webhooks, HMAC-verified before the reconciliation core ever
//     sees a payload.
//
// Transport concerns (CORS, signature checks, session minting, JSON shapes)
// live here; counting and quota semantics live in pkg/views and pkg/billing.
package handler

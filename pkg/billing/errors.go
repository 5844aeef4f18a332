package billing

import "errors"

var (
	ErrInvalidEvent         = errors.New("invalid subscription event")
	ErrUnresolvedTenant     = errors.New("no tenant holds this subscription")
	ErrReconciliationFailed = errors.New("failed to reconcile subscription state")
)

package engine

import "errors"

// Admission rejections are expected control-flow outcomes, not exceptional
// failures: callers are expected to check these with errors.Is.
var (
	// ErrDuplicateOrder is returned by Add when order_id already names a
	// live order.
	ErrDuplicateOrder = errors.New("order already exists")
	// ErrUnfillableIOC is returned by Add when an ImmediateOrCancel order
	// cannot cross at admission time.
	ErrUnfillableIOC = errors.New("immediate-or-cancel order would not cross")
	// ErrUnknownOrder is returned by Modify when order_id does not name a
	// live order.
	ErrUnknownOrder = errors.New("order not found")
)

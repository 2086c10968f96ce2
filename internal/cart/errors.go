package cart

import (
	"errors"
	"fmt"
)

// Sentinel errors for cart operations.
var (
	ErrNotConfigured = errors.New("cart: base URL not configured")
	ErrRateLimited   = errors.New("cart: rate limited by server")
	ErrConflict      = errors.New("cart: conflicting update")
	ErrServer        = errors.New("cart: server error")
	// ErrRejected means the cart refused the request; resending it unchanged
	// will not help.
	ErrRejected = errors.New("cart: request rejected")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("cart %s (HTTP %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("cart %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether retrying err cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrRejected) || errors.Is(err, ErrNotConfigured)
}

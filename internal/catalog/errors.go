package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations.
var (
	ErrNotFound      = errors.New("catalog: product not found")
	ErrRateLimited   = errors.New("catalog: rate limited by server")
	ErrServer        = errors.New("catalog: server error")
	ErrNotConfigured = errors.New("catalog: base URL not configured")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op        string
	ProductID string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("catalog %s [%s]: %v", e.Op, e.ProductID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

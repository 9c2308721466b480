package pv

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates a read or write did not complete within its
	// deadline. The runtime treats this as a disconnection of the
	// affected binding.
	ErrTimeout = errors.New("pv: operation timed out")

	// ErrClosed indicates the provider has been closed.
	ErrClosed = errors.New("pv: provider closed")

	// ErrNotConnected indicates the gateway transport is currently down.
	ErrNotConnected = errors.New("pv: gateway not connected")
)

// OpError wraps a failure of a named operation on a variable.
type OpError struct {
	Op   string
	Addr Address
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("pv: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// IsTimeout reports whether err represents a bounded operation running
// out of time, in either this package's or the context package's terms.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

package pv

import (
	"context"
	"strconv"
)

// Address is a fully-qualified variable identifier.
type Address string

// Join composes a device-name prefix and a variable suffix into one
// fully-qualified address. Composition happens exactly once, at parse
// time, before any subscription exists.
func Join(device, name string) Address {
	if device == "" {
		return Address(name)
	}
	return Address(device + ":" + name)
}

func (a Address) String() string { return string(a) }

// Value is the latest sample for a variable. Number carries the numeric
// reading; Text carries the provider-decoded string form, which for
// enumerated variables is the enumeration label.
type Value struct {
	Number float64
	Text   string
}

// NumberValue builds a Value from a float.
func NumberValue(n float64) Value {
	return Value{Number: n, Text: strconv.FormatFloat(n, 'g', -1, 64)}
}

// Meta is the provider-reported description of a variable, captured when
// the subscription first connects.
type Meta struct {
	Precision    int
	HasPrecision bool
	Units        string
	EnumStrings  []string
}

// SubID identifies one live subscription.
type SubID uint64

// EventKind discriminates subscription events.
type EventKind int

const (
	// EventConnected reports the variable became reachable.
	EventConnected EventKind = iota
	// EventDisconnected reports the variable became unreachable.
	EventDisconnected
	// EventValue reports a new sample.
	EventValue
)

// Event is one asynchronous notification for a subscription. Events are
// delivered on a single channel in arrival order; consumers must treat
// value events as latest-wins (duplicates and reordering upstream of the
// gateway are possible).
type Event struct {
	Sub   SubID
	Kind  EventKind
	Value Value
	Meta  *Meta // non-nil when metadata accompanied the event
}

// Provider is the variable-access service the dashboard binds fields to.
// Implementations deliver all asynchronous notifications through Events;
// they never call back into the consumer.
type Provider interface {
	// Monitor opens a subscription to addr. The returned SubID tags all
	// subsequent events for it.
	Monitor(addr Address) (SubID, error)

	// Unmonitor releases a subscription. Releasing twice is a no-op.
	Unmonitor(id SubID)

	// Put writes a value, bounded by the context deadline.
	Put(ctx context.Context, addr Address, value Value) error

	// Get reads the current value, bounded by the context deadline.
	Get(ctx context.Context, addr Address) (Value, error)

	// Events is the single delivery channel for all subscriptions.
	Events() <-chan Event

	// Close releases every subscription and the underlying transport.
	Close() error
}

package field

import (
	"strconv"

	"github.com/veskel/pvdash/internal/pv"
)

// Binding owns one subscription's view of a variable: connection state,
// latest value, enumeration table, units, and resolved precision. It is
// mutated only from the runtime's event loop.
type Binding struct {
	addr pv.Address

	connected bool
	value     pv.Value
	hasValue  bool

	enumStrings []string
	units       string

	// precisionOverride is the explicit page-document precision, or -1.
	// The effective precision is resolved once, on the first connection
	// that reports metadata; the override always wins.
	precisionOverride int
	precision         int
	precisionResolved bool
}

// NewBinding creates a binding for addr in the Disconnected state.
func NewBinding(addr pv.Address, precisionOverride int) *Binding {
	b := &Binding{addr: addr, precisionOverride: precisionOverride, precision: 0}
	if precisionOverride >= 0 {
		b.precision = precisionOverride
		b.precisionResolved = true
	}
	return b
}

// Addr returns the bound variable address.
func (b *Binding) Addr() pv.Address { return b.addr }

// Connected reports the current connection state.
func (b *Binding) Connected() bool { return b.connected }

// Value returns the latest sample and whether one has been received.
func (b *Binding) Value() (pv.Value, bool) { return b.value, b.hasValue }

// EnumStrings returns the enumeration table captured at connection.
func (b *Binding) EnumStrings() []string { return b.enumStrings }

// Units returns the provider-reported engineering units.
func (b *Binding) Units() string { return b.units }

// Precision returns the resolved display precision.
func (b *Binding) Precision() int { return b.precision }

// Apply folds one subscription event into the binding. Delivery may be
// duplicated or reordered upstream; the binding always reflects the most
// recently received sample and never queues history.
func (b *Binding) Apply(ev pv.Event) {
	if ev.Meta != nil {
		b.absorbMeta(ev.Meta)
	}

	switch ev.Kind {
	case pv.EventConnected:
		b.connected = true
	case pv.EventDisconnected:
		b.connected = false
	case pv.EventValue:
		b.connected = true
		b.value = ev.Value
		b.hasValue = true
	}
}

// ForceDisconnected marks the binding disconnected without a provider
// event; used when a bounded write times out.
func (b *Binding) ForceDisconnected() {
	b.connected = false
}

func (b *Binding) absorbMeta(meta *pv.Meta) {
	if len(meta.EnumStrings) > 0 {
		b.enumStrings = meta.EnumStrings
	}
	if meta.Units != "" {
		b.units = meta.Units
	}
	if !b.precisionResolved && meta.HasPrecision {
		b.precision = meta.Precision
		b.precisionResolved = true
	}
}

// FormatNumber renders n at the binding's precision, optionally in
// exponent notation, with the unit suffix appended.
func (b *Binding) FormatNumber(n float64, scientific bool, unit string) string {
	var s string
	if scientific {
		s = strconv.FormatFloat(n, 'e', b.precision, 64)
	} else {
		s = strconv.FormatFloat(n, 'f', b.precision, 64)
	}
	return s + unit
}

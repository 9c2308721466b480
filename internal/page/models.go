package page

import (
	"fmt"

	"github.com/veskel/pvdash/internal/pv"
)

// Kind is the closed set of field variants a page document may declare.
type Kind int

const (
	// KindStatic is a fixed text cell ("text").
	KindStatic Kind = iota
	// KindDivider is a blank spacer cell ("divider").
	KindDivider
	// KindReadOnly displays a live variable ("getPV").
	KindReadOnly
	// KindEditableNumeric edits a numeric or enumerated variable ("setPV").
	KindEditableNumeric
	// KindIndicator classifies a variable against threshold sets ("LED").
	KindIndicator
	// KindAction triggers a write or an auxiliary command ("button").
	KindAction
)

// kindTags maps document type tags to kinds. The tag vocabulary is fixed;
// anything else is a parse error, never a runtime lookup failure.
var kindTags = map[string]Kind{
	"text":    KindStatic,
	"divider": KindDivider,
	"getPV":   KindReadOnly,
	"setPV":   KindEditableNumeric,
	"LED":     KindIndicator,
	"button":  KindAction,
}

func (k Kind) String() string {
	for tag, kind := range kindTags {
		if kind == k {
			return tag
		}
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// HasBinding reports whether fields of this kind own a variable
// subscription. Action fields bind only when they name a variable.
func (k Kind) HasBinding() bool {
	switch k {
	case KindReadOnly, KindEditableNumeric, KindIndicator, KindAction:
		return true
	default:
		return false
	}
}

// Align is the horizontal alignment of a cell's content.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

var alignNames = map[string]Align{
	"left":   AlignLeft,
	"center": AlignCenter,
	"right":  AlignRight,
}

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// FieldSpec is one validated field declaration. Specs are immutable once
// parsed; all mutable state lives in the runtime's field models.
type FieldSpec struct {
	Kind  Kind
	Width int
	Align Align

	// Address is the fully-qualified variable address, already composed
	// from device_name and pv_name. Empty for static and divider fields,
	// and for script-only buttons.
	Address pv.Address

	// Enum marks the variable as enumerated (value is an index into a
	// provider-supplied string table).
	Enum bool

	// Precision is the explicit fractional-digit override; -1 defers to
	// the provider-reported precision.
	Precision int

	// Scientific selects exponent notation for readonly display.
	Scientific bool

	// Unit is appended to formatted numeric displays.
	Unit string

	// Script is an auxiliary command: a value formatter for readonly
	// fields, a classifier for indicators, the activation command for
	// buttons.
	Script string

	// Text is the static content for text fields and the label for
	// buttons.
	Text string

	// ClickValue is what an action field writes on activation.
	ClickValue float64

	// Threshold sets for indicator fields, in evaluation order.
	Red    []string
	Yellow []string
	Green  []string

	// Exclude inverts threshold membership: a non-empty set matches when
	// the value is absent from it.
	Exclude bool
}

// Row is an ordered sequence of field specs; insertion order is display
// order, left to right.
type Row struct {
	Fields []FieldSpec
}

// Page is the parsed page model: an ordered sequence of rows.
type Page struct {
	Document string
	Rows     []Row
}

// NumFields counts the field declarations across all rows.
func (p Page) NumFields() int {
	n := 0
	for _, row := range p.Rows {
		n += len(row.Fields)
	}
	return n
}

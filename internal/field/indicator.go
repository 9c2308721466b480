package field

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/veskel/pvdash/internal/page"
	"github.com/veskel/pvdash/internal/pv"
)

// Category is an indicator classification outcome.
type Category int

const (
	CategoryOff Category = iota
	CategoryRed
	CategoryYellow
	CategoryGreen
	CategoryDisconnected
	CategoryInvalid
)

// IndicatorField renders a colored lamp classified from the live value,
// or from the single-line output of a classifier script. Membership is
// checked against the red set, then yellow, then green, first match
// wins; with exclude semantics a set matches when the value is absent
// from a non-empty set. Disconnection overrides any classification.
type IndicatorField struct {
	spec    page.FieldSpec
	binding *Binding

	category  Category
	scriptSeq uint64
}

// NewIndicator creates an indicator in the Off category.
func NewIndicator(spec page.FieldSpec) *IndicatorField {
	return &IndicatorField{
		spec:    spec,
		binding: NewBinding(spec.Address, spec.Precision),
	}
}

func (f *IndicatorField) Kind() page.Kind     { return page.KindIndicator }
func (f *IndicatorField) Address() pv.Address { return f.spec.Address }
func (f *IndicatorField) Selectable() bool    { return false }

// Category returns the current classification.
func (f *IndicatorField) Category() Category { return f.category }

func (f *IndicatorField) Display() (string, StyleClass) {
	switch f.category {
	case CategoryRed:
		return "", StyleLEDRed
	case CategoryYellow:
		return "", StyleLEDYellow
	case CategoryGreen:
		return "", StyleLEDGreen
	case CategoryDisconnected, CategoryInvalid:
		return "", StyleLEDInvalid
	default:
		return "", StyleLEDOff
	}
}

func (f *IndicatorField) HandleKey(Key) (bool, []Effect) { return false, nil }

func (f *IndicatorField) Apply(ev pv.Event) []Effect {
	f.binding.Apply(ev)

	if !f.binding.Connected() {
		f.category = CategoryDisconnected
		return nil
	}

	switch ev.Kind {
	case pv.EventValue:
		return f.classifyValue(ev.Value)
	case pv.EventConnected:
		// Reconnection reclassifies from the held sample so the lamp
		// does not stay dark until the next change notification.
		if v, ok := f.binding.Value(); ok {
			return f.classifyValue(v)
		}
		f.category = CategoryOff
	}
	return nil
}

func (f *IndicatorField) classifyValue(v pv.Value) []Effect {
	if f.spec.Script != "" {
		f.scriptSeq++
		return []Effect{{
			Kind:    EffectRunScript,
			Command: f.spec.Script,
			Args:    []string{renderValue(v)},
			Seq:     f.scriptSeq,
		}}
	}

	f.category = classify(renderValue(v), f.spec)
	return nil
}

// ApplyScriptResult classifies the script's single-line output. Stale
// results and multi-line output are rejected.
func (f *IndicatorField) ApplyScriptResult(seq uint64, output string, err error) {
	if seq != f.scriptSeq {
		return
	}
	if err != nil {
		f.category = CategoryInvalid
		return
	}
	if !f.binding.Connected() {
		return
	}
	f.category = classify(strings.TrimSpace(output), f.spec)
}

func (f *IndicatorField) Info() string {
	return fmt.Sprintf(
		"Widget type: LED\nPV Name:     %s\nRed:         %v\nYellow:      %v\nGreen:       %v\nExclude:     %t\nScript:      %s\n",
		f.spec.Address, f.spec.Red, f.spec.Yellow, f.spec.Green, f.spec.Exclude, f.spec.Script,
	)
}

// classify checks the rendered value against the color sets in fixed
// order. In exclude mode a non-empty set matches when the value is NOT
// a member.
func classify(rendered string, spec page.FieldSpec) Category {
	match := func(set []string) bool {
		if spec.Exclude {
			return len(set) > 0 && !contains(set, rendered)
		}
		return contains(set, rendered)
	}

	switch {
	case match(spec.Red):
		return CategoryRed
	case match(spec.Yellow):
		return CategoryYellow
	case match(spec.Green):
		return CategoryGreen
	default:
		return CategoryOff
	}
}

func contains(set []string, s string) bool {
	for _, member := range set {
		if member == s {
			return true
		}
	}
	return false
}

// renderValue produces the membership key for a live value. Enumerated
// values compare by their state string, numeric values by the same
// shortest 'g' rendering the parser uses for threshold scalars.
func renderValue(v pv.Value) string {
	if v.Text != "" {
		return v.Text
	}
	return strconv.FormatFloat(v.Number, 'g', -1, 64)
}

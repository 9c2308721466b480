package field

import (
	"fmt"
	"strings"

	"github.com/veskel/pvdash/internal/page"
	"github.com/veskel/pvdash/internal/pv"
)

// ActionField is a push button. Activation either writes a fixed click
// value to its variable or runs an interactive command, depending on how
// the field was declared.
type ActionField struct {
	spec    page.FieldSpec
	binding *Binding
}

// NewAction creates a button field.
func NewAction(spec page.FieldSpec) *ActionField {
	f := &ActionField{spec: spec}
	if spec.Address != "" {
		f.binding = NewBinding(spec.Address, spec.Precision)
	}
	return f
}

// Binding exposes the field's subscription state; nil for script-only
// buttons.
func (f *ActionField) Binding() *Binding { return f.binding }

func (f *ActionField) Kind() page.Kind     { return page.KindAction }
func (f *ActionField) Address() pv.Address { return f.spec.Address }
func (f *ActionField) Selectable() bool    { return true }

func (f *ActionField) Display() (string, StyleClass) {
	if f.binding != nil && !f.binding.Connected() {
		return f.spec.Text, StyleDisconnected
	}
	return f.spec.Text, StyleButton
}

func (f *ActionField) HandleKey(k Key) (bool, []Effect) {
	if k.Kind != KeyEnter && !(k.Kind == KeyRune && k.Rune == ' ') {
		return false, nil
	}

	if f.spec.Script != "" {
		parts := strings.Fields(f.spec.Script)
		return true, []Effect{{
			Kind:    EffectRunInteractive,
			Command: parts[0],
			Args:    parts[1:],
		}}
	}

	if f.binding == nil || !f.binding.Connected() {
		return true, nil
	}
	return true, []Effect{{
		Kind:  EffectWrite,
		Addr:  f.spec.Address,
		Value: pv.NumberValue(f.spec.ClickValue),
	}}
}

func (f *ActionField) Apply(ev pv.Event) []Effect {
	if f.binding != nil {
		f.binding.Apply(ev)
	}
	return nil
}

func (f *ActionField) ApplyScriptResult(uint64, string, error) {}

func (f *ActionField) Info() string {
	return fmt.Sprintf(
		"Widget type: button\nPV Name:     %s\nClick value: %g\nScript:      %s\n",
		f.spec.Address, f.spec.ClickValue, f.spec.Script,
	)
}

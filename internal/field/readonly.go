package field

import (
	"fmt"

	"github.com/veskel/pvdash/internal/page"
	"github.com/veskel/pvdash/internal/pv"
)

// PlotHelperCommand is the auxiliary command launched by the plot key on
// a readonly field. It receives the variable address and a sample count.
const PlotHelperCommand = "pvplot"

const plotSampleCount = "100000"

// InvalidOutputText is displayed when a formatter script violates the
// single-line output contract.
const InvalidOutputText = "Invalid output"

// ReadOnlyField displays a live variable: numeric at fixed precision,
// enumerated as the decoded label, or through an external formatter
// script run on every sample.
type ReadOnlyField struct {
	spec    page.FieldSpec
	binding *Binding

	display string
	style   StyleClass

	scriptSeq uint64
}

// NewReadOnly creates a readonly display field.
func NewReadOnly(spec page.FieldSpec) *ReadOnlyField {
	return &ReadOnlyField{
		spec:    spec,
		binding: NewBinding(spec.Address, spec.Precision),
		display: DisconnectedText,
		style:   StyleDisconnected,
	}
}

func (f *ReadOnlyField) Kind() page.Kind     { return page.KindReadOnly }
func (f *ReadOnlyField) Address() pv.Address { return f.spec.Address }

// Binding exposes the field's subscription state.
func (f *ReadOnlyField) Binding() *Binding { return f.binding }

// Selectable mirrors the original behavior: enumerated readouts are
// display-only, everything else can take focus (for the plot key).
func (f *ReadOnlyField) Selectable() bool { return !f.spec.Enum }

func (f *ReadOnlyField) Display() (string, StyleClass) {
	return f.display, f.style
}

// HandleKey launches the plot helper on 'p' for numeric readouts.
func (f *ReadOnlyField) HandleKey(k Key) (bool, []Effect) {
	if k.Kind == KeyRune && k.Rune == 'p' && !f.spec.Enum {
		return true, []Effect{{
			Kind:    EffectRunInteractive,
			Command: PlotHelperCommand,
			Args:    []string{f.spec.Address.String(), plotSampleCount},
		}}
	}
	return false, nil
}

func (f *ReadOnlyField) Apply(ev pv.Event) []Effect {
	f.binding.Apply(ev)

	if !f.binding.Connected() {
		f.display = DisconnectedText
		f.style = StyleDisconnected
		return nil
	}

	f.style = StyleReadOnly

	value, ok := f.binding.Value()
	if !ok {
		return nil
	}

	if f.spec.Script != "" {
		f.scriptSeq++
		return []Effect{{
			Kind:    EffectRunScript,
			Command: f.spec.Script,
			Args:    []string{value.Text},
			Seq:     f.scriptSeq,
		}}
	}

	if f.spec.Enum {
		f.display = value.Text
	} else {
		f.display = f.binding.FormatNumber(value.Number, f.spec.Scientific, f.spec.Unit)
	}

	return nil
}

func (f *ReadOnlyField) ApplyScriptResult(seq uint64, output string, err error) {
	// A newer sample has already requested another run; drop this one.
	if seq != f.scriptSeq {
		return
	}
	if !f.binding.Connected() {
		return
	}
	if err != nil {
		f.display = InvalidOutputText
		return
	}
	f.display = output
}

func (f *ReadOnlyField) Info() string {
	return fmt.Sprintf(
		"Widget type: getPV\nPV Name:     %s\nEnum:        %t\nPrecision:   %d\nScientific:  %t\nUnit:        %s\nScript:      %s\n",
		f.spec.Address, f.spec.Enum, f.binding.Precision(), f.spec.Scientific, f.spec.Unit, f.spec.Script,
	)
}

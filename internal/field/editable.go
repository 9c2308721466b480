package field

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/veskel/pvdash/internal/page"
	"github.com/veskel/pvdash/internal/pv"
)

// noEnumText is displayed when an enumerated variable connects without a
// string table.
const noEnumText = "No enum"

// EditableNumericField writes to a numeric or enumerated variable. It has
// two coupled states: Viewing (keys forwarded upward) and Editing
// (numeric character entry plus cursor-relative stepping). Editing is
// only reachable while the variable is connected; a disconnect discards
// any edit in progress.
type EditableNumericField struct {
	spec    page.FieldSpec
	binding *Binding

	editing bool
	buffer  string
	cursor  int

	enumIndex int
}

// NewEditableNumeric creates an editable field in the Viewing state.
func NewEditableNumeric(spec page.FieldSpec) *EditableNumericField {
	return &EditableNumericField{
		spec:    spec,
		binding: NewBinding(spec.Address, spec.Precision),
	}
}

func (f *EditableNumericField) Kind() page.Kind     { return page.KindEditableNumeric }
func (f *EditableNumericField) Address() pv.Address { return f.spec.Address }
func (f *EditableNumericField) Selectable() bool    { return true }

// Binding exposes the field's subscription state.
func (f *EditableNumericField) Binding() *Binding { return f.binding }

// Editing reports whether the field is in the Editing state.
func (f *EditableNumericField) Editing() bool { return f.editing }

// Buffer returns the raw edit text (no unit suffix).
func (f *EditableNumericField) Buffer() string { return f.buffer }

// Cursor returns the edit cursor position and whether it should be shown.
func (f *EditableNumericField) Cursor() (int, bool) {
	return f.cursor, f.editing
}

func (f *EditableNumericField) Display() (string, StyleClass) {
	if !f.binding.Connected() {
		return DisconnectedText, StyleDisconnected
	}
	if f.editing {
		return f.buffer, StyleEditing
	}
	if f.spec.Enum {
		return f.buffer, StyleEdit
	}
	return f.buffer + f.spec.Unit, StyleEdit
}

func (f *EditableNumericField) HandleKey(k Key) (bool, []Effect) {
	if !f.binding.Connected() {
		f.editing = false
		return false, nil
	}

	if k.Kind == KeyEnter {
		if f.editing {
			return true, f.commit()
		}
		f.editing = true
		f.cursor = 0
		return true, nil
	}

	if !f.editing {
		return false, nil
	}

	if f.spec.Enum {
		return f.handleEnumKey(k)
	}
	return f.handleNumericKey(k)
}

func (f *EditableNumericField) handleNumericKey(k Key) (bool, []Effect) {
	switch k.Kind {
	case KeyLeft:
		if f.cursor > 0 {
			f.cursor--
		}
		return true, nil
	case KeyRight:
		if f.cursor < len(f.buffer) {
			f.cursor++
		}
		return true, nil
	case KeyHome:
		f.cursor = 0
		return true, nil
	case KeyEnd:
		f.cursor = len(f.buffer)
		return true, nil
	case KeyUp:
		return true, f.step(+1)
	case KeyDown:
		return true, f.step(-1)
	case KeyBackspace:
		if f.cursor > 0 {
			f.buffer = f.buffer[:f.cursor-1] + f.buffer[f.cursor:]
			f.cursor--
		}
		return true, nil
	case KeyDelete:
		if f.cursor < len(f.buffer) {
			f.buffer = f.buffer[:f.cursor] + f.buffer[f.cursor+1:]
		}
		return true, nil
	case KeyRune:
		return f.insertRune(k.Rune)
	}
	return false, nil
}

// insertRune applies the editing character filter: decimal digits, at
// most one decimal point, and a minus sign only at position 0.
func (f *EditableNumericField) insertRune(r rune) (bool, []Effect) {
	switch {
	case r >= '0' && r <= '9':
	case r == '.':
		if strings.ContainsRune(f.buffer, '.') {
			return true, nil
		}
	case r == '-':
		if f.cursor != 0 || strings.HasPrefix(f.buffer, "-") {
			return true, nil
		}
	default:
		return false, nil
	}

	f.buffer = f.buffer[:f.cursor] + string(r) + f.buffer[f.cursor:]
	f.cursor++
	return true, nil
}

// stepExponent computes the power-of-ten exponent for a cursor-relative
// step. Right of the decimal point the step is the fractional place
// under the cursor; left of it (or in an integer-only buffer) the
// integer place. Steps are refused at the point itself, at a sign, and
// past the end of the buffer.
func stepExponent(buf string, cursor int) (int, bool) {
	if cursor >= len(buf) {
		return 0, false
	}
	if buf[cursor] == '.' || buf[cursor] == '-' {
		return 0, false
	}

	point := strings.IndexByte(buf, '.')
	if point < 0 {
		return len(buf) - cursor - 1, true
	}
	if point < cursor {
		return -(cursor - point), true
	}
	return point - cursor - 1, true
}

// step increments or decrements the buffer by the cursor-relative power
// of ten, re-renders it at the fixed precision, and writes the new value
// immediately.
func (f *EditableNumericField) step(dir int) []Effect {
	exp, ok := stepExponent(f.buffer, f.cursor)
	if !ok {
		return nil
	}

	val, err := strconv.ParseFloat(f.buffer, 64)
	if err != nil {
		return nil
	}

	val += float64(dir) * math.Pow(10, float64(exp))
	f.buffer = strconv.FormatFloat(val, 'f', f.binding.Precision(), 64)
	if f.cursor > len(f.buffer) {
		f.cursor = len(f.buffer)
	}

	return []Effect{{Kind: EffectWrite, Addr: f.spec.Address, Value: pv.NumberValue(val)}}
}

func (f *EditableNumericField) handleEnumKey(k Key) (bool, []Effect) {
	enums := f.binding.EnumStrings()

	switch {
	case k.Kind == KeyLeft || k.Kind == KeyRight:
		return true, nil
	case k.Kind == KeyUp:
		// Clamped at the top of the table, no wraparound.
		if f.enumIndex < len(enums)-1 {
			f.enumIndex++
			f.buffer = enums[f.enumIndex]
		}
		return true, nil
	case k.Kind == KeyDown:
		if f.enumIndex > 0 {
			f.enumIndex--
			f.buffer = enums[f.enumIndex]
		}
		return true, nil
	case k.Kind == KeyRune && k.Rune == 'p':
		// Revert the selection to the live value.
		if value, ok := f.binding.Value(); ok {
			if idx := int(value.Number); idx >= 0 && idx < len(enums) {
				f.enumIndex = idx
				f.buffer = enums[idx]
			}
		}
		return true, nil
	}
	return false, nil
}

// commit leaves the Editing state. A normal buffer is normalized to the
// fixed precision and written; a degenerate buffer (empty, bare sign,
// bare point) reverts to the binding's last known value with no write.
func (f *EditableNumericField) commit() []Effect {
	f.editing = false

	if f.spec.Enum {
		return f.commitEnum()
	}

	switch f.buffer {
	case "", "-", ".", "-.":
		f.revert()
		return nil
	}

	val, err := strconv.ParseFloat(f.buffer, 64)
	if err != nil {
		// The character filter should make this unreachable; fall back
		// to the last known good value rather than writing garbage.
		f.revert()
		return nil
	}

	f.buffer = strconv.FormatFloat(val, 'f', f.binding.Precision(), 64)

	return []Effect{{Kind: EffectWrite, Addr: f.spec.Address, Value: pv.NumberValue(val)}}
}

func (f *EditableNumericField) commitEnum() []Effect {
	enums := f.binding.EnumStrings()
	if f.enumIndex >= 0 && f.enumIndex < len(enums) && f.buffer == enums[f.enumIndex] {
		return []Effect{{
			Kind:  EffectWrite,
			Addr:  f.spec.Address,
			Value: pv.Value{Number: float64(f.enumIndex), Text: f.buffer},
		}}
	}

	// Selection no longer matches the table; fall back to the live value.
	if value, ok := f.binding.Value(); ok {
		if idx := int(value.Number); idx >= 0 && idx < len(enums) {
			f.enumIndex = idx
			f.buffer = enums[idx]
		}
	}
	return nil
}

func (f *EditableNumericField) revert() {
	value, ok := f.binding.Value()
	if !ok {
		f.buffer = ""
		f.cursor = 0
		return
	}
	f.buffer = strconv.FormatFloat(value.Number, 'f', f.binding.Precision(), 64)
	if f.cursor > len(f.buffer) {
		f.cursor = len(f.buffer)
	}
}

func (f *EditableNumericField) Apply(ev pv.Event) []Effect {
	f.binding.Apply(ev)

	if !f.binding.Connected() {
		// Disconnection discards any edit in progress; no write happens.
		f.editing = false
		f.cursor = 0
		return nil
	}

	if ev.Kind != pv.EventValue {
		return nil
	}

	if f.spec.Enum {
		enums := f.binding.EnumStrings()
		if len(enums) == 0 {
			f.buffer = noEnumText
			return nil
		}
		idx := int(ev.Value.Number)
		if idx >= 0 && idx < len(enums) {
			f.enumIndex = idx
			f.buffer = enums[idx]
		}
		return nil
	}

	f.buffer = strconv.FormatFloat(ev.Value.Number, 'f', f.binding.Precision(), 64)
	if f.cursor > len(f.buffer) {
		f.cursor = len(f.buffer)
	}
	return nil
}

func (f *EditableNumericField) ApplyScriptResult(uint64, string, error) {}

func (f *EditableNumericField) Info() string {
	return fmt.Sprintf(
		"Widget type: setPV\nPV Name:     %s\nEnum:        %t\nPrecision:   %d\nScientific:  %t\nUnit:        %s\n",
		f.spec.Address, f.spec.Enum, f.binding.Precision(), f.spec.Scientific, f.spec.Unit,
	)
}

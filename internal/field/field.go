package field

import (
	"fmt"

	"github.com/veskel/pvdash/internal/page"
	"github.com/veskel/pvdash/internal/pv"
)

// DisconnectedText is the placeholder displayed whenever a field's
// variable is unreachable.
const DisconnectedText = "Disconnected"

// KeyKind identifies an input event delivered to a field model. Fields
// consume this small vocabulary instead of a toolkit key type so the
// engine stays independent of the rendering layer.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyHome
	KeyEnd
	KeyBackspace
	KeyDelete
)

// Key is one keystroke. Rune is set only for KeyRune.
type Key struct {
	Kind KeyKind
	Rune rune
}

// Rune builds a printable-character key.
func Rune(r rune) Key { return Key{Kind: KeyRune, Rune: r} }

// StyleClass names the visual state of a cell. The rendering layer maps
// classes to its palette; field models never touch styling directly.
type StyleClass int

const (
	StyleNone StyleClass = iota
	StyleStatic
	StyleDisconnected
	StyleReadOnly
	StyleEdit
	StyleEditing
	StyleLEDOff
	StyleLEDRed
	StyleLEDYellow
	StyleLEDGreen
	StyleLEDInvalid
	StyleButton
)

// EffectKind discriminates the side effects a field may request. Fields
// never perform I/O themselves; they hand effects to the runtime, which
// executes them on its own terms and feeds results back.
type EffectKind int

const (
	// EffectWrite asks the runtime to write Value to Addr, bounded by
	// the connection timeout.
	EffectWrite EffectKind = iota
	// EffectRunScript asks the runtime to run an auxiliary command and
	// deliver its single line of output to ApplyScriptResult.
	EffectRunScript
	// EffectRunInteractive asks the runtime to run a command that needs
	// the terminal, releasing and reacquiring the screen around it.
	EffectRunInteractive
)

// Effect is one requested side effect.
type Effect struct {
	Kind    EffectKind
	Addr    pv.Address
	Value   pv.Value
	Command string
	Args    []string
	Seq     uint64 // pairs script runs with their results
}

// Field is the capability set every cell implements. All methods are
// called from the runtime's single event loop; implementations hold no
// locks.
type Field interface {
	// Kind reports the declared variant.
	Kind() page.Kind

	// Address is the bound variable, or "" for unbound fields.
	Address() pv.Address

	// Selectable reports whether the cell can take focus.
	Selectable() bool

	// Display returns the current cell text and its style class.
	Display() (string, StyleClass)

	// HandleKey processes one keystroke for the focused field. A false
	// handled result forwards the key upward (focus navigation, quit).
	HandleKey(k Key) (handled bool, effects []Effect)

	// Apply folds one subscription event into the field's state and may
	// request follow-up effects (script-backed fields re-run their
	// command on every sample).
	Apply(ev pv.Event) []Effect

	// ApplyScriptResult delivers the outcome of an EffectRunScript run.
	// seq identifies the originating effect; stale results are ignored.
	ApplyScriptResult(seq uint64, output string, err error)

	// Info is the human-readable field description shown in the info
	// overlay.
	Info() string
}

// New is the total mapping from a parsed spec to its field model. The
// parser has already rejected unknown kinds, so this cannot fail.
func New(spec page.FieldSpec) Field {
	switch spec.Kind {
	case page.KindStatic:
		return NewStatic(spec)
	case page.KindDivider:
		return NewDivider(spec)
	case page.KindReadOnly:
		return NewReadOnly(spec)
	case page.KindEditableNumeric:
		return NewEditableNumeric(spec)
	case page.KindIndicator:
		return NewIndicator(spec)
	case page.KindAction:
		return NewAction(spec)
	default:
		// Unreachable given a parsed spec; a static cell naming the
		// problem beats a panic in a running control screen.
		return NewStatic(page.FieldSpec{
			Kind:  page.KindStatic,
			Width: spec.Width,
			Text:  fmt.Sprintf("bad kind %d", spec.Kind),
		})
	}
}

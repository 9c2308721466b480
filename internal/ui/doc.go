// Package ui renders a parsed page as a live terminal dashboard.
//
// This package uses Bubble Tea and Lipgloss. The Model owns the page's
// field grid and is the single writer of all field state: provider
// events, keystrokes, script results, and write outcomes all arrive as
// messages on the update loop, and every side effect a field requests
// (variable writes, classifier scripts, interactive helpers) is executed
// as a bounded command whose result comes back the same way.
//
// # Architecture
//
//   - Model: grid of field models built from page.FieldSpec declarations
//   - DocumentWatcher: fsnotify-based live reload of the page document
//   - styles: palette and StyleClass to Lipgloss mapping
//   - keymap: global bindings rendered as the footer legend
//
// Focus moves over selectable fields with the arrow keys; the focused
// field gets first refusal on every keystroke, so an editable field in
// its editing state consumes arrows, digits, and steps before the grid
// navigation sees them.
//
// # Reloading
//
// When the page document changes on disk the model releases every
// subscription exactly once, rebuilds the grid, and resubscribes. A
// generation counter invalidates in-flight command results from the
// previous page.
package ui

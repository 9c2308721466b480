package ui

import (
	"time"

	"github.com/veskel/pvdash/internal/pv"
)

// fieldRef locates one field model in the page grid.
type fieldRef struct {
	row int
	col int
}

// pvEventMsg carries one provider event into the update loop.
type pvEventMsg struct {
	event pv.Event
	ok    bool // false when the provider's event channel closed
}

// tickMsg drives the periodic repaint.
type tickMsg time.Time

// reloadMsg reports that the page document changed on disk.
type reloadMsg struct{}

// watchErrMsg reports a document watcher failure.
type watchErrMsg struct {
	err error
}

// writeDoneMsg reports the outcome of a bounded variable write. gen
// pairs the result with the page generation that issued it.
type writeDoneMsg struct {
	ref  fieldRef
	addr pv.Address
	err  error
	gen  uint64
}

// scriptDoneMsg reports the outcome of an auxiliary script run.
type scriptDoneMsg struct {
	ref    fieldRef
	seq    uint64
	output string
	err    error
	gen    uint64
}

// execFinishedMsg reports that an interactive command released the
// terminal back to the dashboard.
type execFinishedMsg struct {
	err error
}

package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/veskel/pvdash/internal/exec"
	"github.com/veskel/pvdash/internal/field"
	"github.com/veskel/pvdash/internal/logging"
	"github.com/veskel/pvdash/internal/macro"
	"github.com/veskel/pvdash/internal/page"
	"github.com/veskel/pvdash/internal/pv"
)

// DefaultRefresh is the repaint cadence when no interval is given.
const DefaultRefresh = 500 * time.Millisecond

// headerRow is the pseudo row index for fields of the header document.
const headerRow = -1

// Config carries everything the dashboard needs to run one page.
type Config struct {
	// Document is the resolved path of the page document.
	Document string

	// Header is the resolved path of an optional header document whose
	// single row is pinned above the page.
	Header string

	// Refresh is the periodic repaint interval.
	Refresh time.Duration

	// Macros are the positional macro substitution values.
	Macros []string

	// Provider delivers variable subscriptions and writes.
	Provider pv.Provider

	// Runner executes auxiliary scripts.
	Runner *exec.Runner

	// Watch enables live reload when the page document changes on disk.
	Watch bool
}

// Model is the dashboard's Bubble Tea model. All state is mutated from
// the update loop only; commands communicate results back as messages.
type Model struct {
	cfg Config

	page         page.Page
	fields       [][]field.Field
	headerSpecs  page.Row
	headerFields []field.Field

	subs   map[pv.SubID]fieldRef
	subIDs []pv.SubID

	// gen invalidates in-flight command results across page reloads.
	gen uint64

	focus    fieldRef
	hasFocus bool

	showInfo bool
	infoText string

	width  int
	height int

	help help.Model
	keys keyMap

	watcher *DocumentWatcher
	err     error
}

// New loads the page (and header, if configured) and subscribes every
// bound field. The returned model is ready to hand to tea.NewProgram.
func New(cfg Config) (*Model, error) {
	if cfg.Refresh <= 0 {
		cfg.Refresh = DefaultRefresh
	}

	m := &Model{
		cfg:  cfg,
		subs: make(map[pv.SubID]fieldRef),
		help: help.New(),
		keys: newKeyMap(),
	}
	m.width, m.height = GetTerminalSize()

	if err := m.loadPage(); err != nil {
		return nil, err
	}

	if cfg.Watch {
		w, err := NewDocumentWatcher(cfg.Document)
		if err != nil {
			logging.Warn("document watch unavailable", zap.Error(err))
		} else {
			m.watcher = w
		}
	}

	return m, nil
}

// Close releases the model's subscriptions and watcher.
func (m *Model) Close() {
	m.unsubscribeAll()
	if m.watcher != nil {
		m.watcher.Close()
	}
}

// loadPage (re)reads the page and header documents, rebuilds the field
// grid, and swaps the variable subscriptions over. Subscriptions of the
// previous page are released exactly once, before the new ones are made.
func (m *Model) loadPage() error {
	pg, err := m.parseDocument(m.cfg.Document)
	if err != nil {
		return err
	}

	var headerSpecs page.Row
	var headerFields []field.Field
	if m.cfg.Header != "" {
		row, err := m.parseHeader(m.cfg.Header)
		if err != nil {
			return err
		}
		headerSpecs = row
		headerFields = make([]field.Field, len(row.Fields))
		for i, spec := range row.Fields {
			headerFields[i] = field.New(spec)
		}
	}

	m.unsubscribeAll()
	m.gen++

	m.page = pg
	m.headerSpecs = headerSpecs
	m.headerFields = headerFields
	m.fields = make([][]field.Field, len(pg.Rows))
	for r, row := range pg.Rows {
		m.fields[r] = make([]field.Field, len(row.Fields))
		for c, spec := range row.Fields {
			m.fields[r][c] = field.New(spec)
		}
	}

	for i, spec := range headerSpecs.Fields {
		m.bind(fieldRef{headerRow, i}, spec)
	}
	for r, row := range pg.Rows {
		for c, spec := range row.Fields {
			m.bind(fieldRef{r, c}, spec)
		}
	}

	m.focus, m.hasFocus = m.firstSelectable()
	m.showInfo = false
	return nil
}

func (m *Model) parseDocument(path string) (page.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return page.Page{}, err
	}
	name := filepath.Base(path)
	text, warnings := macro.Expand(name, string(data), m.cfg.Macros)
	for _, w := range warnings {
		logging.Warn("macro expansion", zap.String("warning", w.String()))
	}
	return page.ParsePage(name, []byte(text))
}

func (m *Model) parseHeader(path string) (page.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return page.Row{}, err
	}
	name := filepath.Base(path)
	text, warnings := macro.Expand(name, string(data), m.cfg.Macros)
	for _, w := range warnings {
		logging.Warn("macro expansion", zap.String("warning", w.String()))
	}
	return page.ParseHeader(name, []byte(text))
}

func (m *Model) bind(ref fieldRef, spec page.FieldSpec) {
	if !spec.Kind.HasBinding() || spec.Address == "" {
		return
	}
	id, err := m.cfg.Provider.Monitor(spec.Address)
	if err != nil {
		logging.Warn("monitor failed",
			zap.String("pv", spec.Address.String()), zap.Error(err))
		return
	}
	m.subs[id] = ref
	m.subIDs = append(m.subIDs, id)
}

func (m *Model) unsubscribeAll() {
	for _, id := range m.subIDs {
		m.cfg.Provider.Unmonitor(id)
	}
	m.subIDs = nil
	m.subs = make(map[pv.SubID]fieldRef)
}

func (m *Model) fieldAt(ref fieldRef) (field.Field, bool) {
	if ref.row == headerRow {
		if ref.col >= 0 && ref.col < len(m.headerFields) {
			return m.headerFields[ref.col], true
		}
		return nil, false
	}
	if ref.row >= 0 && ref.row < len(m.fields) && ref.col >= 0 && ref.col < len(m.fields[ref.row]) {
		return m.fields[ref.row][ref.col], true
	}
	return nil, false
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listenEvents(), m.tick()}
	if w := m.watchChanges(); w != nil {
		cmds = append(cmds, w)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case pvEventMsg:
		if !msg.ok {
			// Provider closed; nothing further will arrive.
			return m, nil
		}
		cmds := []tea.Cmd{m.listenEvents()}
		if ref, ok := m.subs[msg.event.Sub]; ok {
			if f, ok := m.fieldAt(ref); ok {
				logging.Debug("pv event",
					zap.String("pv", f.Address().String()),
					zap.Int("kind", int(msg.event.Kind)),
					zap.Float64("value", msg.event.Value.Number))
				cmds = append(cmds, m.execEffects(ref, f.Apply(msg.event))...)
			}
		}
		return m, tea.Batch(cmds...)

	case tickMsg:
		return m, m.tick()

	case reloadMsg:
		if err := m.loadPage(); err != nil {
			m.err = err
			logging.Error("page reload failed", zap.Error(err))
		} else {
			m.err = nil
			logging.Info("page reloaded", zap.String("document", m.cfg.Document))
		}
		return m, m.watchChanges()

	case watchErrMsg:
		logging.Warn("document watcher", zap.Error(msg.err))
		return m, m.watchChanges()

	case writeDoneMsg:
		if msg.gen != m.gen || msg.err == nil {
			return m, nil
		}
		logging.Error("write failed",
			zap.String("pv", msg.addr.String()), zap.Error(msg.err))
		if pv.IsTimeout(msg.err) {
			if f, ok := m.fieldAt(msg.ref); ok {
				if b, ok := f.(interface{ Binding() *field.Binding }); ok && b.Binding() != nil {
					b.Binding().ForceDisconnected()
				}
			}
		}
		return m, nil

	case scriptDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			logging.Warn("field script failed", zap.Error(msg.err))
		}
		if f, ok := m.fieldAt(msg.ref); ok {
			f.ApplyScriptResult(msg.seq, msg.output, msg.err)
		}
		return m, nil

	case execFinishedMsg:
		if msg.err != nil {
			logging.Warn("interactive command failed", zap.Error(msg.err))
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key dismisses the info overlay.
	if m.showInfo {
		m.showInfo = false
		return m, nil
	}

	// The focused field gets first refusal on every key.
	if fk, ok := translateKey(msg); ok && m.hasFocus {
		if f, found := m.fieldAt(m.focus); found {
			if handled, effects := f.HandleKey(fk); handled {
				return m, tea.Batch(m.execEffects(m.focus, effects)...)
			}
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Repaint):
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.Info):
		if f, found := m.fieldAt(m.focus); found && m.hasFocus {
			m.infoText = f.Info()
			m.showInfo = true
		}
		return m, nil
	}

	switch msg.String() {
	case "up":
		m.moveFocusVertical(-1)
	case "down":
		m.moveFocusVertical(1)
	case "left":
		m.moveFocusHorizontal(-1)
	case "right":
		m.moveFocusHorizontal(1)
	case "tab":
		m.moveFocusNext(1)
	case "shift+tab":
		m.moveFocusNext(-1)
	}
	return m, nil
}

// translateKey maps a toolkit keystroke to the field key vocabulary.
func translateKey(msg tea.KeyMsg) (field.Key, bool) {
	switch msg.Type {
	case tea.KeyUp:
		return field.Key{Kind: field.KeyUp}, true
	case tea.KeyDown:
		return field.Key{Kind: field.KeyDown}, true
	case tea.KeyLeft:
		return field.Key{Kind: field.KeyLeft}, true
	case tea.KeyRight:
		return field.Key{Kind: field.KeyRight}, true
	case tea.KeyEnter:
		return field.Key{Kind: field.KeyEnter}, true
	case tea.KeyHome:
		return field.Key{Kind: field.KeyHome}, true
	case tea.KeyEnd:
		return field.Key{Kind: field.KeyEnd}, true
	case tea.KeyBackspace:
		return field.Key{Kind: field.KeyBackspace}, true
	case tea.KeyDelete:
		return field.Key{Kind: field.KeyDelete}, true
	case tea.KeySpace:
		return field.Rune(' '), true
	case tea.KeyRunes:
		if len(msg.Runes) == 1 {
			return field.Rune(msg.Runes[0]), true
		}
	}
	return field.Key{}, false
}

// execEffects turns requested field effects into bounded commands.
func (m *Model) execEffects(ref fieldRef, effects []field.Effect) []tea.Cmd {
	var cmds []tea.Cmd
	for _, eff := range effects {
		switch eff.Kind {
		case field.EffectWrite:
			cmds = append(cmds, m.writeCmd(ref, eff))
		case field.EffectRunScript:
			cmds = append(cmds, m.scriptCmd(ref, eff))
		case field.EffectRunInteractive:
			cmd := m.cfg.Runner.Command(eff.Command, eff.Args...)
			cmds = append(cmds, tea.ExecProcess(cmd, func(err error) tea.Msg {
				return execFinishedMsg{err: err}
			}))
		}
	}
	return cmds
}

func (m *Model) writeCmd(ref fieldRef, eff field.Effect) tea.Cmd {
	provider := m.cfg.Provider
	gen := m.gen
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pv.DefaultTimeout)
		defer cancel()
		err := provider.Put(ctx, eff.Addr, eff.Value)
		return writeDoneMsg{ref: ref, addr: eff.Addr, err: err, gen: gen}
	}
}

func (m *Model) scriptCmd(ref fieldRef, eff field.Effect) tea.Cmd {
	runner := m.cfg.Runner
	gen := m.gen
	return func() tea.Msg {
		out, err := runner.RunLine(context.Background(), eff.Command, eff.Args...)
		return scriptDoneMsg{ref: ref, seq: eff.Seq, output: out, err: err, gen: gen}
	}
}

func (m *Model) listenEvents() tea.Cmd {
	events := m.cfg.Provider.Events()
	return func() tea.Msg {
		ev, ok := <-events
		return pvEventMsg{event: ev, ok: ok}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.cfg.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) watchChanges() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	w := m.watcher
	return func() tea.Msg {
		select {
		case <-w.Changes():
			return reloadMsg{}
		case err := <-w.Errors():
			return watchErrMsg{err: err}
		}
	}
}

func (m *Model) firstSelectable() (fieldRef, bool) {
	for r := range m.fields {
		for c, f := range m.fields[r] {
			if f.Selectable() {
				return fieldRef{r, c}, true
			}
		}
	}
	return fieldRef{}, false
}

func (m *Model) moveFocusHorizontal(dir int) {
	if !m.hasFocus || m.focus.row < 0 {
		return
	}
	row := m.fields[m.focus.row]
	for c := m.focus.col + dir; c >= 0 && c < len(row); c += dir {
		if row[c].Selectable() {
			m.focus.col = c
			return
		}
	}
}

func (m *Model) moveFocusVertical(dir int) {
	if !m.hasFocus {
		return
	}
	for r := m.focus.row + dir; r >= 0 && r < len(m.fields); r += dir {
		if c, ok := nearestSelectable(m.fields[r], m.focus.col); ok {
			m.focus = fieldRef{r, c}
			return
		}
	}
}

// moveFocusNext walks the grid in reading order.
func (m *Model) moveFocusNext(dir int) {
	if !m.hasFocus {
		return
	}
	refs := make([]fieldRef, 0, m.page.NumFields())
	for r := range m.fields {
		for c, f := range m.fields[r] {
			if f.Selectable() {
				refs = append(refs, fieldRef{r, c})
			}
		}
	}
	for i, ref := range refs {
		if ref == m.focus {
			next := (i + dir + len(refs)) % len(refs)
			m.focus = refs[next]
			return
		}
	}
}

func nearestSelectable(row []field.Field, col int) (int, bool) {
	best, found := 0, false
	for c, f := range row {
		if !f.Selectable() {
			continue
		}
		if !found || abs(c-col) < abs(best-col) {
			best, found = c, true
		}
	}
	return best, found
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// View implements tea.Model
func (m *Model) View() string {
	if m.showInfo {
		return overlayStyle.Render(m.infoText) + "\n" +
			footerStyle.Render("press any key to close")
	}

	var b strings.Builder

	if len(m.headerFields) > 0 {
		b.WriteString(headerStyle.Render(m.renderRow(headerRow, m.headerSpecs.Fields, m.headerFields)))
		b.WriteString("\n")
	}

	for r, row := range m.page.Rows {
		b.WriteString(m.renderRow(r, row.Fields, m.fields[r]))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(classStyle(field.StyleDisconnected).Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m *Model) renderRow(rowIdx int, specs []page.FieldSpec, flds []field.Field) string {
	cells := make([]string, 0, len(flds))
	for c, f := range flds {
		cells = append(cells, m.renderCell(fieldRef{rowIdx, c}, specs[c], f))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m *Model) renderCell(ref fieldRef, spec page.FieldSpec, f field.Field) string {
	text, class := f.Display()
	focused := m.hasFocus && ref == m.focus

	style := classStyle(class).
		Width(spec.Width).
		MaxWidth(spec.Width).
		Align(alignPosition(spec.Align))

	if ef, ok := f.(*field.EditableNumericField); ok && focused {
		if cursor, show := ef.Cursor(); show {
			return style.Render(renderWithCursor(text, cursor))
		}
	}

	if focused {
		style = style.Background(AccentColor).Foreground(TextColor)
	}
	return style.Render(text)
}

// renderWithCursor reverses the cell under the edit cursor; a cursor
// past the end of the buffer shows as a reversed trailing space.
func renderWithCursor(text string, cursor int) string {
	runes := []rune(text)
	if cursor >= len(runes) {
		return text + cursorStyle.Render(" ")
	}
	return string(runes[:cursor]) +
		cursorStyle.Render(string(runes[cursor])) +
		string(runes[cursor+1:])
}

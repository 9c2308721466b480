package field

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veskel/pvdash/internal/page"
	"github.com/veskel/pvdash/internal/pv"
)

func connected(meta *pv.Meta) pv.Event {
	return pv.Event{Kind: pv.EventConnected, Meta: meta}
}

func sample(n float64) pv.Event {
	return pv.Event{Kind: pv.EventValue, Value: pv.NumberValue(n)}
}

func newConnectedEditable(t *testing.T, spec page.FieldSpec, meta *pv.Meta, initial float64) *EditableNumericField {
	t.Helper()
	f := NewEditableNumeric(spec)
	f.Apply(connected(meta))
	f.Apply(sample(initial))
	return f
}

func TestStepExponent(t *testing.T) {
	tests := []struct {
		buf    string
		cursor int
		exp    int
		ok     bool
	}{
		{"1250", 0, 3, true},
		{"1250", 3, 0, true},
		{"12.50", 0, 1, true},
		{"12.50", 1, 0, true},
		{"12.50", 2, 0, false}, // decimal point
		{"12.50", 3, -1, true},
		{"12.50", 4, -2, true},
		{"-5.0", 0, 0, false}, // minus sign
		{"12.50", 5, 0, false},
		{"12.50", 9, 0, false},
	}
	for _, tt := range tests {
		exp, ok := stepExponent(tt.buf, tt.cursor)
		assert.Equal(t, tt.ok, ok, "%q cursor %d", tt.buf, tt.cursor)
		if tt.ok {
			assert.Equal(t, tt.exp, exp, "%q cursor %d", tt.buf, tt.cursor)
		}
	}
}

func TestStepWritesImmediately(t *testing.T) {
	f := newConnectedEditable(t, page.FieldSpec{Address: "tec0:temp_sp", Precision: 2}, nil, 12.5)
	require.Equal(t, "12.50", f.Buffer())

	handled, _ := f.HandleKey(Key{Kind: KeyEnter})
	require.True(t, handled)
	require.True(t, f.Editing())

	// Cursor 0 steps the tens place.
	handled, effects := f.HandleKey(Key{Kind: KeyUp})
	require.True(t, handled)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectWrite, effects[0].Kind)
	assert.Equal(t, pv.Address("tec0:temp_sp"), effects[0].Addr)
	assert.Equal(t, 22.5, effects[0].Value.Number)
	assert.Equal(t, "22.50", f.Buffer())

	// First fractional place.
	for i := 0; i < 3; i++ {
		f.HandleKey(Key{Kind: KeyRight})
	}
	_, effects = f.HandleKey(Key{Kind: KeyUp})
	require.Len(t, effects, 1)
	assert.InDelta(t, 22.6, effects[0].Value.Number, 1e-9)
	assert.Equal(t, "22.60", f.Buffer())

	// Stepping at the decimal point is a no-op but stays handled.
	f.HandleKey(Key{Kind: KeyLeft})
	handled, effects = f.HandleKey(Key{Kind: KeyDown})
	assert.True(t, handled)
	assert.Empty(t, effects)
	assert.Equal(t, "22.60", f.Buffer())
}

func TestCommitNormalizesAndWrites(t *testing.T) {
	f := newConnectedEditable(t, page.FieldSpec{Address: "tec0:temp_sp", Precision: 2}, nil, 12.5)

	f.HandleKey(Key{Kind: KeyEnter})
	f.HandleKey(Key{Kind: KeyEnd})
	for i := 0; i < 5; i++ {
		f.HandleKey(Key{Kind: KeyBackspace})
	}
	require.Equal(t, "", f.Buffer())

	for _, r := range "3.5" {
		handled, _ := f.HandleKey(Rune(r))
		require.True(t, handled)
	}

	_, effects := f.HandleKey(Key{Kind: KeyEnter})
	require.Len(t, effects, 1)
	assert.Equal(t, EffectWrite, effects[0].Kind)
	assert.Equal(t, 3.5, effects[0].Value.Number)
	assert.False(t, f.Editing())
	assert.Equal(t, "3.50", f.Buffer())
}

func TestDegenerateBufferRevertsWithoutWrite(t *testing.T) {
	for _, degenerate := range []string{"", "-", ".", "-."} {
		f := newConnectedEditable(t, page.FieldSpec{Address: "tec0:temp_sp", Precision: 2}, nil, 12.5)

		f.HandleKey(Key{Kind: KeyEnter})
		f.HandleKey(Key{Kind: KeyEnd})
		for i := 0; i < 5; i++ {
			f.HandleKey(Key{Kind: KeyBackspace})
		}
		for _, r := range degenerate {
			f.HandleKey(Rune(r))
		}

		_, effects := f.HandleKey(Key{Kind: KeyEnter})
		assert.Empty(t, effects, "buffer %q", degenerate)
		assert.Equal(t, "12.50", f.Buffer(), "buffer %q", degenerate)
		assert.False(t, f.Editing())
	}
}

func TestEditingCharacterFilter(t *testing.T) {
	f := newConnectedEditable(t, page.FieldSpec{Address: "tec0:temp_sp", Precision: 2}, nil, 12.5)
	f.HandleKey(Key{Kind: KeyEnter})

	// Letters are not consumed.
	handled, _ := f.HandleKey(Rune('x'))
	assert.False(t, handled)
	assert.Equal(t, "12.50", f.Buffer())

	// A second decimal point is swallowed without insertion.
	handled, _ = f.HandleKey(Rune('.'))
	assert.True(t, handled)
	assert.Equal(t, "12.50", f.Buffer())

	// Minus only at position 0.
	f.HandleKey(Key{Kind: KeyRight})
	handled, _ = f.HandleKey(Rune('-'))
	assert.True(t, handled)
	assert.Equal(t, "12.50", f.Buffer())

	f.HandleKey(Key{Kind: KeyHome})
	f.HandleKey(Rune('-'))
	assert.Equal(t, "-12.50", f.Buffer())

	// Only one leading minus.
	f.HandleKey(Key{Kind: KeyHome})
	f.HandleKey(Rune('-'))
	assert.Equal(t, "-12.50", f.Buffer())
}

func TestDisconnectDiscardsEdit(t *testing.T) {
	f := newConnectedEditable(t, page.FieldSpec{Address: "tec0:temp_sp", Precision: 2}, nil, 12.5)

	f.HandleKey(Key{Kind: KeyEnter})
	f.HandleKey(Rune('9'))
	require.Equal(t, "912.50", f.Buffer())

	effects := f.Apply(pv.Event{Kind: pv.EventDisconnected})
	assert.Empty(t, effects)
	assert.False(t, f.Editing())

	text, style := f.Display()
	assert.Equal(t, DisconnectedText, text)
	assert.Equal(t, StyleDisconnected, style)

	// Keys are not consumed while disconnected.
	handled, _ := f.HandleKey(Key{Kind: KeyEnter})
	assert.False(t, handled)
}

func TestEnumCyclingClampsAndCommits(t *testing.T) {
	meta := &pv.Meta{EnumStrings: []string{"Off", "On", "Auto"}}
	f := NewEditableNumeric(page.FieldSpec{Address: "tec0:mode", Enum: true, Precision: -1})
	f.Apply(connected(meta))
	f.Apply(sample(1))
	require.Equal(t, "On", f.Buffer())

	f.HandleKey(Key{Kind: KeyEnter})

	f.HandleKey(Key{Kind: KeyUp})
	assert.Equal(t, "Auto", f.Buffer())
	f.HandleKey(Key{Kind: KeyUp})
	assert.Equal(t, "Auto", f.Buffer(), "clamped at the last entry")

	for i := 0; i < 4; i++ {
		f.HandleKey(Key{Kind: KeyDown})
	}
	assert.Equal(t, "Off", f.Buffer(), "clamped at the first entry")

	// 'p' reverts the selection to the live value.
	f.HandleKey(Rune('p'))
	assert.Equal(t, "On", f.Buffer())

	f.HandleKey(Key{Kind: KeyUp})
	_, effects := f.HandleKey(Key{Kind: KeyEnter})
	require.Len(t, effects, 1)
	assert.Equal(t, EffectWrite, effects[0].Kind)
	assert.Equal(t, 2.0, effects[0].Value.Number)
	assert.Equal(t, "Auto", effects[0].Value.Text)
}

func TestIndicatorClassification(t *testing.T) {
	tests := []struct {
		name     string
		spec     page.FieldSpec
		rendered string
		want     Category
	}{
		{"red wins first", page.FieldSpec{Red: []string{"1"}, Yellow: []string{"1"}}, "1", CategoryRed},
		{"yellow", page.FieldSpec{Red: []string{"2"}, Yellow: []string{"1"}}, "1", CategoryYellow},
		{"green", page.FieldSpec{Green: []string{"1"}}, "1", CategoryGreen},
		{"no match is off", page.FieldSpec{Red: []string{"2"}}, "1", CategoryOff},
		{"exclude matches absence", page.FieldSpec{Red: []string{"0"}, Exclude: true}, "5", CategoryRed},
		{"exclude with member present", page.FieldSpec{Red: []string{"0"}, Green: []string{"1"}, Exclude: true}, "0", CategoryGreen},
		{"empty set never matches in exclude", page.FieldSpec{Exclude: true}, "5", CategoryOff},
		{"enum label membership", page.FieldSpec{Green: []string{"Running"}}, "Running", CategoryGreen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.rendered, tt.spec))
		})
	}
}

func TestIndicatorDisconnectOverrides(t *testing.T) {
	f := NewIndicator(page.FieldSpec{Address: "tec0:state", Green: []string{"1"}, Precision: -1})
	f.Apply(connected(nil))
	f.Apply(sample(1))
	require.Equal(t, CategoryGreen, f.Category())

	f.Apply(pv.Event{Kind: pv.EventDisconnected})
	assert.Equal(t, CategoryDisconnected, f.Category())
}

func TestIndicatorReclassifiesOnReconnect(t *testing.T) {
	f := NewIndicator(page.FieldSpec{Address: "tec0:state", Green: []string{"1"}, Precision: -1})
	f.Apply(connected(nil))
	f.Apply(sample(1))
	require.Equal(t, CategoryGreen, f.Category())

	f.Apply(pv.Event{Kind: pv.EventDisconnected})
	require.Equal(t, CategoryDisconnected, f.Category())

	// The held sample drives the lamp again as soon as the link is back.
	f.Apply(connected(nil))
	assert.Equal(t, CategoryGreen, f.Category())
}

func TestIndicatorReconnectBeforeFirstSample(t *testing.T) {
	f := NewIndicator(page.FieldSpec{Address: "tec0:state", Green: []string{"1"}, Precision: -1})
	f.Apply(connected(nil))
	f.Apply(pv.Event{Kind: pv.EventDisconnected})
	require.Equal(t, CategoryDisconnected, f.Category())

	// With no sample yet there is nothing to classify.
	f.Apply(connected(nil))
	assert.Equal(t, CategoryOff, f.Category())
}

func TestIndicatorScriptRerunsOnReconnect(t *testing.T) {
	f := NewIndicator(page.FieldSpec{Address: "tec0:state", Script: "check_state", Green: []string{"ok"}, Precision: -1})
	f.Apply(connected(nil))

	effects := f.Apply(sample(3))
	require.Len(t, effects, 1)
	f.ApplyScriptResult(effects[0].Seq, "ok", nil)
	require.Equal(t, CategoryGreen, f.Category())

	f.Apply(pv.Event{Kind: pv.EventDisconnected})
	require.Equal(t, CategoryDisconnected, f.Category())

	effects = f.Apply(connected(nil))
	require.Len(t, effects, 1)
	require.Equal(t, EffectRunScript, effects[0].Kind)
	assert.Equal(t, []string{"3"}, effects[0].Args)
	f.ApplyScriptResult(effects[0].Seq, "ok", nil)
	assert.Equal(t, CategoryGreen, f.Category())
}

func TestRenderValueMatchesParsedThresholds(t *testing.T) {
	// Thresholds parsed from YAML scalars and live numeric samples must
	// render identically, including at magnitudes that leave plain
	// decimal notation.
	assert.Equal(t, "1e+21", renderValue(pv.Value{Number: 1e21}))

	f := NewIndicator(page.FieldSpec{Address: "tec0:flux", Green: []string{"1e+21"}, Precision: -1})
	f.Apply(connected(nil))
	f.Apply(pv.Event{Kind: pv.EventValue, Value: pv.Value{Number: 1e21}})
	assert.Equal(t, CategoryGreen, f.Category())
}

func TestIndicatorScriptResults(t *testing.T) {
	f := NewIndicator(page.FieldSpec{Address: "tec0:state", Script: "check_state", Red: []string{"bad"}, Precision: -1})
	f.Apply(connected(nil))

	effects := f.Apply(sample(3))
	require.Len(t, effects, 1)
	require.Equal(t, EffectRunScript, effects[0].Kind)
	assert.Equal(t, "check_state", effects[0].Command)
	assert.Equal(t, []string{"3"}, effects[0].Args)
	seq := effects[0].Seq

	f.ApplyScriptResult(seq, "bad", nil)
	assert.Equal(t, CategoryRed, f.Category())

	// A failed run invalidates the lamp.
	effects = f.Apply(sample(4))
	require.Len(t, effects, 1)
	f.ApplyScriptResult(effects[0].Seq, "", errors.New("exit status 1"))
	assert.Equal(t, CategoryInvalid, f.Category())

	// Stale results are dropped.
	f.ApplyScriptResult(seq, "bad", nil)
	assert.Equal(t, CategoryInvalid, f.Category())
}

func TestBindingPrecisionResolution(t *testing.T) {
	// Document override wins over provider metadata.
	b := NewBinding("tec0:temp", 2)
	b.Apply(connected(&pv.Meta{Precision: 5, HasPrecision: true}))
	assert.Equal(t, 2, b.Precision())

	// Without an override the first reported precision sticks.
	b = NewBinding("tec0:temp", -1)
	b.Apply(connected(&pv.Meta{Precision: 3, HasPrecision: true}))
	b.Apply(connected(&pv.Meta{Precision: 7, HasPrecision: true}))
	assert.Equal(t, 3, b.Precision())
}

func TestBindingLatestWins(t *testing.T) {
	b := NewBinding("tec0:temp", -1)
	b.Apply(connected(nil))
	b.Apply(sample(1))
	b.Apply(sample(2))
	v, ok := b.Value()
	require.True(t, ok)
	assert.Equal(t, 2.0, v.Number)
	assert.True(t, b.Connected())
}

func TestFactoryCoversAllKinds(t *testing.T) {
	specs := []page.FieldSpec{
		{Kind: page.KindStatic, Text: "label"},
		{Kind: page.KindDivider},
		{Kind: page.KindReadOnly, Address: "tec0:temp", Precision: -1},
		{Kind: page.KindEditableNumeric, Address: "tec0:temp_sp", Precision: -1},
		{Kind: page.KindIndicator, Address: "tec0:state", Precision: -1},
		{Kind: page.KindAction, Address: "tec0:reset", ClickValue: 1, Precision: -1},
	}
	for _, spec := range specs {
		f := New(spec)
		require.NotNil(t, f, "kind %v", spec.Kind)
		assert.Equal(t, spec.Kind, f.Kind())
	}
}

func TestActionWritesClickValue(t *testing.T) {
	f := NewAction(page.FieldSpec{Kind: page.KindAction, Address: "tec0:reset", ClickValue: 1, Precision: -1})
	f.Apply(connected(nil))

	handled, effects := f.HandleKey(Key{Kind: KeyEnter})
	require.True(t, handled)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectWrite, effects[0].Kind)
	assert.Equal(t, 1.0, effects[0].Value.Number)

	// Disconnected buttons consume the key but write nothing.
	f.Apply(pv.Event{Kind: pv.EventDisconnected})
	handled, effects = f.HandleKey(Rune(' '))
	assert.True(t, handled)
	assert.Empty(t, effects)
}

func TestActionRunsInteractiveScript(t *testing.T) {
	f := NewAction(page.FieldSpec{Kind: page.KindAction, Script: "tec_calibrate --fast", Precision: -1})

	_, effects := f.HandleKey(Key{Kind: KeyEnter})
	require.Len(t, effects, 1)
	assert.Equal(t, EffectRunInteractive, effects[0].Kind)
	assert.Equal(t, "tec_calibrate", effects[0].Command)
	assert.Equal(t, []string{"--fast"}, effects[0].Args)
}

func TestReadOnlyDisplaysFormattedValue(t *testing.T) {
	f := NewReadOnly(page.FieldSpec{Kind: page.KindReadOnly, Address: "tec0:temp", Precision: 1, Unit: " C"})
	f.Apply(connected(nil))

	text, style := f.Display()
	assert.Equal(t, DisconnectedText, text, "no sample yet renders as disconnected")
	_ = style

	f.Apply(sample(23.456))
	text, style = f.Display()
	assert.Equal(t, "23.5 C", text)
	assert.Equal(t, StyleReadOnly, style)

	f.Apply(pv.Event{Kind: pv.EventDisconnected})
	text, style = f.Display()
	assert.Equal(t, DisconnectedText, text)
	assert.Equal(t, StyleDisconnected, style)
}

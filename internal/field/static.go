package field

import (
	"fmt"

	"github.com/veskel/pvdash/internal/page"
	"github.com/veskel/pvdash/internal/pv"
)

// StaticField is a fixed text cell with no binding.
type StaticField struct {
	spec page.FieldSpec
}

// NewStatic creates a static text field.
func NewStatic(spec page.FieldSpec) *StaticField {
	return &StaticField{spec: spec}
}

func (f *StaticField) Kind() page.Kind     { return page.KindStatic }
func (f *StaticField) Address() pv.Address { return "" }
func (f *StaticField) Selectable() bool    { return false }

func (f *StaticField) Display() (string, StyleClass) {
	return f.spec.Text, StyleStatic
}

func (f *StaticField) HandleKey(Key) (bool, []Effect) { return false, nil }
func (f *StaticField) Apply(pv.Event) []Effect        { return nil }
func (f *StaticField) ApplyScriptResult(uint64, string, error) {}

func (f *StaticField) Info() string {
	return fmt.Sprintf("Widget type: text\nText:        %s\n", f.spec.Text)
}

// DividerField is a blank spacer cell.
type DividerField struct {
	spec page.FieldSpec
}

// NewDivider creates a divider field.
func NewDivider(spec page.FieldSpec) *DividerField {
	return &DividerField{spec: spec}
}

func (f *DividerField) Kind() page.Kind     { return page.KindDivider }
func (f *DividerField) Address() pv.Address { return "" }
func (f *DividerField) Selectable() bool    { return false }

func (f *DividerField) Display() (string, StyleClass) { return "", StyleNone }

func (f *DividerField) HandleKey(Key) (bool, []Effect) { return false, nil }
func (f *DividerField) Apply(pv.Event) []Effect        { return nil }
func (f *DividerField) ApplyScriptResult(uint64, string, error) {}

func (f *DividerField) Info() string { return "Widget type: divider\n" }

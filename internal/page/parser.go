package page

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/veskel/pvdash/internal/logging"
	"github.com/veskel/pvdash/internal/pv"
)

// allowedAttrs enumerates, per kind, the attributes that may remain in a
// declaration after type, width, enable and device_name are consumed.
var allowedAttrs = map[Kind]map[string]bool{
	KindStatic:  set("text", "align"),
	KindDivider: set(),
	KindReadOnly: set(
		"pv_name", "enum", "precision", "scientific", "unit", "align", "script",
	),
	KindEditableNumeric: set(
		"pv_name", "enum", "precision", "scientific", "unit", "align",
	),
	KindIndicator: set(
		"pv_name", "enum", "red_values", "yellow_values", "green_values",
		"exclude_selection", "script",
	),
	KindAction: set("text", "pv_name", "click_value", "script", "align"),
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// ParsePage parses a page document: a YAML list of rows, each row a list
// of field declarations. Parsing is pure apart from debug tracing, and
// parsing the same document twice yields structurally equal pages.
func ParsePage(document string, data []byte) (Page, error) {
	rows, err := decodeRows(document, data)
	if err != nil {
		return Page{}, err
	}

	result := Page{Document: document}
	for i, declarations := range rows {
		logging.Debug("parsing row", zap.String("document", document), zap.Int("row", i+1))

		row, err := parseRow(document, i+1, declarations)
		if err != nil {
			return Page{}, err
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

// ParseHeader parses a header document. It uses the same schema as a page
// document but yields a single row, rendered as a fixed header outside
// the scrollable body.
func ParseHeader(document string, data []byte) (Row, error) {
	parsed, err := ParsePage(document, data)
	if err != nil {
		return Row{}, err
	}
	if len(parsed.Rows) == 0 {
		return Row{}, &ParseError{Document: document, Message: "header document contains no rows"}
	}
	if len(parsed.Rows) > 1 {
		logging.Warn("header document has multiple rows, using the first",
			zap.String("document", document), zap.Int("rows", len(parsed.Rows)))
	}

	return parsed.Rows[0], nil
}

func decodeRows(document string, data []byte) ([][]map[string]any, error) {
	var rows [][]map[string]any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, &ParseError{Document: document, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	return rows, nil
}

func parseRow(document string, rowIndex int, declarations []map[string]any) (Row, error) {
	var row Row

	for j, decl := range declarations {
		logging.Debug("parsing field",
			zap.String("document", document),
			zap.Int("row", rowIndex),
			zap.Int("field", j+1),
			zap.Any("declaration", decl),
		)

		spec, skip, err := parseField(document, rowIndex, j+1, decl)
		if err != nil {
			return Row{}, err
		}
		if skip {
			continue
		}
		row.Fields = append(row.Fields, spec)
	}

	return row, nil
}

// parseField validates one declaration and turns it into a FieldSpec.
// The declaration map is consumed attribute by attribute; anything left
// over that the variant does not recognize is a parse error.
func parseField(document string, rowIndex, fieldIndex int, decl map[string]any) (FieldSpec, bool, error) {
	fail := func(format string, args ...any) *ParseError {
		return &ParseError{
			Document: document,
			Row:      rowIndex,
			Field:    fieldIndex,
			Decl:     decl,
			Message:  fmt.Sprintf(format, args...),
		}
	}

	attrs := make(map[string]any, len(decl))
	for k, v := range decl {
		attrs[k] = v
	}

	// Device-name composition happens here, before any binding exists.
	if device, ok := attrs["device_name"]; ok {
		name, okName := attrs["pv_name"]
		if !okName {
			return FieldSpec{}, false, fail("device_name requires pv_name")
		}
		attrs["pv_name"] = string(pv.Join(fmt.Sprintf("%v", device), fmt.Sprintf("%v", name)))
		delete(attrs, "device_name")
	}

	rawType, ok := attrs["type"]
	if !ok {
		return FieldSpec{}, false, fail("missing required attribute type")
	}
	delete(attrs, "type")
	tag, ok := rawType.(string)
	if !ok {
		return FieldSpec{}, false, fail("type must be a string, got %T", rawType)
	}
	kind, ok := kindTags[tag]
	if !ok {
		return FieldSpec{}, false, fail("undefined field type (%q)", tag)
	}

	rawWidth, ok := attrs["width"]
	if !ok {
		return FieldSpec{}, false, fail("missing required attribute width")
	}
	delete(attrs, "width")
	width, err := toInt(rawWidth)
	if err != nil || width <= 0 {
		return FieldSpec{}, false, fail("width must be a positive integer, got %v", rawWidth)
	}

	if rawEnable, ok := attrs["enable"]; ok {
		delete(attrs, "enable")
		enable, ok := rawEnable.(bool)
		if !ok {
			return FieldSpec{}, false, fail("enable must be a boolean, got %v", rawEnable)
		}
		if !enable {
			return FieldSpec{}, true, nil
		}
	}

	allowed := allowedAttrs[kind]
	for key := range attrs {
		if !allowed[key] {
			return FieldSpec{}, false, fail("attribute %q is not valid for type %q", key, tag)
		}
	}

	spec := FieldSpec{Kind: kind, Width: width, Precision: -1, ClickValue: 1}

	if rawAlign, ok := attrs["align"]; ok {
		name, _ := rawAlign.(string)
		align, ok := alignNames[name]
		if !ok {
			return FieldSpec{}, false, fail("invalid align %v", rawAlign)
		}
		spec.Align = align
	}

	if rawName, ok := attrs["pv_name"]; ok {
		spec.Address = pv.Address(fmt.Sprintf("%v", rawName))
	}
	if rawEnum, ok := attrs["enum"]; ok {
		enum, ok := rawEnum.(bool)
		if !ok {
			return FieldSpec{}, false, fail("enum must be a boolean, got %v", rawEnum)
		}
		spec.Enum = enum
	}
	if rawPrec, ok := attrs["precision"]; ok {
		prec, err := toInt(rawPrec)
		if err != nil || prec < 0 {
			return FieldSpec{}, false, fail("precision must be a non-negative integer, got %v", rawPrec)
		}
		spec.Precision = prec
	}
	if rawSci, ok := attrs["scientific"]; ok {
		sci, ok := rawSci.(bool)
		if !ok {
			return FieldSpec{}, false, fail("scientific must be a boolean, got %v", rawSci)
		}
		spec.Scientific = sci
	}
	if rawUnit, ok := attrs["unit"]; ok {
		spec.Unit = fmt.Sprintf("%v", rawUnit)
	}
	if rawScript, ok := attrs["script"]; ok {
		spec.Script = fmt.Sprintf("%v", rawScript)
	}
	if rawText, ok := attrs["text"]; ok {
		spec.Text = fmt.Sprintf("%v", rawText)
	}
	if rawClick, ok := attrs["click_value"]; ok {
		click, err := toFloat(rawClick)
		if err != nil {
			return FieldSpec{}, false, fail("click_value must be numeric, got %v", rawClick)
		}
		spec.ClickValue = click
	}
	if rawExcl, ok := attrs["exclude_selection"]; ok {
		excl, ok := rawExcl.(bool)
		if !ok {
			return FieldSpec{}, false, fail("exclude_selection must be a boolean, got %v", rawExcl)
		}
		spec.Exclude = excl
	}
	for attr, target := range map[string]*[]string{
		"red_values":    &spec.Red,
		"yellow_values": &spec.Yellow,
		"green_values":  &spec.Green,
	} {
		raw, ok := attrs[attr]
		if !ok {
			continue
		}
		values, err := toStringList(raw)
		if err != nil {
			return FieldSpec{}, false, fail("%s must be a list, got %v", attr, raw)
		}
		*target = values
	}

	// A readonly field with a formatter script displays the script output
	// verbatim; enum decoding does not apply.
	if kind == KindReadOnly && spec.Script != "" {
		spec.Enum = false
	}

	switch kind {
	case KindReadOnly, KindEditableNumeric, KindIndicator:
		if spec.Address == "" {
			return FieldSpec{}, false, fail("missing required attribute pv_name")
		}
	case KindStatic:
		if spec.Text == "" {
			return FieldSpec{}, false, fail("missing required attribute text")
		}
	case KindAction:
		if spec.Text == "" {
			return FieldSpec{}, false, fail("missing required attribute text")
		}
		if spec.Address == "" && spec.Script == "" {
			return FieldSpec{}, false, fail("button requires pv_name or script")
		}
	}

	return spec, false, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("not an integer: %v", v)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("not a number: %v", v)
}

func toStringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("not a list: %v", v)
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		values = append(values, formatScalar(item))
	}
	return values, nil
}

// formatScalar renders a YAML scalar the way a live value renders its
// text form, so threshold membership compares like against like.
func formatScalar(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprintf("%v", v)
	}
}

package page

import (
	"errors"
	"fmt"
)

// ParseError reports a fatal problem with one field declaration. Row and
// Field are 1-based indices into the document; Decl is the raw mapping so
// the diagnostic names the offending declaration.
type ParseError struct {
	Document string
	Row      int
	Field    int
	Decl     map[string]any
	Message  string
}

func (e *ParseError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("%s: %s", e.Document, e.Message)
	}
	return fmt.Sprintf("%s: row %d field %d: %s in declaration %v", e.Document, e.Row, e.Field, e.Message, e.Decl)
}

// IsParseError reports whether err is a page parse error.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Package macro implements the textual substitution pass that runs over a
// page document before it is parsed.
//
// A document may contain positional macro tokens %M1, %M2, ... and their
// keep-suffix variants %M1KS, %M2KS, ... Each token is replaced by the
// corresponding positional value supplied on the command line. The
// reserved pass-through value %S deletes the bare token and reduces the
// keep-suffix token to the bare S marker.
package macro

import (
	"fmt"
	"strings"
)

// PassThrough is the reserved sentinel value. Substituting it deletes the
// bare macro token and leaves only the S suffix marker in place of the
// keep-suffix token.
const PassThrough = "%S"

// Warning records a macro index that was declared on the command line but
// never appeared in the document. It is not an error: the caller is
// expected to surface it for interactive acknowledgement and evaluate the
// document unchanged.
type Warning struct {
	Document string
	Index    int
}

func (w Warning) String() string {
	return fmt.Sprintf("document %s does not contain any macro designator [%%M%d]", w.Document, w.Index)
}

// Expand substitutes macro tokens in text, in index-ascending order.
// Substituted text is never re-scanned, so values containing macro-like
// sequences do not expand recursively. The document name is only used in
// warnings.
func Expand(document, text string, values []string) (string, []Warning) {
	var warnings []Warning

	for i, value := range values {
		index := i + 1
		bare := fmt.Sprintf("%%M%d", index)
		keepSuffix := bare + "KS"

		// The keep-suffix token contains the bare token as a prefix,
		// so one containment check covers both forms.
		if !strings.Contains(text, bare) {
			warnings = append(warnings, Warning{Document: document, Index: index})
			continue
		}

		if value == PassThrough {
			text = strings.ReplaceAll(text, keepSuffix, "S")
			text = strings.ReplaceAll(text, bare, "")
		} else {
			text = strings.ReplaceAll(text, keepSuffix, value)
			text = strings.ReplaceAll(text, bare, value)
		}
	}

	return text, warnings
}

// Package page parses YAML page documents into the dashboard's page model.
//
// A page document is an ordered list of rows; each row is an ordered list
// of field declarations, and declaration order is display order. Each
// declaration is a mapping with a required "type" tag (text, divider,
// getPV, setPV, LED, button), a required "width", and type-specific
// attributes.
//
// Parsing is strict: an unrecognized type tag or an attribute the variant
// does not accept fails the whole parse with a ParseError naming the row,
// field and raw declaration. No partial page model is ever produced, so
// no variable subscription is created for any field of a bad document.
//
// A declaration carrying both device_name and pv_name has its address
// composed ("device:pv") during parsing; the runtime only ever sees
// fully-qualified addresses. An "enable: false" attribute drops the field
// from its row entirely.
//
// Header documents share the schema but yield a single row; see
// ParseHeader.
package page

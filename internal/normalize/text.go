// Package normalize turns the free-text fields of financial exports into
// canonical values: collapsed text, ISO dates, signed decimal amounts and
// the deterministic transaction key used for duplicate detection.
//
// Blank input is never an error anywhere in this package. A field is only
// flagged invalid when it had content that could not be parsed.
package normalize

import "strings"

// Text trims leading/trailing whitespace and collapses internal
// whitespace runs to a single space. Empty input yields empty output.
//
// Examples:
//
//	Text("  Coffee   Shop ") -> "Coffee Shop"
//	Text("\tRent\n")         -> "Rent"
func Text(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

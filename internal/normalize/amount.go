package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount converts a currency string into a signed decimal value.
//
// Handles the forms that show up in real exports:
//
//	"$1,234.56" -> 1234.56
//	"(45.10)"   -> -45.10 (accounting-style negative)
//	"-10"       -> -10
//
// Returns (value, ok, invalid). ok is false when the field is blank after
// stripping symbols; invalid is true only when non-blank input failed to
// parse. The value is stored unrounded; rounding to two decimal places
// happens in the transaction key and at presentation time only.
func Amount(s string) (decimal.Decimal, bool, bool) {
	s = Text(s)

	// Parentheses wrapping the whole value encode a negative.
	if len(s) >= 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + strings.TrimSpace(s[1:len(s)-1])
	}

	// Strip currency symbols and thousands separators. Exports often put
	// a space between the symbol and the digits, so trim again after.
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if s == "" {
		return decimal.Decimal{}, false, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false, true
	}
	return d, true, false
}

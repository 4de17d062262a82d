package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Key derives the deterministic transaction key used for duplicate
// detection: ISO date, lowercased normalized description and the amount
// fixed to two decimal places, joined with "|". A missing amount formats
// as an empty component.
//
// The key depends only on the record's values, never on row order, so
// duplicate detection is order-independent in value; which copy survives
// is decided separately (first occurrence wins).
func Key(dateISO, description string, amount decimal.Decimal, amountOK bool) string {
	amt := ""
	if amountOK {
		amt = amount.StringFixed(2)
	}
	return dateISO + "|" + strings.ToLower(Text(description)) + "|" + amt
}

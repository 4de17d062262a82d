package normalize

import "time"

// dateLayouts are tried in order. Ambiguous numeric forms such as
// 01/02/2024 are read month-first; day-first layouts are deliberately
// absent so the same input can never parse two ways depending on value.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
	"02-Jan-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006 15:04",
	"2006.01.02",
	"01.02.2006",
}

// Date converts an arbitrary date string into ISO YYYY-MM-DD form.
//
// Returns ("", false) for blank input, (iso, false) when any known
// layout matches, and ("", true) when non-blank input matches nothing.
func Date(s string) (string, bool) {
	s = Text(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), false
		}
	}
	return "", true
}

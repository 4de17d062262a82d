package normalize

import "testing"

func TestText(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"", ""},
		{"   ", ""},
		{"Coffee", "Coffee"},
		{"  Coffee  Shop  ", "Coffee Shop"},
		{"Coffee\t\tShop", "Coffee Shop"},
		{"\n Rent \r\n", "Rent"},
		{"a  b   c", "a b c"},
	}
	for _, tc := range cases {
		if got := Text(tc.in); got != tc.out {
			t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

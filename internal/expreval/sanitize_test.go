package expreval

import "testing"

/*
TestSanitize covers the three paste-artifact repairs: zero-width character
removal, arrow glyph replacement, and the dollar-call rewrite with its
quote awareness.
*/
func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean passthrough", `row.A == "x"`, `row.A == "x"`},
		{"zero width space", "row.A\u200b == 1", "row.A == 1"},
		{"word joiner and bom", "\u2060row.A\ufeff", "row.A"},
		{"arrow glyph", `map(rows, r ⇒ r.A)`, `map(rows, r => r.A)`},
		{"dollar call rewritten", `$uppercase(row.Status)`, `uppercase(row.Status)`},
		{"nested dollar calls", `$number($lowercase(row.A))`, `number(lowercase(row.A))`},
		{"bare dollar kept", `"cost: $" + row.A`, `"cost: $" + row.A`},
		{"dollar without call kept", `$name + 1`, `$name + 1`},
		{"dollar inside single quotes kept", `'$uppercase(x)' == row.A`, `'$uppercase(x)' == row.A`},
		{"dollar inside double quotes kept", `row.A == "$f(1)"`, `row.A == "$f(1)"`},
		{"rewrite resumes after quote", `"$a(" + $uppercase(row.B)`, `"$a(" + uppercase(row.B)`},
		{"escaped quote stays inside literal", `"a \" $f(" + $uppercase(row.B)`, `"a \" $f(" + uppercase(row.B)`},
		{"escaped backslash closes normally", `"x\\" + $f(1)`, `"x\\" + f(1)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Fatalf("Sanitize(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

package expreval

import "strings"

// Sanitize prepares pasted expression text for compilation. Expression
// sources routinely arrive through rich-text copy/paste, which smuggles in
// characters the compiler rejects:
//
//   - zero-width characters (U+200B..U+200D, U+2060, U+FEFF) are removed;
//   - the double arrow glyph "⇒" becomes the "=>" it was typed as;
//   - JSONata-style "$name(" function calls become plain "name(" so that
//     e.g. $uppercase(row.Status) works unchanged.
//
// The dollar rewrite only touches text outside string literals. An
// expression containing any of these artifacts must evaluate identically to
// its clean form.
func Sanitize(src string) string {
	src = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			return -1
		}
		return r
	}, src)
	src = strings.ReplaceAll(src, "⇒", "=>")
	if !strings.Contains(src, "$") {
		return src
	}

	var out strings.Builder
	out.Grow(len(src))
	inQuote := byte(0)
	for i := 0; i < len(src); {
		ch := src[i]
		if inQuote != 0 {
			// An escaped character never closes the literal; `\"` stays
			// inside it.
			if ch == '\\' && i+1 < len(src) {
				out.WriteString(src[i : i+2])
				i += 2
				continue
			}
			out.WriteByte(ch)
			if ch == inQuote {
				inQuote = 0
			}
			i++
			continue
		}
		if ch == '\'' || ch == '"' {
			inQuote = ch
			out.WriteByte(ch)
			i++
			continue
		}
		if ch == '$' {
			j := i + 1
			for j < len(src) && isIdent(src[j]) {
				j++
			}
			// drop the dollar only for a function call: $name(
			if j > i+1 && j < len(src) && src[j] == '(' {
				out.WriteString(src[i+1 : j])
				i = j
				continue
			}
		}
		out.WriteByte(ch)
		i++
	}
	return out.String()
}

func isIdent(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

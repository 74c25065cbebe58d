package views

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sanitizeForTerminal removes codepoints that break tcell/tview layout:
// control characters other than tab, emoji skin tone modifiers, the zero
// width joiner and variation selectors. Newlines become spaces so one
// message never spans table rows.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == '\n' || r == '\r':
			b.WriteByte(' ')
		case r == utf8.RuneError && size == 1:
			b.WriteRune('?')
		case isProblematicRune(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r != '\t' && unicode.IsControl(r):
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	}
	return false
}

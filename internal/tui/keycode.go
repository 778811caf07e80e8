package tui

import (
	"fmt"
	"unicode"
)

// keyCodeFor approximates a physical key code for a typed rune, in the
// style of the DOM KeyboardEvent.code values the backend expects.
// Terminals do not expose scan codes, so this is a best-effort mapping.
func keyCodeFor(r rune) string {
	switch {
	case r == ' ':
		return "Space"
	case r >= 'a' && r <= 'z':
		return fmt.Sprintf("Key%c", unicode.ToUpper(r))
	case r >= 'A' && r <= 'Z':
		return fmt.Sprintf("Key%c", r)
	case r >= '0' && r <= '9':
		return fmt.Sprintf("Digit%c", r)
	default:
		return ""
	}
}

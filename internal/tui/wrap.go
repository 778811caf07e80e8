package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styledRune struct {
	r     rune
	style lipgloss.Style
}

// buildStyledRunes styles each target rune by its typing state: correct,
// incorrect, cursor, or pending. Extra typed runes past the target are
// ignored here; the reconciler already counted them.
func buildStyledRunes(target, input []rune) []styledRune {
	out := make([]styledRune, len(target))
	for i, r := range target {
		switch {
		case i < len(input) && input[i] == r:
			out[i] = styledRune{r: r, style: correctStyle}
		case i < len(input):
			out[i] = styledRune{r: r, style: incorrectStyle}
		case i == len(input):
			out[i] = styledRune{r: r, style: cursorStyle}
		default:
			out[i] = styledRune{r: r, style: pendingStyle}
		}
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, sr := range runes {
		b.WriteString(sr.style.Render(string(sr.r)))
	}
	return b.String()
}

// wrapStyledRunes soft-wraps styled runes at word boundaries, falling
// back to a hard break for words longer than the width.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var lines []string
	var line []styledRune
	var word []styledRune

	flushWord := func() {
		if len(word) == 0 {
			return
		}
		if len(line)+len(word) > width && len(line) > 0 {
			lines = append(lines, renderStyledRunes(line))
			line = nil
		}
		for len(word) > width {
			if len(line) > 0 {
				lines = append(lines, renderStyledRunes(line))
				line = nil
			}
			lines = append(lines, renderStyledRunes(word[:width]))
			word = word[width:]
		}
		line = append(line, word...)
		word = nil
	}

	for _, sr := range runes {
		if sr.r == ' ' {
			flushWord()
			if len(line) >= width {
				lines = append(lines, renderStyledRunes(line))
				line = nil
				continue
			}
			line = append(line, sr)
			continue
		}
		word = append(word, sr)
	}
	flushWord()
	if len(line) > 0 {
		lines = append(lines, renderStyledRunes(line))
	}
	return strings.Join(lines, "\n")
}

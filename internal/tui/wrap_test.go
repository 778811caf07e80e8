package tui

import (
	"strings"
	"testing"
)

func rendered(sr styledRune) string {
	return sr.style.Render(string(sr.r))
}

func TestBuildStyledRunesStates(t *testing.T) {
	target := []rune("abc")
	input := []rune("ax")

	runes := buildStyledRunes(target, input)
	if len(runes) != 3 {
		t.Fatalf("expected 3 runes, got %d", len(runes))
	}
	if rendered(runes[0]) != correctStyle.Render("a") {
		t.Fatalf("expected correct style for matched rune")
	}
	if rendered(runes[1]) != incorrectStyle.Render("b") {
		t.Fatalf("expected incorrect style keeping the target rune")
	}
	if rendered(runes[2]) != cursorStyle.Render("c") {
		t.Fatalf("expected cursor style at the input boundary")
	}
}

func TestBuildStyledRunesPending(t *testing.T) {
	runes := buildStyledRunes([]rune("abcd"), []rune("a"))
	if rendered(runes[2]) != pendingStyle.Render("c") {
		t.Fatalf("expected pending style past the cursor")
	}
	if rendered(runes[3]) != pendingStyle.Render("d") {
		t.Fatalf("expected pending style past the cursor")
	}
}

func TestWrapStyledRunesWordBoundary(t *testing.T) {
	runes := buildStyledRunes([]rune("one two three"), nil)
	out := wrapStyledRunes(runes, 7)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
}

func TestWrapStyledRunesHardBreak(t *testing.T) {
	runes := buildStyledRunes([]rune("abcdefghij"), nil)
	out := wrapStyledRunes(runes, 4)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("overlong word must hard-break into 3 lines, got %d: %q", len(lines), out)
	}
}

func TestWrapStyledRunesZeroWidth(t *testing.T) {
	runes := buildStyledRunes([]rune("ab"), nil)
	if out := wrapStyledRunes(runes, 0); strings.Contains(out, "\n") {
		t.Fatalf("zero width must not wrap: %q", out)
	}
}

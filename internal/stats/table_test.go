package stats

import "testing"

func TestFormatTableAlignment(t *testing.T) {
	headers := []string{"Letter", "Errors"}
	rows := [][]string{
		{"A", "10"},
		{"Щ", "3"},
	}
	lines := formatTable(headers, rows, map[int]bool{1: true})
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "Letter Errors" {
		t.Fatalf("unexpected header row: %q", lines[0])
	}
	if lines[1] != "A          10" {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if lines[2] != "Щ           3" {
		t.Fatalf("unexpected second row: %q", lines[2])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if got := formatTable(nil, nil, nil); got != nil {
		t.Fatalf("empty table: got %v", got)
	}
}

func TestPadCellOversized(t *testing.T) {
	if got := padCell("abcdef", 3, false); got != "abcdef" {
		t.Fatalf("oversized cell must not be truncated: %q", got)
	}
}

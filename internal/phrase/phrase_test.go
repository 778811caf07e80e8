package phrase

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phrases.txt")
	content := "# comment\nfirst phrase\n\n  second phrase  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	phrases, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(phrases) != 2 {
		t.Fatalf("expected 2 phrases, got %v", phrases)
	}
	if phrases[0] != "first phrase" || phrases[1] != "second phrase" {
		t.Fatalf("unexpected phrases: %v", phrases)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phrases.txt")
	if err := os.WriteFile(path, []byte("# only comments\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty phrase file")
	}
}

func TestLoadOrDefault(t *testing.T) {
	phrases, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.txt"))
	if err != nil {
		t.Fatalf("load or default: %v", err)
	}
	if len(phrases) != len(Default()) {
		t.Fatalf("expected built-in set, got %d phrases", len(phrases))
	}
}

func TestPickMinLength(t *testing.T) {
	p := &Picker{rnd: rand.New(rand.NewSource(1))}
	phrases := []string{"short", "a phrase that is long enough to qualify"}

	for i := 0; i < 20; i++ {
		got := p.Pick(phrases, 10)
		if got == "short" {
			t.Fatalf("picked a phrase below the minimum length")
		}
	}

	// When nothing qualifies, the filter is dropped.
	if got := p.Pick([]string{"short"}, 10); got != "short" {
		t.Fatalf("expected fallback to full set, got %q", got)
	}
	if got := p.Pick(nil, 0); got != "" {
		t.Fatalf("empty set must pick nothing, got %q", got)
	}
}

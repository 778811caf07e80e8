package stats

import (
	"math"
	"strings"
	"testing"

	"keyprint/internal/model"
)

func TestSeverityHue(t *testing.T) {
	if got := SeverityHue(0); got != 120 {
		t.Fatalf("clean letter: got %v, want 120", got)
	}
	if got := SeverityHue(1); got != 0 {
		t.Fatalf("hopeless letter: got %v, want 0", got)
	}
	if got := SeverityHue(0.5); math.Abs(got-60) > 1e-9 {
		t.Fatalf("mid rate: got %v, want 60", got)
	}
	if got := SeverityHue(2); got != 0 {
		t.Fatalf("rate clamps at 1: got %v", got)
	}
	if got := SeverityHue(-1); got != 120 {
		t.Fatalf("rate clamps at 0: got %v", got)
	}
}

func TestSeverityColor(t *testing.T) {
	color := SeverityColor(0)
	if !strings.HasPrefix(color, "#") || len(color) != 7 {
		t.Fatalf("expected hex color, got %q", color)
	}
	if SeverityColor(0) == SeverityColor(1) {
		t.Fatalf("extremes must differ")
	}
}

func TestWeakestLetters(t *testing.T) {
	aggs := []model.LetterAggregate{
		{Letter: "A", Total: 10, Errors: 1},
		{Letter: "B", Total: 4, Errors: 2},
		{Letter: "C", Total: 8, Errors: 4},
		{Letter: "D", Total: 5, Errors: 0},
	}
	top := WeakestLetters(aggs, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 letters, got %d", len(top))
	}
	// B and C tie at 50%; C has more attempts.
	if top[0].Letter != "C" || top[1].Letter != "B" {
		t.Fatalf("unexpected order: %v, %v", top[0].Letter, top[1].Letter)
	}

	if got := WeakestLetters(nil, 3); got != nil {
		t.Fatalf("empty input must yield nil")
	}
	all := WeakestLetters(aggs, 10)
	if len(all) != 4 {
		t.Fatalf("oversized top must return all: got %d", len(all))
	}
}

func TestErrorRate(t *testing.T) {
	if got := ErrorRate(model.LetterAggregate{}); got != 0 {
		t.Fatalf("no attempts: got %v", got)
	}
	if got := ErrorRate(model.LetterAggregate{Total: 4, Errors: 1}); got != 0.25 {
		t.Fatalf("rate: got %v, want 0.25", got)
	}
}

func TestTopLettersByAttempts(t *testing.T) {
	aggs := []model.LetterAggregate{
		{Letter: "B", Total: 3},
		{Letter: "A", Total: 3},
		{Letter: "C", Total: 9},
	}
	top := TopLettersByAttempts(aggs, 2)
	if len(top) != 2 || top[0] != "C" || top[1] != "A" {
		t.Fatalf("unexpected order: %v", top)
	}
}

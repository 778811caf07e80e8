package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"keyprint/internal/model"
	"keyprint/internal/store"
)

func seedStore(t *testing.T, count int) *store.Store {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "keyprint.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	for i := 0; i < count; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		rec := model.SampleRecord{
			Username:      "alice",
			StartedAt:     start,
			EndedAt:       end,
			ReferenceText: "the quick brown fox",
			TypedText:     "the quick brown fox",
			DurationMs:    end.Sub(start).Milliseconds(),
			Counters:      model.AccuracyCounters{Typed: 20, Correct: 19, Errors: 1},
			Features: model.FeatureSet{
				DwellMean:         60,
				LatencyMean:       150,
				FlightMean:        90,
				TypingSpeed:       float64(100 + i*10),
				KeyCount:          20,
				RhythmConsistency: 0.8,
			},
		}
		letters := []model.LetterCount{
			{Letter: "T", Total: 3, Errors: 0},
			{Letter: "Q", Total: 1, Errors: 1},
		}
		if _, err := st.InsertSample(ctx, rec, letters); err != nil {
			t.Fatalf("insert sample: %v", err)
		}
	}
	return st
}

func TestBuildReport(t *testing.T) {
	st := seedStore(t, 3)
	cfg := model.StatsConfig{User: "alice", Last: 2, CurveWindow: 2}

	report, err := BuildReport(context.Background(), st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Samples) != 2 {
		t.Fatalf("expected last 2 samples, got %d", len(report.Samples))
	}
	if len(report.WindowSampleIDs) != 2 {
		t.Fatalf("expected 2 window ids, got %d", len(report.WindowSampleIDs))
	}
	// Two letters aggregated across the kept samples.
	if len(report.LetterAggsAll) != 2 {
		t.Fatalf("expected 2 letter aggregates, got %d", len(report.LetterAggsAll))
	}
	for _, agg := range report.LetterAggsAll {
		if agg.Letter == "Q" && (agg.Total != 2 || agg.Errors != 2) {
			t.Fatalf("unexpected Q aggregate: %+v", agg)
		}
	}
}

func TestBuildReportUserFilter(t *testing.T) {
	st := seedStore(t, 2)
	report, err := BuildReport(context.Background(), st, model.StatsConfig{User: "bob", CurveWindow: 5})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Samples) != 0 {
		t.Fatalf("expected no samples for unknown user, got %d", len(report.Samples))
	}
}

func TestRenderReport(t *testing.T) {
	st := seedStore(t, 3)
	report, err := BuildReport(context.Background(), st, model.StatsConfig{CurveWindow: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}

	var buf bytes.Buffer
	if err := RenderReport(&buf, report, 2, 80); err != nil {
		t.Fatalf("render report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Summary", "Samples: 3", "Feature Trends", "Per-Letter", "Q"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestParseLetters(t *testing.T) {
	got := ParseLetters(" q, a ,q,")
	if len(got) != 2 || got[0] != "Q" || got[1] != "A" {
		t.Fatalf("unexpected letters: %v", got)
	}
	if ParseLetters("") != nil {
		t.Fatalf("empty list must yield nil")
	}
}

func TestBuildReportLetterCurves(t *testing.T) {
	st := seedStore(t, 3)
	cfg := model.StatsConfig{CurveWindow: 2, Letters: "q"}

	report, err := BuildReport(context.Background(), st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.CurveLetters) != 1 || report.CurveLetters[0] != "Q" {
		t.Fatalf("unexpected curve letters: %v", report.CurveLetters)
	}
	if len(report.LetterCurves) != 3 {
		t.Fatalf("expected per-sample stats for 3 samples, got %d", len(report.LetterCurves))
	}

	var buf bytes.Buffer
	if err := RenderLetterTrends(&buf, report, 2, 80, 4, false); err != nil {
		t.Fatalf("render letter trends: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Per-Letter Error Rate") || !strings.Contains(out, "Q: min=100.00 max=100.00") {
		t.Fatalf("unexpected trends output:\n%s", out)
	}
}

func TestRenderReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, Report{}, 2, 80); err != nil {
		t.Fatalf("render report: %v", err)
	}
	if !strings.Contains(buf.String(), "No samples found.") {
		t.Fatalf("unexpected empty report:\n%s", buf.String())
	}
}

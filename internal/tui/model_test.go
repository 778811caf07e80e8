package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"keyprint/internal/model"
	"keyprint/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "keyprint.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func insertNoticeSample(t *testing.T, st *store.Store, user string, endedAt time.Time, letters []model.LetterCount) {
	t.Helper()
	rec := model.SampleRecord{
		Username:      user,
		StartedAt:     endedAt.Add(-30 * time.Second),
		EndedAt:       endedAt,
		ReferenceText: "pack my box",
		TypedText:     "pack my box",
		DurationMs:    30000,
		Counters:      model.AccuracyCounters{Typed: 11, Correct: 10, Errors: 1},
	}
	if _, err := st.InsertSample(context.Background(), rec, letters); err != nil {
		t.Fatalf("insert sample: %v", err)
	}
}

func TestWeakLetterNoticeUsesRecentHistory(t *testing.T) {
	st := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		insertNoticeSample(t, st, "alice", base.Add(time.Duration(i)*time.Hour), []model.LetterCount{
			{Letter: "Q", Total: 4, Errors: 4},
			{Letter: "A", Total: 4, Errors: 0},
		})
	}

	m := &Model{username: "alice", store: st}
	notice := m.weakLetterNotice(context.Background(), map[string]model.LetterStat{
		"Z": {Total: 1, Errors: 1},
	})
	if !strings.Contains(notice, "Q") {
		t.Fatalf("notice must rank letters from recent history: %q", notice)
	}
	if strings.Contains(notice, "Z") {
		t.Fatalf("finished-sample letter must not override history: %q", notice)
	}
}

func TestWeakLetterNoticeFallsBackToSample(t *testing.T) {
	st := openTestStore(t)

	m := &Model{username: "alice", store: st}
	notice := m.weakLetterNotice(context.Background(), map[string]model.LetterStat{
		"Z": {Total: 2, Errors: 1},
	})
	if !strings.Contains(notice, "Z") {
		t.Fatalf("empty history must fall back to the finished sample: %q", notice)
	}
}

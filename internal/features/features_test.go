package features

import (
	"math"
	"testing"

	"keyprint/internal/model"
)

func press(key string, ts int64) model.KeyEvent {
	return model.KeyEvent{Type: model.EventPress, Key: key, Timestamp: ts}
}

func release(key string, ts int64) model.KeyEvent {
	return model.KeyEvent{Type: model.EventRelease, Key: key, Timestamp: ts}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestExtractBasic(t *testing.T) {
	events := []model.KeyEvent{
		press("a", 0), release("a", 50),
		press("b", 100), release("b", 160),
		press("c", 250), release("c", 300),
	}
	fs := Extract(events, 3, 0)

	// Latencies 100 and 150.
	if !almostEqual(fs.LatencyMean, 125) {
		t.Fatalf("latency mean: got %v, want 125", fs.LatencyMean)
	}
	if !almostEqual(fs.LatencyMin, 100) || !almostEqual(fs.LatencyMax, 150) {
		t.Fatalf("latency range: got [%v, %v]", fs.LatencyMin, fs.LatencyMax)
	}
	// Dwells 50, 60, 50.
	if !almostEqual(fs.DwellMean, 160.0/3) {
		t.Fatalf("dwell mean: got %v, want %v", fs.DwellMean, 160.0/3)
	}
	if !almostEqual(fs.DwellMedian, 50) {
		t.Fatalf("dwell median: got %v, want 50", fs.DwellMedian)
	}
	// Flights 50 and 90.
	if !almostEqual(fs.FlightMean, 70) {
		t.Fatalf("flight mean: got %v, want 70", fs.FlightMean)
	}
	if fs.KeyCount != 3 {
		t.Fatalf("key count: got %d, want 3", fs.KeyCount)
	}
	if !almostEqual(fs.TotalTimeMs, 250) {
		t.Fatalf("total time: got %v, want 250", fs.TotalTimeMs)
	}
	if len(fs.RawDwellTimes) != 3 || len(fs.RawLatencies) != 2 {
		t.Fatalf("raw samples: got %d dwells, %d latencies",
			len(fs.RawDwellTimes), len(fs.RawLatencies))
	}
}

func TestExtractTooFewPresses(t *testing.T) {
	events := []model.KeyEvent{
		press("a", 0), release("a", 80),
	}
	fs := Extract(events, 1, 500)
	if fs.KeyCount != 0 || fs.DwellMean != 0 || fs.TypingSpeed != 0 || fs.RawDwellTimes != nil {
		t.Fatalf("expected all-zero feature set, got %+v", fs)
	}
	if fs = Extract(nil, 0, 0); fs.KeyCount != 0 {
		t.Fatalf("empty log must yield zero key count")
	}
}

func TestRhythmConsistency(t *testing.T) {
	uniform := []model.KeyEvent{
		press("a", 0), press("b", 100), press("c", 200), press("d", 300),
	}
	fs := Extract(uniform, 4, 0)
	if !almostEqual(fs.RhythmConsistency, 1) {
		t.Fatalf("uniform cadence: got %v, want 1", fs.RhythmConsistency)
	}

	jittery := []model.KeyEvent{
		press("a", 0), press("b", 10), press("c", 510),
	}
	fs = Extract(jittery, 3, 0)
	if fs.RhythmConsistency <= 0 || fs.RhythmConsistency >= 1 {
		t.Fatalf("jittery cadence must be in (0,1): got %v", fs.RhythmConsistency)
	}

	twoPresses := []model.KeyEvent{press("a", 0), press("b", 100)}
	fs = Extract(twoPresses, 2, 0)
	if fs.RhythmConsistency != 0 {
		t.Fatalf("single latency has no rhythm: got %v", fs.RhythmConsistency)
	}
}

func TestTypingSpeed(t *testing.T) {
	events := []model.KeyEvent{press("a", 0), press("b", 100)}

	// 100 runes over 30 seconds is 200 CPM.
	fs := Extract(events, 100, 30000)
	if !almostEqual(fs.TypingSpeed, 200) {
		t.Fatalf("typing speed: got %v, want 200", fs.TypingSpeed)
	}

	// Zero elapsed falls back to the press span.
	fs = Extract(events, 10, 0)
	if !almostEqual(fs.TypingSpeed, 10/(100.0/60000.0)) {
		t.Fatalf("fallback speed: got %v", fs.TypingSpeed)
	}

	// Same-millisecond queries are floored, never a division by zero.
	same := []model.KeyEvent{press("a", 5), press("b", 5)}
	fs = Extract(same, 2, 0)
	if math.IsInf(fs.TypingSpeed, 0) || math.IsNaN(fs.TypingSpeed) {
		t.Fatalf("speed must stay finite: got %v", fs.TypingSpeed)
	}
}

func TestFlightTimesPositiveOnly(t *testing.T) {
	// Second press lands before the first release: overlapping stroke,
	// the non-positive gap is dropped.
	events := []model.KeyEvent{
		press("a", 0), press("b", 40), release("a", 50), release("b", 90),
		press("c", 200), release("c", 260),
	}
	fs := Extract(events, 3, 0)
	// Only release b (90) -> press c (200) survives.
	if !almostEqual(fs.FlightMean, 110) {
		t.Fatalf("flight mean: got %v, want 110", fs.FlightMean)
	}
}

func TestDwellPairingReusesReleases(t *testing.T) {
	// Repeated key: both presses pair with the first strictly later
	// release of the same symbol.
	events := []model.KeyEvent{
		press("a", 0), release("a", 50),
		press("a", 100), release("a", 170),
	}
	fs := Extract(events, 2, 0)
	// Press at 0 pairs with release 50 (dwell 50); press at 100 skips
	// release 50 and pairs with release 170 (dwell 70).
	if !almostEqual(fs.DwellMean, 60) {
		t.Fatalf("dwell mean: got %v, want 60", fs.DwellMean)
	}
}

func TestDigraphRunningAverage(t *testing.T) {
	events := []model.KeyEvent{
		press("a", 0), press("b", 100),
		press("a", 200), press("b", 350),
	}
	fs := Extract(events, 4, 0)
	// "ab" seen twice: 100 then (100+150)/2 = 125. "ba" once: 100.
	if !almostEqual(fs.DigraphMean, (125.0+100.0)/2) {
		t.Fatalf("digraph mean: got %v", fs.DigraphMean)
	}
}

func TestDigraphSkipsMultiRuneKeys(t *testing.T) {
	events := []model.KeyEvent{
		press("a", 0), press("Backspace", 100), press("b", 200),
	}
	fs := Extract(events, 2, 0)
	if fs.DigraphMean != 0 {
		t.Fatalf("digraphs with special keys must be skipped: got %v", fs.DigraphMean)
	}
}

func TestRawSampleCap(t *testing.T) {
	var events []model.KeyEvent
	for i := 0; i < 80; i++ {
		events = append(events, press("a", int64(i*100)))
	}
	fs := Extract(events, 80, 0)
	if len(fs.RawLatencies) != rawSampleCap {
		t.Fatalf("raw latencies: got %d, want %d", len(fs.RawLatencies), rawSampleCap)
	}
}

func TestStddevIsPopulation(t *testing.T) {
	// Population stddev of {2, 4} is 1.
	if got := stddev([]float64{2, 4}); !almostEqual(got, 1) {
		t.Fatalf("stddev: got %v, want 1", got)
	}
}

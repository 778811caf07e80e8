// Package model defines shared data structures.
package model

import "time"

// EventType distinguishes key presses from releases.
type EventType string

// Key event types.
const (
	EventPress   EventType = "press"
	EventRelease EventType = "release"
)

// KeyEvent is one raw keyboard event. Events are immutable once appended
// and keep insertion order for the lifetime of a session.
type KeyEvent struct {
	Type       EventType `json:"type"`
	Key        string    `json:"key"`
	Code       string    `json:"code"`
	Timestamp  int64     `json:"timestamp"`
	NativeCode int       `json:"nativeCode"`
}

// FeatureSet is a derived snapshot of biometric timing features. It is
// recomputed from the event log on every query and has no lifecycle of
// its own.
type FeatureSet struct {
	DwellMean   float64 `json:"dwell_mean"`
	DwellStd    float64 `json:"dwell_std"`
	DwellMedian float64 `json:"dwell_median"`
	DwellMin    float64 `json:"dwell_min"`
	DwellMax    float64 `json:"dwell_max"`

	LatencyMean   float64 `json:"latency_mean"`
	LatencyStd    float64 `json:"latency_std"`
	LatencyMedian float64 `json:"latency_median"`
	LatencyMin    float64 `json:"latency_min"`
	LatencyMax    float64 `json:"latency_max"`

	FlightMean   float64 `json:"flight_mean"`
	FlightStd    float64 `json:"flight_std"`
	FlightMedian float64 `json:"flight_median"`

	TypingSpeed float64 `json:"typing_speed"`
	TotalTimeMs float64 `json:"total_time"`
	KeyCount    int     `json:"key_count"`

	RhythmConsistency float64 `json:"rhythm_consistency"`

	DigraphMean float64 `json:"digraph_mean"`
	DigraphStd  float64 `json:"digraph_std"`

	RawDwellTimes []float64 `json:"raw_dwell_times"`
	RawLatencies  []float64 `json:"raw_latencies"`
}

// LetterStat tracks attempts and mismatches for one canonicalized letter.
// Errors never exceeds Total.
type LetterStat struct {
	Total  int `json:"total"`
	Errors int `json:"errors"`
}

// AccuracyCounters holds cumulative, edit-tolerant accuracy statistics
// for one session. All fields are monotone except across Reset.
type AccuracyCounters struct {
	Typed      int `json:"typed_chars_count"`
	Correct    int `json:"correct_chars_count"`
	Errors     int `json:"errors_total"`
	Backspaces int `json:"backspace_count"`
}

// LetterCount is a per-letter row as persisted with a sample.
type LetterCount struct {
	Letter string
	Total  int
	Errors int
}

// SampleRecord captures a completed typing sample for persistence.
type SampleRecord struct {
	Username      string
	StartedAt     time.Time
	EndedAt       time.Time
	ReferenceText string
	TypedText     string
	DurationMs    int64
	Counters      AccuracyCounters
	Features      FeatureSet
}

// SampleAggregate summarizes a stored sample for reporting.
type SampleAggregate struct {
	SampleID          int64
	EndedAt           time.Time
	Typed             int
	Correct           int
	Errors            int
	DurationMs        int64
	TypingSpeed       float64
	DwellMean         float64
	LatencyMean       float64
	FlightMean        float64
	RhythmConsistency float64
}

// LetterAggregate aggregates letter stats across samples.
type LetterAggregate struct {
	Letter string
	Total  int
	Errors int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	User        string
	Since       *time.Time
	Last        int
	CurveWindow int
	Letters     string
}

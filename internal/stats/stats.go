// Package stats contains statistics calculations and reporting.
package stats

import (
	"math"
	"strings"

	"keyprint/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Accuracy computes the correct/typed ratio in [0,1], 0 when nothing
// was typed.
func Accuracy(correct, typed int) float64 {
	if typed <= 0 {
		return 0
	}
	return float64(correct) / float64(typed)
}

// SampleMetrics computes CPM and accuracy for a stored sample.
func SampleMetrics(agg model.SampleAggregate) (cpm, accuracy float64) {
	if agg.DurationMs > 0 {
		minutes := float64(agg.DurationMs) / 60000.0
		cpm = float64(agg.Typed) / minutes
	}
	return cpm, Accuracy(agg.Correct, agg.Typed)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// TrendSeries extracts per-sample feature trends for plotting, smoothed
// with a moving average window.
func TrendSeries(samples []model.SampleAggregate, window int) []Series {
	if len(samples) == 0 {
		return nil
	}
	speed := make([]float64, len(samples))
	acc := make([]float64, len(samples))
	dwell := make([]float64, len(samples))
	latency := make([]float64, len(samples))
	rhythm := make([]float64, len(samples))
	for i, s := range samples {
		speed[i] = s.TypingSpeed
		acc[i] = Accuracy(s.Correct, s.Typed) * 100
		dwell[i] = s.DwellMean
		latency[i] = s.LatencyMean
		rhythm[i] = s.RhythmConsistency
	}
	return []Series{
		{Name: "CPM", Values: MovingAverage(speed, window)},
		{Name: "Accuracy", Values: MovingAverage(acc, window)},
		{Name: "Dwell (ms)", Values: MovingAverage(dwell, window)},
		{Name: "Latency (ms)", Values: MovingAverage(latency, window)},
		{Name: "Rhythm", Values: MovingAverage(rhythm, window)},
	}
}

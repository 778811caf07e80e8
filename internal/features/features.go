// Package features derives biometric timing features from a recorded
// key event sequence. Extraction is a pure function of the log and is
// recomputed on every query; there is no incremental state.
package features

import (
	"math"
	"sort"
	"unicode/utf8"

	"keyprint/internal/model"
)

// rawSampleCap bounds the raw sample slices carried in a FeatureSet.
const rawSampleCap = 50

// minElapsedMs floors the speed window so a query issued in the same
// millisecond as the first press cannot divide by zero.
const minElapsedMs = 1.0

// Extract computes a FeatureSet snapshot from the event log. textLen is
// the current typed-text length in runes. elapsedMs is the session's
// active window for the speed calculation; pass 0 to derive it from the
// first and last press timestamps. Fewer than two press events yield the
// all-zero FeatureSet: querying before enough data exists is a normal
// condition, not an error.
func Extract(events []model.KeyEvent, textLen int, elapsedMs float64) model.FeatureSet {
	presses, releases := partition(events)
	if len(presses) < 2 {
		return model.FeatureSet{}
	}

	dwells := dwellTimes(presses, releases)
	latencies := interKeyLatencies(presses)
	flights := flightTimes(presses, releases)
	digraphs := digraphLatencies(presses)

	fs := model.FeatureSet{
		DwellMean:   mean(dwells),
		DwellStd:    stddev(dwells),
		DwellMedian: median(dwells),
		DwellMin:    minOf(dwells),
		DwellMax:    maxOf(dwells),

		LatencyMean:   mean(latencies),
		LatencyStd:    stddev(latencies),
		LatencyMedian: median(latencies),
		LatencyMin:    minOf(latencies),
		LatencyMax:    maxOf(latencies),

		FlightMean:   mean(flights),
		FlightStd:    stddev(flights),
		FlightMedian: median(flights),

		TypingSpeed: typingSpeed(presses, textLen, elapsedMs),
		TotalTimeMs: float64(presses[len(presses)-1].Timestamp - presses[0].Timestamp),
		KeyCount:    len(presses),

		RhythmConsistency: rhythmConsistency(latencies),

		DigraphMean: mean(digraphs),
		DigraphStd:  stddev(digraphs),

		RawDwellTimes: capSamples(dwells),
		RawLatencies:  capSamples(latencies),
	}
	return fs
}

func partition(events []model.KeyEvent) (presses, releases []model.KeyEvent) {
	for _, e := range events {
		switch e.Type {
		case model.EventPress:
			presses = append(presses, e)
		case model.EventRelease:
			releases = append(releases, e)
		}
	}
	return presses, releases
}

// dwellTimes pairs each press with the first release of the same key
// symbol carrying a strictly greater timestamp. Releases are re-scanned
// per press and never marked consumed, so repeated keys may reuse an
// earlier release; this mirrors the upstream pairing rule exactly.
func dwellTimes(presses, releases []model.KeyEvent) []float64 {
	var dwells []float64
	for _, p := range presses {
		for _, r := range releases {
			if r.Key == p.Key && r.Timestamp > p.Timestamp {
				dwells = append(dwells, float64(r.Timestamp-p.Timestamp))
				break
			}
		}
	}
	return dwells
}

func interKeyLatencies(presses []model.KeyEvent) []float64 {
	var latencies []float64
	for i := 1; i < len(presses); i++ {
		latencies = append(latencies, float64(presses[i].Timestamp-presses[i-1].Timestamp))
	}
	return latencies
}

// flightTimes measures release-to-next-press gaps by positional index.
// Only strictly positive gaps are kept.
func flightTimes(presses, releases []model.KeyEvent) []float64 {
	var flights []float64
	for i := 0; i+1 < len(releases); i++ {
		if i+1 >= len(presses) {
			continue
		}
		f := float64(presses[i+1].Timestamp - releases[i].Timestamp)
		if f > 0 {
			flights = append(flights, f)
		}
	}
	return flights
}

// rhythmConsistency maps the coefficient of variation of inter-key
// latencies to (0,1]: 1 for a metronomic cadence, approaching 0 as
// variance grows unbounded relative to the mean.
func rhythmConsistency(latencies []float64) float64 {
	if len(latencies) < 2 {
		return 0
	}
	m := mean(latencies)
	if m == 0 {
		return 0
	}
	cv := stddev(latencies) / m
	return 1 / (1 + cv)
}

func typingSpeed(presses []model.KeyEvent, textLen int, elapsedMs float64) float64 {
	if elapsedMs <= 0 {
		elapsedMs = float64(presses[len(presses)-1].Timestamp - presses[0].Timestamp)
	}
	if elapsedMs < minElapsedMs {
		elapsedMs = minElapsedMs
	}
	minutes := elapsedMs / 60000.0
	return float64(textLen) / minutes
}

// digraphLatencies keeps a running average latency per consecutive
// single-rune key pair.
func digraphLatencies(presses []model.KeyEvent) []float64 {
	averages := map[string]float64{}
	var order []string
	for i := 0; i+1 < len(presses); i++ {
		k1, k2 := presses[i].Key, presses[i+1].Key
		if utf8.RuneCountInString(k1) != 1 || utf8.RuneCountInString(k2) != 1 {
			continue
		}
		digraph := k1 + k2
		latency := float64(presses[i+1].Timestamp - presses[i].Timestamp)
		if prev, ok := averages[digraph]; ok {
			averages[digraph] = (prev + latency) / 2
		} else {
			averages[digraph] = latency
			order = append(order, digraph)
		}
	}
	out := make([]float64, 0, len(order))
	for _, d := range order {
		out = append(out, averages[d])
	}
	return out
}

func capSamples(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	n := len(values)
	if n > rawSampleCap {
		n = rawSampleCap
	}
	out := make([]float64, n)
	copy(out, values[:n])
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	out := values[0]
	for _, v := range values[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	out := values[0]
	for _, v := range values[1:] {
		if v > out {
			out = v
		}
	}
	return out
}

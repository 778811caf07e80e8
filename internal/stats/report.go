package stats

import (
	"context"
	"fmt"
	"io"
	"strings"

	"keyprint/internal/model"
	"keyprint/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Samples          []model.SampleAggregate
	WindowSampleIDs  []int64
	LetterAggsAll    []model.LetterAggregate
	LetterAggsWindow []model.LetterAggregate
	CurveLetters     []string
	LetterCurves     map[int64]map[string]model.LetterAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	samples, err := st.ListSamples(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(samples) > cfg.Last {
		samples = samples[len(samples)-cfg.Last:]
	}

	allIDs := SampleIDs(samples)
	windowIDs := lastSampleIDs(samples, cfg.CurveWindow)
	lettersAll, err := st.ListLetterAggregatesForSamples(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	lettersWindow, err := st.ListLetterAggregatesForSamples(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	curveLetters := ParseLetters(cfg.Letters)
	var letterCurves map[int64]map[string]model.LetterAggregate
	if len(curveLetters) > 0 {
		letterCurves, err = st.ListLetterStatsForSamples(ctx, allIDs, curveLetters)
		if err != nil {
			return Report{}, err
		}
	}

	return Report{
		Samples:          samples,
		WindowSampleIDs:  windowIDs,
		LetterAggsAll:    lettersAll,
		LetterAggsWindow: lettersWindow,
		CurveLetters:     curveLetters,
		LetterCurves:     letterCurves,
	}, nil
}

// ParseLetters splits a comma-separated letter list and canonicalizes
// entries to the upper-case form the store uses.
func ParseLetters(list string) []string {
	if list == "" {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, part := range strings.Split(list, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// SampleIDs extracts the IDs of the given sample aggregates.
func SampleIDs(samples []model.SampleAggregate) []int64 {
	ids := make([]int64, len(samples))
	for i, s := range samples {
		ids[i] = s.SampleID
	}
	return ids
}

func lastSampleIDs(samples []model.SampleAggregate, window int) []int64 {
	if window <= 0 || len(samples) <= window {
		return SampleIDs(samples)
	}
	return SampleIDs(samples[len(samples)-window:])
}

// RenderSummary prints a summary block for stored samples.
func RenderSummary(w io.Writer, samples []model.SampleAggregate) error {
	if len(samples) == 0 {
		_, err := fmt.Fprintln(w, "No samples found.")
		return err
	}
	var totalCPM, totalAcc, totalDwell, totalLatency, totalRhythm float64
	bestCPM := 0.0
	for _, s := range samples {
		cpm, acc := SampleMetrics(s)
		totalCPM += cpm
		totalAcc += acc
		totalDwell += s.DwellMean
		totalLatency += s.LatencyMean
		totalRhythm += s.RhythmConsistency
		if cpm > bestCPM {
			bestCPM = cpm
		}
	}
	count := float64(len(samples))
	lines := []string{
		"Summary",
		fmt.Sprintf("Samples: %d", len(samples)),
		fmt.Sprintf("Avg CPM: %.1f", totalCPM/count),
		fmt.Sprintf("Best CPM: %.1f", bestCPM),
		fmt.Sprintf("Avg Accuracy: %.1f%%", (totalAcc/count)*100),
		fmt.Sprintf("Avg Dwell: %.1f ms", totalDwell/count),
		fmt.Sprintf("Avg Latency: %.1f ms", totalLatency/count),
		fmt.Sprintf("Avg Rhythm: %.3f", totalRhythm/count),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrends prints feature trend plots across samples.
func RenderTrends(w io.Writer, samples []model.SampleAggregate, window, totalWidth, height int, useColor bool) error {
	if len(samples) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeries(w, "Feature Trends", TrendSeries(samples, window), width, height, useColor)
}

// RenderLetterTrends plots per-letter error rates across samples for the
// selected letters. Samples without attempts for a letter contribute a
// zero rate.
func RenderLetterTrends(w io.Writer, report Report, window, totalWidth, height int, useColor bool) error {
	if len(report.CurveLetters) == 0 || len(report.Samples) == 0 {
		return nil
	}
	series := make([]Series, 0, len(report.CurveLetters))
	for _, letter := range report.CurveLetters {
		values := make([]float64, len(report.Samples))
		for i, s := range report.Samples {
			if perSample, ok := report.LetterCurves[s.SampleID]; ok {
				values[i] = ErrorRate(perSample[letter]) * 100
			}
		}
		series = append(series, Series{Name: letter, Values: MovingAverage(values, window)})
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeries(w, "Per-Letter Error Rate (%)", series, width, height, useColor)
}

// RenderLetterTable prints per-letter aggregates sorted by severity.
func RenderLetterTable(w io.Writer, aggs []model.LetterAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No letter stats found.")
		return err
	}
	sorted := WeakestLetters(aggs, len(aggs))

	if _, err := fmt.Fprintln(w, "Per-Letter"); err != nil {
		return err
	}
	headers := []string{"Letter", "Error Rate", "Errors", "Attempts"}
	rows := make([][]string, 0, len(sorted))
	for _, agg := range sorted {
		rows = append(rows, []string{
			agg.Letter,
			fmt.Sprintf("%.2f%%", ErrorRate(agg)*100),
			fmt.Sprintf("%d", agg.Errors),
			fmt.Sprintf("%d", agg.Total),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderReport writes the full plain-text report.
func RenderReport(w io.Writer, report Report, window, totalWidth int) error {
	if err := RenderSummary(w, report.Samples); err != nil {
		return err
	}
	if err := RenderTrends(w, report.Samples, window, totalWidth, 0, ShouldColor(w)); err != nil {
		return err
	}
	if err := RenderLetterTrends(w, report, window, totalWidth, 0, ShouldColor(w)); err != nil {
		return err
	}
	return RenderLetterTable(w, report.LetterAggsAll)
}

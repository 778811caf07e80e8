package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotSeriesDimensions(t *testing.T) {
	var buf bytes.Buffer
	series := []Series{
		{Name: "CPM", Values: []float64{100, 120, 140, 130}},
		{Name: "Accuracy", Values: []float64{90, 95, 92, 97}},
	}
	if err := PlotSeries(&buf, "Trends", series, 20, 4, false); err != nil {
		t.Fatalf("plot: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// Title + 2 headers + 4 plot rows; the trailing blank line is trimmed.
	if len(lines) != 7 {
		t.Fatalf("expected 8 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Trends" {
		t.Fatalf("unexpected title line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "CPM: min=100.00 max=140.00") {
		t.Fatalf("unexpected header: %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "max | ") {
		t.Fatalf("first plot row must carry top axis label: %q", lines[3])
	}
	if !strings.HasPrefix(lines[6], "min | ") {
		t.Fatalf("last plot row must carry bottom axis label: %q", lines[6])
	}
}

func TestPlotSeriesSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Trends", []Series{{Name: "CPM"}}, 20, 4, false); err != nil {
		t.Fatalf("plot: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("all-empty series must produce no output: %q", buf.String())
	}
}

func TestPlotSeriesFlatLine(t *testing.T) {
	var buf bytes.Buffer
	series := []Series{{Name: "Rhythm", Values: []float64{0.5, 0.5, 0.5}}}
	if err := PlotSeries(&buf, "", series, 15, 3, false); err != nil {
		t.Fatalf("flat series must plot without dividing by zero: %v", err)
	}
	if !strings.Contains(buf.String(), "min=0.50 max=0.50") {
		t.Fatalf("unexpected header: %q", buf.String())
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(80); got != 74 {
		t.Fatalf("width for 80 columns: got %d, want 74", got)
	}
	if got := PlotWidthFor(5); got != minPlotWidth {
		t.Fatalf("narrow terminal must clamp: got %d", got)
	}
}

func TestResample(t *testing.T) {
	up := resample([]float64{0, 10}, 5)
	if len(up) != 5 || up[0] != 0 || up[4] != 10 {
		t.Fatalf("upsample: %v", up)
	}
	down := resample([]float64{1, 2, 3, 4}, 2)
	if len(down) != 2 || down[0] != 1.5 || down[1] != 3.5 {
		t.Fatalf("downsample: %v", down)
	}
}

package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight = 8
	minPlotWidth      = 10
	axisLabelTop      = "max"
	axisLabelBottom   = "min"
	axisSeparator     = " | "
	colorReset        = "\x1b[0m"
	fallbackTermWidth = 80
)

var plotColors = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
	"\x1b[34m", // blue
}

// PlotSeries renders a braille text plot for the provided series. Each
// series is scaled to its own min/max; the ranges are printed above the
// plot. Zero width picks a width from the terminal.
func PlotSeries(w io.Writer, title string, series []Series, width, height int, useColor bool) error {
	kept := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}

	cells := make([][]cell, height)
	for y := range cells {
		cells[y] = make([]cell, width)
	}
	for si, s := range kept {
		lo, hi := seriesRange(s.Values)
		if _, err := fmt.Fprintf(w, "%s%s: min=%.2f max=%.2f%s\n",
			colorFor(si, useColor), s.Name, lo, hi, resetFor(useColor)); err != nil {
			return err
		}
		if math.Abs(hi-lo) < 1e-9 {
			lo--
			hi++
		}
		values := resample(s.Values, width)
		prevX, prevY := -1, -1
		for x, v := range values {
			pos := (v - lo) / (hi - lo)
			dotY := int(math.Round((1 - pos) * float64(height*4-1)))
			dotX := x * 2
			if prevX >= 0 {
				drawLine(prevX, prevY, dotX, dotY, func(dx, dy int) {
					setDot(cells, dx, dy, si)
				})
			} else {
				setDot(cells, dotX, dotY, si)
			}
			prevX, prevY = dotX, dotY
		}
	}

	axisWidth := utf8.RuneCountInString(axisLabelTop)
	for y := 0; y < height; y++ {
		label := ""
		if y == 0 {
			label = axisLabelTop
		}
		if y == height-1 {
			label = axisLabelBottom
		}
		var row strings.Builder
		fmt.Fprintf(&row, "%*s%s", axisWidth, label, axisSeparator)
		for x := 0; x < width; x++ {
			c := cells[y][x]
			ch := rune(0x2800 + int(c.mask))
			if useColor && c.mask != 0 {
				row.WriteString(plotColors[c.series%len(plotColors)])
				row.WriteRune(ch)
				row.WriteString(colorReset)
			} else {
				row.WriteRune(ch)
			}
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

type cell struct {
	mask   uint8
	series int
}

func colorFor(i int, useColor bool) string {
	if !useColor {
		return ""
	}
	return plotColors[i%len(plotColors)]
}

func resetFor(useColor bool) string {
	if !useColor {
		return ""
	}
	return colorReset
}

// PlotWidthFor computes a plot width that fits within the total
// available width.
func PlotWidthFor(totalWidth int) int {
	axisWidth := utf8.RuneCountInString(axisLabelTop) + utf8.RuneCountInString(axisSeparator)
	plotWidth := totalWidth - axisWidth
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

// ShouldColor reports whether the writer is a color-capable terminal.
func ShouldColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTermWidth
	}
	return width
}

func seriesRange(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// resample stretches or averages values to exactly width points.
func resample(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	if len(values) == width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	if len(values) > width {
		for i := 0; i < width; i++ {
			start := i * len(values) / width
			end := (i + 1) * len(values) / width
			if end <= start {
				end = start + 1
			}
			if end > len(values) {
				end = len(values)
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	if len(values) == 1 || width == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	for i := 0; i < width; i++ {
		pos := float64(i) * float64(len(values)-1) / float64(width-1)
		idx := int(math.Floor(pos))
		if idx >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

func setDot(cells [][]cell, x, y, series int) {
	if x < 0 || y < 0 {
		return
	}
	cellY, cellX := y/4, x/2
	if cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	c := &cells[cellY][cellX]
	if c.mask == 0 {
		c.series = series
	}
	c.mask |= brailleDotMask(x%2, y%4)
}

func brailleDotMask(x, y int) uint8 {
	masks := [2][4]uint8{
		{0x01, 0x02, 0x04, 0x40},
		{0x08, 0x10, 0x20, 0x80},
	}
	if x < 0 || x > 1 || y < 0 || y > 3 {
		return 0
	}
	return masks[x][y]
}

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				break
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				break
			}
			err += dx
			y0 += sy
		}
	}
}

package stats

import (
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"keyprint/internal/model"
)

// SeverityHue maps a per-letter error rate in [0,1] to an HSL hue:
// 120 (green) for a clean letter down to 0 (red) for a hopeless one.
func SeverityHue(rate float64) float64 {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return (1 - rate) * 120
}

// SeverityColor renders the severity hue as a hex color for terminal
// styling.
func SeverityColor(rate float64) string {
	return colorful.Hsl(SeverityHue(rate), 0.7, 0.5).Hex()
}

// ErrorRate reports errors/total in [0,1] for a letter aggregate.
func ErrorRate(agg model.LetterAggregate) float64 {
	if agg.Total == 0 {
		return 0
	}
	return float64(agg.Errors) / float64(agg.Total)
}

// WeakestLetters returns up to top letters ordered by highest error
// rate, attempts breaking ties.
func WeakestLetters(aggs []model.LetterAggregate, top int) []model.LetterAggregate {
	if len(aggs) == 0 || top <= 0 {
		return nil
	}
	sorted := append([]model.LetterAggregate(nil), aggs...)
	sort.Slice(sorted, func(i, j int) bool {
		ri, rj := ErrorRate(sorted[i]), ErrorRate(sorted[j])
		if ri == rj {
			if sorted[i].Total == sorted[j].Total {
				return sorted[i].Letter < sorted[j].Letter
			}
			return sorted[i].Total > sorted[j].Total
		}
		return ri > rj
	})
	if top > len(sorted) {
		top = len(sorted)
	}
	return sorted[:top]
}

// TopLettersByAttempts returns the top N letters by total attempts.
func TopLettersByAttempts(aggs []model.LetterAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	sorted := append([]model.LetterAggregate(nil), aggs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Total == sorted[j].Total {
			return sorted[i].Letter < sorted[j].Letter
		}
		return sorted[i].Total > sorted[j].Total
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sorted[i].Letter)
	}
	return out
}

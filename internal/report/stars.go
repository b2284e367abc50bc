package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultStarLevels are the significance levels for *, ** and ***, loosest last.
var DefaultStarLevels = []float64{0.01, 0.05, 0.10}

// Stars returns one star per level that p falls below. NaN gets none.
func Stars(p float64, levels []float64) string {
	if math.IsNaN(p) {
		return ""
	}
	n := 0
	for _, l := range levels {
		if p < l {
			n++
		}
	}
	return strings.Repeat("*", n)
}

func sortedLevels(levels []float64) []float64 {
	if len(levels) == 0 {
		levels = DefaultStarLevels
	}
	out := append([]float64(nil), levels...)
	sort.Float64s(out)
	return out
}

// starLegend renders e.g. "* p<0.1, ** p<0.05, *** p<0.01".
func starLegend(levels []float64) string {
	parts := make([]string, 0, len(levels))
	for i := len(levels) - 1; i >= 0; i-- {
		parts = append(parts, fmt.Sprintf("%s p<%g", strings.Repeat("*", len(levels)-i), levels[i]))
	}
	return strings.Join(parts, ", ")
}

// escapeStars keeps significance stars literal in Markdown.
func escapeStars(s string) string { return strings.ReplaceAll(s, "*", `\*`) }

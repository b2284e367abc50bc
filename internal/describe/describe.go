// Package describe computes descriptive statistics for numeric columns.
package describe

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Options controls robust outlier detection.
type Options struct {
	// OutlierThreshold is the robust |z| above which a value counts as an outlier.
	OutlierThreshold float64
	// MinOutlierSample is the smallest sample on which outliers are counted.
	MinOutlierSample int
}

// DefaultOptions returns the usual 3.5 robust-z threshold on samples of 8 or more.
func DefaultOptions() Options {
	return Options{OutlierThreshold: 3.5, MinOutlierSample: 8}
}

// Summary holds the descriptive statistics of one numeric column.
type Summary struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
	// Outliers (robust Z via MAD); zero threshold means not computed.
	Outliers         int     `json:"outliers"`
	OutliersMaxAbsZ  float64 `json:"outliers_max_abs_z"`
	OutlierThreshold float64 `json:"outlier_threshold"`
}

// Describe summarizes values. Std is the sample standard deviation (n-1).
// Quartiles use linear interpolation between order statistics.
func Describe(name string, values []float64, opt Options) Summary {
	nan := math.NaN()
	s := Summary{Name: name, Count: len(values), Mean: nan, Std: nan, Min: nan, Q25: nan, Median: nan, Q75: nan, Max: nan}
	if len(values) == 0 {
		return s
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s.Mean, s.Std = stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		s.Std = nan
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q25 = Quantile(sorted, 0.25)
	s.Median = Quantile(sorted, 0.5)
	s.Q75 = Quantile(sorted, 0.75)

	if opt.OutlierThreshold > 0 && len(values) >= opt.MinOutlierSample {
		median, mad := medianMAD(sorted)
		s.OutlierThreshold = opt.OutlierThreshold
		if mad > 0 {
			for _, v := range sorted {
				az := math.Abs(0.6745 * (v - median) / mad)
				if az > opt.OutlierThreshold {
					s.Outliers++
				}
				if az > s.OutliersMaxAbsZ {
					s.OutliersMaxAbsZ = az
				}
			}
		}
	}
	return s
}

// Quantile returns the q-th quantile of an ascending slice, interpolating
// linearly at position q*(n-1). Positions within 1e-9 of an order statistic
// snap to it, so 1/3 of 6 intervals lands exactly on the third value.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	if r := math.Round(pos); math.Abs(pos-r) < 1e-9 {
		pos = r
	}
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// medianMAD computes the median and the median absolute deviation of sorted values.
func medianMAD(sorted []float64) (median, mad float64) {
	median = Quantile(sorted, 0.5)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = Quantile(dev, 0.5)
	return
}

// Frame is an ordered set of column summaries rendered side by side.
type Frame []Summary

// Markdown renders the frame as a table with one column per variable and
// one row per statistic.
func (f Frame) Markdown() string {
	if len(f) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("| |")
	for _, s := range f {
		b.WriteString(" " + safeName(s.Name) + " |")
	}
	b.WriteString("\n|---|")
	for range f {
		b.WriteString("---:|")
	}
	b.WriteString("\n")

	rows := []struct {
		label string
		get   func(Summary) string
	}{
		{"count", func(s Summary) string { return fmt.Sprintf("%d", s.Count) }},
		{"mean", func(s Summary) string { return num(s.Mean) }},
		{"std", func(s Summary) string { return num(s.Std) }},
		{"min", func(s Summary) string { return num(s.Min) }},
		{"25%", func(s Summary) string { return num(s.Q25) }},
		{"50%", func(s Summary) string { return num(s.Median) }},
		{"75%", func(s Summary) string { return num(s.Q75) }},
		{"max", func(s Summary) string { return num(s.Max) }},
	}
	for _, r := range rows {
		b.WriteString("| " + r.label + " |")
		for _, s := range f {
			b.WriteString(" " + r.get(s) + " |")
		}
		b.WriteString("\n")
	}
	if f.hasOutliers() {
		b.WriteString("| outliers |")
		for _, s := range f {
			if s.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf(" %d (z>%.1f) |", s.Outliers, s.OutlierThreshold))
			} else {
				b.WriteString(" - |")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (f Frame) hasOutliers() bool {
	for _, s := range f {
		if s.OutlierThreshold > 0 {
			return true
		}
	}
	return false
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.6g", v)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return strings.ReplaceAll(s, "|", "/")
}

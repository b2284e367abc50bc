package describe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe_Basic(t *testing.T) {
	s := Describe("v", []float64{5, 1, 4, 2, 3}, DefaultOptions())
	require.Equal(t, 5, s.Count)

	checks := []struct {
		name      string
		got, want float64
	}{
		{"mean", s.Mean, 3},
		{"std", s.Std, math.Sqrt(2.5)},
		{"min", s.Min, 1},
		{"q25", s.Q25, 2},
		{"median", s.Median, 3},
		{"q75", s.Q75, 4},
		{"max", s.Max, 5},
	}
	for _, c := range checks {
		assert.InDelta(t, c.want, c.got, 1e-12, c.name)
	}
	assert.Zero(t, s.OutlierThreshold, "outliers are not computed on 5 values")
}

func TestDescribe_RobustOutliers(t *testing.T) {
	vals := []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50}
	s := Describe("score", vals, DefaultOptions())

	assert.Equal(t, 1, s.Outliers)
	// median 10, MAD 0.5
	assert.InDelta(t, 0.6745*40/0.5, s.OutliersMaxAbsZ, 1e-9)
	assert.Equal(t, 3.5, s.OutlierThreshold)
}

func TestDescribe_EmptyAndSingle(t *testing.T) {
	e := Describe("empty", nil, DefaultOptions())
	assert.Zero(t, e.Count)
	assert.True(t, math.IsNaN(e.Mean))
	assert.True(t, math.IsNaN(e.Max))

	one := Describe("one", []float64{7}, DefaultOptions())
	assert.Equal(t, 7.0, one.Mean)
	assert.Equal(t, 7.0, one.Min)
	assert.Equal(t, 7.0, one.Max)
	assert.True(t, math.IsNaN(one.Std), "std of one value")
}

func TestQuantile_LinearInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	tests := []struct {
		q, want float64
	}{
		{0, 1},
		{1.0 / 3, 2},
		{0.5, 2.5},
		{2.0 / 3, 3},
		{0.9, 3.7},
		{1, 4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Quantile(sorted, tt.q), 1e-12, "q=%v", tt.q)
	}
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestQuantile_SnapsToOrderStatistic(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7}
	assert.Equal(t, 3.0, Quantile(sorted, 1.0/3))
	assert.Equal(t, 5.0, Quantile(sorted, 2.0/3))
}

func TestFrame_Markdown(t *testing.T) {
	f := Frame{
		Describe("Malnutrition_Death_Rate", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, DefaultOptions()),
		Describe("Health|Expenditure", []float64{2, 4}, DefaultOptions()),
	}
	md := f.Markdown()
	for _, want := range []string{
		"| | Malnutrition_Death_Rate | Health/Expenditure |",
		"| count | 9 | 2 |",
		"| mean | 5 | 3 |",
		"| 50% | 5 | 3 |",
		"| outliers | 0 (z>3.5) | - |",
	} {
		assert.Contains(t, md, want)
	}
	assert.Empty(t, Frame(nil).Markdown())
}

// Package report renders an analysis as Markdown and JSON.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/healthgap-cli/internal/dataset"
	"github.com/KaramelBytes/healthgap-cli/internal/grouping"
	"github.com/KaramelBytes/healthgap-cli/internal/pipeline"
)

// Options controls what Markdown includes.
type Options struct {
	StarLevels []float64
	// Stats, when set, adds the data lineage section.
	Stats *dataset.Stats
	// Figures are paths listed at the end of the report.
	Figures []string
}

const predictorLabel = "HealthExpenditureGDP"

// RegressionTable renders the per-group coefficients side by side with
// robust standard errors in parentheses.
func RegressionTable(a *pipeline.Analysis, levels []float64) string {
	levels = sortedLevels(levels)
	groups := a.Ordered()
	var b strings.Builder

	b.WriteString("| |")
	for _, ga := range groups {
		b.WriteString(" " + ga.Group.String() + " |")
	}
	b.WriteString("\n|---|")
	for range groups {
		b.WriteString("---:|")
	}
	b.WriteString("\n")

	row := func(label string, cell func(*pipeline.GroupAnalysis) string) {
		b.WriteString(strings.TrimRight("| "+label, " ") + " |")
		for _, ga := range groups {
			v := "n/a"
			if ga.Model != nil {
				v = cell(ga)
			}
			b.WriteString(" " + v + " |")
		}
		b.WriteString("\n")
	}
	for i, label := range []string{"Intercept", predictorLabel} {
		row(label, func(ga *pipeline.GroupAnalysis) string {
			p := ga.Model.PValues()[i]
			return escapeStars(fmt.Sprintf("%.4f%s", ga.Model.Params()[i], Stars(p, levels)))
		})
		row("", func(ga *pipeline.GroupAnalysis) string {
			return fmt.Sprintf("(%.4f)", ga.Model.StdErrors()[i])
		})
	}
	row("R-squared", func(ga *pipeline.GroupAnalysis) string { return fmt.Sprintf("%.4f", ga.Model.RSquared()) })
	row("R-squared Adj.", func(ga *pipeline.GroupAnalysis) string { return fmt.Sprintf("%.4f", ga.Model.AdjRSquared()) })
	row("N", func(ga *pipeline.GroupAnalysis) string { return fmt.Sprintf("%d", ga.Model.N()) })
	row("R2", func(ga *pipeline.GroupAnalysis) string { return fmt.Sprintf("%.2f", ga.Model.RSquared()) })

	b.WriteString("\nStandard errors in parentheses (HC0 robust).\n")
	b.WriteString(escapeStars(starLegend(levels)) + "\n")
	writeNotes(&b, groups, "omitted", func(ga *pipeline.GroupAnalysis) bool { return ga.Model == nil })
	return b.String()
}

// writeNotes lists the error of every group for which missing is true.
func writeNotes(b *strings.Builder, groups []*pipeline.GroupAnalysis, verb string, missing func(*pipeline.GroupAnalysis) bool) {
	var notes []string
	for _, ga := range groups {
		if missing(ga) && ga.Err != nil {
			notes = append(notes, fmt.Sprintf("- %s %s: %v", ga.Group, verb, ga.Err))
		}
	}
	if len(notes) > 0 {
		b.WriteString("\n" + strings.Join(notes, "\n") + "\n")
	}
}

// BreuschPaganSection renders the four test statistics per group to four
// decimals.
func BreuschPaganSection(a *pipeline.Analysis) string {
	groups := a.Ordered()
	var b strings.Builder
	if a.RobustBP {
		b.WriteString("Koenker (studentized) variant: LM = n·R² of the regression of squared residuals on the design.\n\n")
	} else {
		b.WriteString("Classic variant: LM = ESS/2 of the regression of mean-scaled squared residuals on the design.\n\n")
	}
	b.WriteString("| |")
	for _, ga := range groups {
		b.WriteString(" " + ga.Group.String() + " |")
	}
	b.WriteString("\n|---|")
	for range groups {
		b.WriteString("---:|")
	}
	b.WriteString("\n")
	stats := []struct {
		label string
		get   func(*pipeline.GroupAnalysis) float64
	}{
		{"LM Statistic", func(ga *pipeline.GroupAnalysis) float64 { return ga.Diagnostic.LM }},
		{"LM-Test p-value", func(ga *pipeline.GroupAnalysis) float64 { return ga.Diagnostic.LMPValue }},
		{"F-Statistic", func(ga *pipeline.GroupAnalysis) float64 { return ga.Diagnostic.F }},
		{"F-Test p-value", func(ga *pipeline.GroupAnalysis) float64 { return ga.Diagnostic.FPValue }},
	}
	for _, s := range stats {
		b.WriteString("| " + s.label + " |")
		for _, ga := range groups {
			if ga.Diagnostic == nil {
				b.WriteString(" n/a |")
				continue
			}
			b.WriteString(" " + fixed4(s.get(ga)) + " |")
		}
		b.WriteString("\n")
	}
	writeNotes(&b, groups, "not tested", func(ga *pipeline.GroupAnalysis) bool { return ga.Diagnostic == nil })
	return b.String()
}

func fixed4(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.4f", v)
}

// Markdown renders the full report.
func Markdown(a *pipeline.Analysis, opt Options) string {
	var b strings.Builder
	title := "# Health expenditure and malnutrition mortality by GDP group"
	if a.Year != 0 {
		title += fmt.Sprintf(" (%d)", a.Year)
	}
	b.WriteString(title + "\n\n")
	b.WriteString(fmt.Sprintf("Run ID: `%s`\n\n", a.RunID))

	if s := opt.Stats; s != nil {
		b.WriteString("## Data\n\n")
		b.WriteString(fmt.Sprintf("- Rows read: %d death rate, %d health expenditure, %d GDP per capita\n", s.DeathRows, s.HealthRows, s.GDPRows))
		if s.SkippedRows > 0 {
			b.WriteString(fmt.Sprintf("- Rows skipped (no entity or year): %d\n", s.SkippedRows))
		}
		b.WriteString(fmt.Sprintf("- Country-years after merge: %d\n", s.Merged))
		b.WriteString(fmt.Sprintf("- In analysed year: %d\n", s.InYear))
		b.WriteString(fmt.Sprintf("- Dropped for missing values: %d\n", s.Dropped))
		b.WriteString(fmt.Sprintf("- Countries analysed: %d\n\n", s.Kept))
	}

	b.WriteString("## GDP tertiles\n\n")
	b.WriteString("| Group | GDP per capita | N |\n|---|---|---:|\n")
	bd := a.Bounds
	ranges := map[grouping.Group]string{
		grouping.Low:    fmt.Sprintf("[%.2f, %.2f]", bd.Min, bd.Lower),
		grouping.Medium: fmt.Sprintf("(%.2f, %.2f]", bd.Lower, bd.Upper),
		grouping.High:   fmt.Sprintf("(%.2f, %.2f]", bd.Upper, bd.Max),
	}
	for _, ga := range a.Ordered() {
		b.WriteString(fmt.Sprintf("| %s | %s | %d |\n", ga.Group, ranges[ga.Group], ga.N()))
	}

	b.WriteString("\n## Overall summary statistics\n\n")
	b.WriteString(a.Overall.Markdown())

	b.WriteString("\n## Summary by GDP group\n")
	for _, ga := range a.Ordered() {
		b.WriteString(fmt.Sprintf("\n### %s\n\n", ga.Group))
		b.WriteString(ga.Summary.Markdown())
	}

	b.WriteString("\n## Regression results\n\n")
	b.WriteString(fmt.Sprintf("OLS of %s on %s per GDP group.\n\n", dataset.DeathRate, dataset.HealthExpenditure))
	b.WriteString(RegressionTable(a, opt.StarLevels))

	b.WriteString("\n## Breusch-Pagan test\n\n")
	b.WriteString(BreuschPaganSection(a))

	if len(opt.Figures) > 0 {
		b.WriteString("\n## Figures\n\n")
		for _, f := range opt.Figures {
			b.WriteString(fmt.Sprintf("- %s\n", f))
		}
	}
	return b.String()
}

package report

import (
	"math"

	"github.com/KaramelBytes/healthgap-cli/internal/dataset"
	"github.com/KaramelBytes/healthgap-cli/internal/describe"
	"github.com/KaramelBytes/healthgap-cli/internal/grouping"
	"github.com/KaramelBytes/healthgap-cli/internal/pipeline"
	"github.com/KaramelBytes/healthgap-cli/internal/utils"
)

// Document is the JSON form of an analysis. Non-finite numbers are null.
type Document struct {
	RunID    string          `json:"run_id"`
	Year     int             `json:"year"`
	N        int             `json:"n"`
	Bounds   grouping.Bounds `json:"gdp_tertiles"`
	RobustBP bool            `json:"robust_bp"`
	Stats    *dataset.Stats  `json:"stats,omitempty"`
	Overall  []SummaryJSON   `json:"overall"`
	Groups   []GroupJSON     `json:"groups"`
}

type SummaryJSON struct {
	Name     string   `json:"name"`
	Count    int      `json:"count"`
	Mean     *float64 `json:"mean"`
	Std      *float64 `json:"std"`
	Min      *float64 `json:"min"`
	Q25      *float64 `json:"q25"`
	Median   *float64 `json:"median"`
	Q75      *float64 `json:"q75"`
	Max      *float64 `json:"max"`
	Outliers *int     `json:"outliers,omitempty"`
}

type GroupJSON struct {
	Group      grouping.Group    `json:"group"`
	N          int               `json:"n"`
	Countries  []string          `json:"countries"`
	Summary    []SummaryJSON     `json:"summary"`
	Regression *RegressionJSON   `json:"regression,omitempty"`
	BP         *BreuschPaganJSON `json:"breusch_pagan,omitempty"`
	Error      string            `json:"error,omitempty"`
}

type RegressionJSON struct {
	Intercept   CoefJSON       `json:"intercept"`
	Slope       CoefJSON       `json:"health_expenditure_gdp"`
	RSquared    *float64       `json:"r_squared"`
	AdjRSquared *float64       `json:"adj_r_squared"`
	N           int            `json:"n"`
	Cov         [2][2]*float64 `json:"cov_hc0"`
}

type CoefJSON struct {
	Estimate *float64 `json:"estimate"`
	StdErr   *float64 `json:"std_err"`
	Z        *float64 `json:"z"`
	PValue   *float64 `json:"p_value"`
	Stars    string   `json:"stars"`
}

type BreuschPaganJSON struct {
	LM       *float64 `json:"lm"`
	LMPValue *float64 `json:"lm_pvalue"`
	F        *float64 `json:"f"`
	FPValue  *float64 `json:"f_pvalue"`
	DF1      int      `json:"df1"`
	DF2      int      `json:"df2"`
}

// NewDocument converts an analysis into its JSON form.
func NewDocument(a *pipeline.Analysis, stats *dataset.Stats, levels []float64) Document {
	levels = sortedLevels(levels)
	doc := Document{
		RunID:    a.RunID,
		Year:     a.Year,
		N:        a.N,
		Bounds:   a.Bounds,
		RobustBP: a.RobustBP,
		Stats:    stats,
		Overall:  Summaries(a.Overall),
	}
	for _, ga := range a.Ordered() {
		g := GroupJSON{Group: ga.Group, N: ga.N(), Summary: Summaries(ga.Summary)}
		for _, o := range ga.Observations {
			g.Countries = append(g.Countries, o.Country)
		}
		if m := ga.Model; m != nil {
			params, se, z, p := m.Params(), m.StdErrors(), m.ZStats(), m.PValues()
			coef := func(i int) CoefJSON {
				return CoefJSON{Estimate: num(params[i]), StdErr: num(se[i]), Z: num(z[i]), PValue: num(p[i]), Stars: Stars(p[i], levels)}
			}
			cov := m.Cov()
			g.Regression = &RegressionJSON{
				Intercept:   coef(0),
				Slope:       coef(1),
				RSquared:    num(m.RSquared()),
				AdjRSquared: num(m.AdjRSquared()),
				N:           m.N(),
				Cov: [2][2]*float64{
					{num(cov.At(0, 0)), num(cov.At(0, 1))},
					{num(cov.At(1, 0)), num(cov.At(1, 1))},
				},
			}
		}
		if d := ga.Diagnostic; d != nil {
			g.BP = &BreuschPaganJSON{LM: num(d.LM), LMPValue: num(d.LMPValue), F: num(d.F), FPValue: num(d.FPValue), DF1: d.DF1, DF2: d.DF2}
		}
		if ga.Err != nil {
			g.Error = ga.Err.Error()
		}
		doc.Groups = append(doc.Groups, g)
	}
	return doc
}

// WriteJSON writes the analysis as indented JSON to path.
func WriteJSON(path string, a *pipeline.Analysis, stats *dataset.Stats, levels []float64) error {
	b, err := utils.PrettyJSON(NewDocument(a, stats, levels))
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, append(b, '\n'))
}

// Summaries converts a frame to its JSON form.
func Summaries(f describe.Frame) []SummaryJSON {
	out := make([]SummaryJSON, len(f))
	for i, s := range f {
		out[i] = SummaryJSON{
			Name: s.Name, Count: s.Count,
			Mean: num(s.Mean), Std: num(s.Std), Min: num(s.Min),
			Q25: num(s.Q25), Median: num(s.Median), Q75: num(s.Q75), Max: num(s.Max),
		}
		if s.OutlierThreshold > 0 {
			n := s.Outliers
			out[i].Outliers = &n
		}
	}
	return out
}

func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

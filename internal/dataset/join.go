package dataset

import "math"

// Row is a joined country-year whose values may still be missing (NaN).
type Row struct {
	Country               string
	Year                  int
	MalnutritionDeathRate float64
	HealthExpenditureGDP  float64
	GDPPerCapita          float64
}

// Observation is a complete joined country-year.
type Observation struct {
	Country               string  `json:"country"`
	Year                  int     `json:"year"`
	MalnutritionDeathRate float64 `json:"malnutrition_death_rate"`
	HealthExpenditureGDP  float64 `json:"health_expenditure_gdp"`
	GDPPerCapita          float64 `json:"gdp_per_capita"`
}

// Merge inner-joins the three series on (Country, Year). Rows follow the
// order of death; a key present several times in a table yields one row per
// combination of matches.
func Merge(death, health, gdp *Series) []Row {
	hIdx := health.index()
	gIdx := gdp.index()
	var out []Row
	for i, k := range death.Keys {
		hs, ok := hIdx[k]
		if !ok {
			continue
		}
		gs, ok := gIdx[k]
		if !ok {
			continue
		}
		for _, h := range hs {
			for _, g := range gs {
				out = append(out, Row{
					Country:               k.Country,
					Year:                  k.Year,
					MalnutritionDeathRate: death.Values[i],
					HealthExpenditureGDP:  health.Values[h],
					GDPPerCapita:          gdp.Values[g],
				})
			}
		}
	}
	return out
}

// FilterYear keeps the rows of the given year, preserving order.
func FilterYear(rows []Row, year int) []Row {
	var out []Row
	for _, r := range rows {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out
}

// DropMissing converts rows with all three values finite into observations
// and reports how many rows were dropped.
func DropMissing(rows []Row) ([]Observation, int) {
	out := make([]Observation, 0, len(rows))
	for _, r := range rows {
		if !finite(r.MalnutritionDeathRate) || !finite(r.HealthExpenditureGDP) || !finite(r.GDPPerCapita) {
			continue
		}
		out = append(out, Observation(r))
	}
	return out, len(rows) - len(out)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Column extracts one variable from observations by canonical name. It
// returns nil for unknown names.
func Column(obs []Observation, name string) []float64 {
	var get func(Observation) float64
	switch name {
	case DeathRate:
		get = func(o Observation) float64 { return o.MalnutritionDeathRate }
	case HealthExpenditure:
		get = func(o Observation) float64 { return o.HealthExpenditureGDP }
	case GDPPerCapita:
		get = func(o Observation) float64 { return o.GDPPerCapita }
	default:
		return nil
	}
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = get(o)
	}
	return out
}

package dataset

import (
	"errors"
	"fmt"
)

// Sources are the three inputs of an analysis.
type Sources struct {
	DeathRate         Source
	HealthExpenditure Source
	GDPPerCapita      Source
}

// Stats records how many rows survive each stage of Load.
type Stats struct {
	DeathRows   int `json:"death_rows"`
	HealthRows  int `json:"health_rows"`
	GDPRows     int `json:"gdp_rows"`
	SkippedRows int `json:"skipped_rows"`
	Merged      int `json:"merged"`
	InYear      int `json:"in_year"`
	Dropped     int `json:"dropped"`
	Kept        int `json:"kept"`
}

// Dataset is the cleaned cross-section of one year.
type Dataset struct {
	Year         int
	Observations []Observation
	Stats        Stats
}

// ErrNoObservations indicates nothing survived the join, year filter and
// missing-value drop.
var ErrNoObservations = errors.New("no complete observations")

// Load reads the three sources, joins them, keeps year and drops rows with
// missing values.
func Load(src Sources, opt ReadOptions, year int) (*Dataset, error) {
	death, err := LoadSeries(src.DeathRate, opt)
	if err != nil {
		return nil, err
	}
	health, err := LoadSeries(src.HealthExpenditure, opt)
	if err != nil {
		return nil, err
	}
	gdp, err := LoadSeries(src.GDPPerCapita, opt)
	if err != nil {
		return nil, err
	}
	return Assemble(death, health, gdp, year)
}

// Assemble runs the join, filter and drop stages on already loaded series.
func Assemble(death, health, gdp *Series, year int) (*Dataset, error) {
	merged := Merge(death, health, gdp)
	inYear := FilterYear(merged, year)
	obs, dropped := DropMissing(inYear)

	ds := &Dataset{
		Year:         year,
		Observations: obs,
		Stats: Stats{
			DeathRows:   death.Rows,
			HealthRows:  health.Rows,
			GDPRows:     gdp.Rows,
			SkippedRows: death.Skipped + health.Skipped + gdp.Skipped,
			Merged:      len(merged),
			InYear:      len(inYear),
			Dropped:     dropped,
			Kept:        len(obs),
		},
	}
	if len(obs) == 0 {
		return ds, fmt.Errorf("year %d: %w (merged %d rows, %d in year)", year, ErrNoObservations, len(merged), len(inYear))
	}
	return ds, nil
}

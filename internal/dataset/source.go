package dataset

import (
	"fmt"
	"math"
	"strings"
)

// Canonical names of the three analysis variables.
const (
	DeathRate         = "Malnutrition_Death_Rate"
	HealthExpenditure = "Health_Expenditure_GDP"
	GDPPerCapita      = "GDP_per_capita"
)

// Source names one input file and the columns to project from it.
type Source struct {
	// Name is the canonical variable the value column is renamed to.
	Name         string
	Path         string
	EntityColumn string
	YearColumn   string
	ValueColumn  string
}

// Key identifies a country-year.
type Key struct {
	Country string
	Year    int
}

// Series is one projected input: a value per key, in file order. Values that
// are empty or not numeric are NaN.
type Series struct {
	Name   string
	Keys   []Key
	Values []float64
	// Rows is the number of data rows read from the file.
	Rows int
	// Skipped counts rows dropped for an empty entity or an unparsable year.
	Skipped int
}

// Len returns the number of kept rows.
func (s *Series) Len() int { return len(s.Keys) }

// LoadSeries reads src.Path and projects it to (Country, Year, value).
func LoadSeries(src Source, opt ReadOptions) (*Series, error) {
	t, err := ReadTable(src.Path, opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Name, err)
	}
	return ProjectSeries(t, src, opt.Number)
}

// ProjectSeries selects the entity, year and value columns of t. Header
// matching is case-insensitive.
func ProjectSeries(t *Table, src Source, nf NumberFormat) (*Series, error) {
	ec, err := t.Column(src.EntityColumn)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Name, err)
	}
	yc, err := t.Column(src.YearColumn)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Name, err)
	}
	vc, err := t.Column(src.ValueColumn)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Name, err)
	}

	s := &Series{Name: src.Name, Rows: len(t.Rows)}
	for _, row := range t.Rows {
		country := strings.TrimSpace(row[ec])
		year, ok := ParseYear(row[yc])
		if country == "" || !ok {
			s.Skipped++
			continue
		}
		v, ok := ParseNumber(row[vc], nf)
		if !ok {
			v = math.NaN()
		}
		s.Keys = append(s.Keys, Key{Country: country, Year: year})
		s.Values = append(s.Values, v)
	}
	return s, nil
}

// index maps each key to the positions it occurs at, in file order.
func (s *Series) index() map[Key][]int {
	idx := make(map[Key][]int, len(s.Keys))
	for i, k := range s.Keys {
		idx[k] = append(idx[k], i)
	}
	return idx
}

// Package dataset loads, projects and joins the country-year tables the
// analysis runs on.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrColumnNotFound indicates a requested column is absent from a table header.
var ErrColumnNotFound = errors.New("column not found")

// Table is a header plus string rows, every row padded to the header width.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column, matching case-insensitively
// after trimming spaces.
func (t *Table) Column(name string) (int, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.Header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q in %s (have: %s)", ErrColumnNotFound, name, t.Name, strings.Join(t.Header, ", "))
}

// Floats parses a column as numbers. Missing or unparsable cells become NaN
// and are counted in missing.
func (t *Table) Floats(col int, nf NumberFormat) (vals []float64, missing int) {
	vals = make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		v, ok := ParseNumber(row[col], nf)
		if !ok {
			vals[i] = nan
			missing++
			continue
		}
		vals[i] = v
	}
	return vals, missing
}

func normalizeRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

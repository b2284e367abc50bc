// Package grouping buckets observations into GDP-per-capita tertiles.
package grouping

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/healthgap-cli/internal/dataset"
	"github.com/KaramelBytes/healthgap-cli/internal/describe"
)

// Group is a GDP tertile.
type Group int

const (
	Low Group = iota
	Medium
	High
)

// All lists the groups in reporting order.
var All = []Group{Low, Medium, High}

var labels = [...]string{"Low-GDP", "Medium-GDP", "High-GDP"}

func (g Group) String() string {
	if g < Low || g > High {
		return fmt.Sprintf("Group(%d)", int(g))
	}
	return labels[g]
}

// ParseGroup accepts "Low-GDP", "low" and similar spellings.
func ParseGroup(s string) (Group, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, "-gdp")
	switch key {
	case "low":
		return Low, nil
	case "medium", "mid":
		return Medium, nil
	case "high":
		return High, nil
	}
	return 0, fmt.Errorf("unknown GDP group %q", s)
}

func (g Group) MarshalText() ([]byte, error) {
	if g < Low || g > High {
		return nil, fmt.Errorf("invalid group %d", int(g))
	}
	return []byte(g.String()), nil
}

func (g *Group) UnmarshalText(b []byte) error {
	v, err := ParseGroup(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

var (
	// ErrEmpty indicates there were no values to split.
	ErrEmpty = errors.New("no values to group")
	// ErrDuplicateEdges indicates the tertile edges are not distinct.
	ErrDuplicateEdges = errors.New("tertile edges are not unique")
)

// Bounds are the tertile edges. Bins are [Min, Lower], (Lower, Upper],
// (Upper, Max].
type Bounds struct {
	Min   float64 `json:"min"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Max   float64 `json:"max"`
}

// Tertiles computes the 1/3 and 2/3 quantiles of values by linear
// interpolation.
func Tertiles(values []float64) (Bounds, error) {
	if len(values) == 0 {
		return Bounds{}, ErrEmpty
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	for _, v := range sorted {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Bounds{}, fmt.Errorf("tertiles: non-finite value %v", v)
		}
	}
	b := Bounds{
		Min:   sorted[0],
		Lower: describe.Quantile(sorted, 1.0/3),
		Upper: describe.Quantile(sorted, 2.0/3),
		Max:   sorted[len(sorted)-1],
	}
	if !(b.Min < b.Lower && b.Lower < b.Upper && b.Upper < b.Max) {
		return b, fmt.Errorf("%w: %g, %g, %g, %g", ErrDuplicateEdges, b.Min, b.Lower, b.Upper, b.Max)
	}
	return b, nil
}

// Classify returns the group of v. Values on an edge go to the lower group.
func (b Bounds) Classify(v float64) Group {
	switch {
	case v <= b.Lower:
		return Low
	case v <= b.Upper:
		return Medium
	default:
		return High
	}
}

// Partition is the group assignment of a set of observations.
type Partition struct {
	Bounds Bounds
	obs    []dataset.Observation
	labels []Group
}

// Assign computes tertiles of GDP per capita over obs and labels each
// observation.
func Assign(obs []dataset.Observation) (*Partition, error) {
	b, err := Tertiles(dataset.Column(obs, dataset.GDPPerCapita))
	if err != nil {
		return nil, err
	}
	p := &Partition{
		Bounds: b,
		obs:    append([]dataset.Observation(nil), obs...),
		labels: make([]Group, len(obs)),
	}
	for i, o := range obs {
		p.labels[i] = b.Classify(o.GDPPerCapita)
	}
	return p, nil
}

// Len returns the number of labelled observations.
func (p *Partition) Len() int { return len(p.obs) }

// Label returns the group of the i-th observation.
func (p *Partition) Label(i int) Group { return p.labels[i] }

// Of returns the observations of g in input order.
func (p *Partition) Of(g Group) []dataset.Observation {
	var out []dataset.Observation
	for i, o := range p.obs {
		if p.labels[i] == g {
			out = append(out, o)
		}
	}
	return out
}

// Sizes returns the number of observations per group.
func (p *Partition) Sizes() map[Group]int {
	out := make(map[Group]int, len(All))
	for _, g := range All {
		out[g] = 0
	}
	for _, l := range p.labels {
		out[l]++
	}
	return out
}

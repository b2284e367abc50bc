// Package pipeline groups a year's observations by GDP tertile and runs the
// regression and heteroscedasticity diagnostic for each group.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/healthgap-cli/internal/dataset"
	"github.com/KaramelBytes/healthgap-cli/internal/describe"
	"github.com/KaramelBytes/healthgap-cli/internal/diagnostic"
	"github.com/KaramelBytes/healthgap-cli/internal/grouping"
	"github.com/KaramelBytes/healthgap-cli/internal/ols"
)

// GroupAnalysis is the outcome for one GDP group. Model and Diagnostic are
// nil when Err stopped the analysis before they were produced.
type GroupAnalysis struct {
	Group        grouping.Group
	Observations []dataset.Observation
	Summary      describe.Frame
	Model        *ols.Model
	Diagnostic   *diagnostic.Result
	Err          error
}

// N returns the number of observations in the group.
func (g *GroupAnalysis) N() int { return len(g.Observations) }

// Analysis is the result of one run.
type Analysis struct {
	RunID   string
	Year    int
	N       int
	Bounds  grouping.Bounds
	Overall describe.Frame
	// RobustBP records which Breusch-Pagan variant was used.
	RobustBP bool
	Groups   map[grouping.Group]*GroupAnalysis
}

// Ordered returns the group analyses in Low, Medium, High order.
func (a *Analysis) Ordered() []*GroupAnalysis {
	out := make([]*GroupAnalysis, 0, len(grouping.All))
	for _, g := range grouping.All {
		if ga, ok := a.Groups[g]; ok {
			out = append(out, ga)
		}
	}
	return out
}

// Failed reports how many groups ended with an error.
func (a *Analysis) Failed() int {
	n := 0
	for _, ga := range a.Groups {
		if ga.Err != nil {
			n++
		}
	}
	return n
}

type options struct {
	parallel bool
	logger   *zap.Logger
	robustBP bool
	describe describe.Options
	runID    string
	year     int
}

// Option configures Run.
type Option func(*options)

// WithParallel evaluates the groups concurrently (default true).
func WithParallel(on bool) Option { return func(o *options) { o.parallel = on } }

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRobustBP selects the Koenker (true, default) or classic Breusch-Pagan statistic.
func WithRobustBP(on bool) Option { return func(o *options) { o.robustBP = on } }

// WithOutlierThreshold sets the robust z threshold used in summaries.
// Zero disables outlier counting.
func WithOutlierThreshold(z float64) Option {
	return func(o *options) { o.describe.OutlierThreshold = z }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option { return func(o *options) { o.runID = id } }

// WithYear records the analysed year on the result.
func WithYear(y int) Option { return func(o *options) { o.year = y } }

// SummaryColumns are the variables described overall and per group.
var SummaryColumns = []string{dataset.DeathRate, dataset.HealthExpenditure, dataset.GDPPerCapita}

// Run assigns tertile groups and analyses each group. A failure inside a
// group is recorded on its GroupAnalysis; Run itself only fails when the
// grouping fails or ctx is cancelled.
func Run(ctx context.Context, obs []dataset.Observation, opts ...Option) (*Analysis, error) {
	o := options{
		parallel: true,
		logger:   zap.NewNop(),
		robustBP: true,
		describe: describe.DefaultOptions(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	log := o.logger.With(zap.String("run_id", o.runID))

	part, err := grouping.Assign(obs)
	if err != nil {
		return nil, fmt.Errorf("assign GDP groups: %w", err)
	}
	sizes := part.Sizes()
	log.Info("assigned GDP groups",
		zap.Int("observations", part.Len()),
		zap.Float64("lower_edge", part.Bounds.Lower),
		zap.Float64("upper_edge", part.Bounds.Upper),
		zap.Int("low", sizes[grouping.Low]),
		zap.Int("medium", sizes[grouping.Medium]),
		zap.Int("high", sizes[grouping.High]),
	)

	a := &Analysis{
		RunID:    o.runID,
		Year:     o.year,
		N:        len(obs),
		Bounds:   part.Bounds,
		Overall:  summarize(obs, SummaryColumns, o.describe),
		RobustBP: o.robustBP,
		Groups:   make(map[grouping.Group]*GroupAnalysis, len(grouping.All)),
	}

	results := make([]*GroupAnalysis, len(grouping.All))
	if o.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, grp := range grouping.All {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = analyzeGroup(grp, part.Of(grp), o, log)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, grp := range grouping.All {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = analyzeGroup(grp, part.Of(grp), o, log)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, ga := range results {
		a.Groups[ga.Group] = ga
	}
	return a, nil
}

func analyzeGroup(grp grouping.Group, obs []dataset.Observation, o options, log *zap.Logger) *GroupAnalysis {
	log = log.With(zap.Stringer("group", grp))
	ga := &GroupAnalysis{
		Group:        grp,
		Observations: obs,
		Summary:      summarize(obs, SummaryColumns[:2], o.describe),
	}

	pts := make([]ols.Point, len(obs))
	for i, ob := range obs {
		pts[i] = ols.Point{X: ob.HealthExpenditureGDP, Y: ob.MalnutritionDeathRate}
	}
	m, err := ols.Fit(pts)
	if err != nil {
		ga.Err = fmt.Errorf("%s regression: %w", grp, err)
		log.Warn("regression failed", zap.Error(err))
		return ga
	}
	ga.Model = m
	log.Debug("fitted regression",
		zap.Int("n", m.N()),
		zap.Float64("intercept", m.Intercept()),
		zap.Float64("slope", m.Slope()),
		zap.Float64("r_squared", m.RSquared()),
	)

	bp, err := diagnostic.BreuschPagan(m.Residuals(), m.Design(), diagnostic.WithRobust(o.robustBP))
	if err != nil {
		ga.Err = fmt.Errorf("%s Breusch-Pagan: %w", grp, err)
		log.Warn("breusch-pagan failed", zap.Error(err))
		return ga
	}
	ga.Diagnostic = bp
	log.Debug("breusch-pagan", zap.Float64("lm", bp.LM), zap.Float64("lm_pvalue", bp.LMPValue))
	return ga
}

func summarize(obs []dataset.Observation, cols []string, opt describe.Options) describe.Frame {
	f := make(describe.Frame, len(cols))
	for i, c := range cols {
		f[i] = describe.Describe(c, dataset.Column(obs, c), opt)
	}
	return f
}

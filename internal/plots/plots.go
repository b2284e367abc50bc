// Package plots draws the analysis figures with gonum/plot.
package plots

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/healthgap-cli/internal/dataset"
	"github.com/KaramelBytes/healthgap-cli/internal/pipeline"
)

var (
	skyBlue    = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	lightGreen = color.RGBA{R: 144, G: 238, B: 144, A: 255}
)

// Formats lists the accepted output formats.
var Formats = []string{"png", "svg", "pdf", "jpg", "eps", "tif"}

// ErrNoData indicates there is nothing to draw.
var ErrNoData = errors.New("no observations to plot")

// Options controls figure size, format and histogram resolution.
type Options struct {
	Format string
	Bins   int
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions returns 12x5 inch PNG figures with 20 histogram bins.
func DefaultOptions() Options {
	return Options{Format: "png", Bins: 20, Width: 12 * vg.Inch, Height: 5 * vg.Inch}
}

func (o Options) normalized() (Options, error) {
	d := DefaultOptions()
	o.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(o.Format), "."))
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.Format == "jpeg" {
		o.Format = "jpg"
	}
	ok := false
	for _, f := range Formats {
		if f == o.Format {
			ok = true
			break
		}
	}
	if !ok {
		return o, fmt.Errorf("unsupported figure format %q (use %s)", o.Format, strings.Join(Formats, ", "))
	}
	if o.Bins <= 0 {
		o.Bins = d.Bins
	}
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o, nil
}

// RenderAll writes the histogram, box plot and scatter figures into dir and
// returns their paths.
func RenderAll(dir string, obs []dataset.Observation, a *pipeline.Analysis, opt Options) ([]string, error) {
	opt, err := opt.normalized()
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, ErrNoData
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create figure dir: %w", err)
	}
	name := func(base string) string { return filepath.Join(dir, base+"."+opt.Format) }
	var paths []string
	if err := Histograms(name("histograms"), obs, opt); err != nil {
		return paths, fmt.Errorf("histograms: %w", err)
	}
	paths = append(paths, name("histograms"))
	if err := BoxPlots(name("boxplots"), obs, opt); err != nil {
		return paths, fmt.Errorf("boxplots: %w", err)
	}
	paths = append(paths, name("boxplots"))
	if err := Scatter(name("scatter"), a, opt); err != nil {
		return paths, fmt.Errorf("scatter: %w", err)
	}
	paths = append(paths, name("scatter"))
	return paths, nil
}

// Histograms draws the death rate and health expenditure distributions side
// by side.
func Histograms(path string, obs []dataset.Observation, opt Options) error {
	opt, err := opt.normalized()
	if err != nil {
		return err
	}
	left, err := histogram(dataset.Column(obs, dataset.DeathRate), opt.Bins, skyBlue,
		"Histogram: Malnutrition Death Rate", dataset.DeathRate)
	if err != nil {
		return err
	}
	right, err := histogram(dataset.Column(obs, dataset.HealthExpenditure), opt.Bins, lightGreen,
		"Histogram: Health Expenditure (% of GDP)", dataset.HealthExpenditure)
	if err != nil {
		return err
	}
	return saveRow(path, opt, left, right)
}

func histogram(vals []float64, bins int, fill color.Color, title, xlabel string) (*plot.Plot, error) {
	if len(vals) == 0 {
		return nil, ErrNoData
	}
	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return nil, fmt.Errorf("histogram %s: %w", xlabel, err)
	}
	h.FillColor = fill
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Count"
	p.Add(h)
	return p, nil
}

// BoxPlots draws one box per variable side by side.
func BoxPlots(path string, obs []dataset.Observation, opt Options) error {
	opt, err := opt.normalized()
	if err != nil {
		return err
	}
	left, err := boxPlot(dataset.Column(obs, dataset.DeathRate), skyBlue,
		"Boxplot: Malnutrition Death Rate", dataset.DeathRate)
	if err != nil {
		return err
	}
	right, err := boxPlot(dataset.Column(obs, dataset.HealthExpenditure), lightGreen,
		"Boxplot: Health Expenditure (% of GDP)", dataset.HealthExpenditure)
	if err != nil {
		return err
	}
	return saveRow(path, opt, left, right)
}

func boxPlot(vals []float64, fill color.Color, title, ylabel string) (*plot.Plot, error) {
	if len(vals) == 0 {
		return nil, ErrNoData
	}
	b, err := plotter.NewBoxPlot(vg.Points(60), 0, plotter.Values(vals))
	if err != nil {
		return nil, fmt.Errorf("box plot %s: %w", ylabel, err)
	}
	b.FillColor = fill
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	p.Add(b)
	p.NominalX("")
	return p, nil
}

// Scatter plots expenditure against death rate coloured by GDP group, with
// each fitted group regression line.
func Scatter(path string, a *pipeline.Analysis, opt Options) error {
	opt, err := opt.normalized()
	if err != nil {
		return err
	}
	p := plot.New()
	title := "Scatter: Health Expenditure vs Malnutrition Death Rate"
	if a.Year != 0 {
		title += fmt.Sprintf(" (%d)", a.Year)
	}
	p.Title.Text = title
	p.X.Label.Text = dataset.HealthExpenditure
	p.Y.Label.Text = dataset.DeathRate
	p.Legend.Top = true

	drawn := 0
	for i, ga := range a.Ordered() {
		if ga.N() == 0 {
			continue
		}
		c := plotutil.Color(i)
		pts := make(plotter.XYs, ga.N())
		lo, hi := math.Inf(1), math.Inf(-1)
		for j, o := range ga.Observations {
			pts[j] = plotter.XY{X: o.HealthExpenditureGDP, Y: o.MalnutritionDeathRate}
			lo = math.Min(lo, o.HealthExpenditureGDP)
			hi = math.Max(hi, o.HealthExpenditureGDP)
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("scatter %s: %w", ga.Group, err)
		}
		s.GlyphStyle.Color = c
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(ga.Group.String(), s)
		drawn++

		if ga.Model == nil {
			continue
		}
		l, err := plotter.NewLine(plotter.XYs{
			{X: lo, Y: ga.Model.Predict(lo)},
			{X: hi, Y: ga.Model.Predict(hi)},
		})
		if err != nil {
			return fmt.Errorf("fit line %s: %w", ga.Group, err)
		}
		l.LineStyle.Color = c
		l.LineStyle.Width = vg.Points(2)
		p.Add(l)
	}
	if drawn == 0 {
		return ErrNoData
	}
	return p.Save(opt.Width, opt.Height, path)
}

// saveRow lays plots out in one row and writes the canvas in opt.Format.
func saveRow(path string, opt Options, plots ...*plot.Plot) error {
	c, err := draw.NewFormattedCanvas(opt.Width, opt.Height, opt.Format)
	if err != nil {
		return err
	}
	tiles := draw.Tiles{Rows: 1, Cols: len(plots), PadX: vg.Millimeter * 4, PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2}
	canvases := plot.Align([][]*plot.Plot{plots}, tiles, draw.New(c))
	for i, p := range plots {
		p.Draw(canvases[0][i])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

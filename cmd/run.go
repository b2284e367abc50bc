package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/healthgap-cli/internal/config"
	"github.com/KaramelBytes/healthgap-cli/internal/dataset"
	"github.com/KaramelBytes/healthgap-cli/internal/pipeline"
	"github.com/KaramelBytes/healthgap-cli/internal/plots"
	"github.com/KaramelBytes/healthgap-cli/internal/report"
	"github.com/KaramelBytes/healthgap-cli/internal/utils"
)

var (
	runDataDir    string
	runDeathFile  string
	runHealthFile string
	runGDPFile    string
	runSheet      string
	runYear       int
	runOutput     string
	runNoPlots    bool
	runFormat     string
	runBins       int
	runSequential bool
	runClassicBP  bool
	runRender     bool
	runQuiet      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load the three datasets, analyse one year and write the report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := requireConfig()
		if err != nil {
			return err
		}
		c := *base
		applyRunFlags(cmd, &c)

		src, ropt, err := sourcesFromConfig(&c)
		if err != nil {
			return err
		}
		logger.Info("loading datasets",
			zap.String("death_rate", src.DeathRate.Path),
			zap.String("health_expenditure", src.HealthExpenditure.Path),
			zap.String("gdp_per_capita", src.GDPPerCapita.Path),
			zap.Int("year", c.Year),
		)
		ds, err := dataset.Load(src, ropt, c.Year)
		if err != nil {
			return err
		}
		logger.Info("dataset ready", zap.Int("observations", len(ds.Observations)), zap.Int("dropped", ds.Stats.Dropped))

		a, err := pipeline.Run(cmd.Context(), ds.Observations,
			pipeline.WithParallel(c.Parallel),
			pipeline.WithLogger(logger),
			pipeline.WithRobustBP(c.RobustBP),
			pipeline.WithOutlierThreshold(c.OutlierThreshold),
			pipeline.WithYear(c.Year),
		)
		if err != nil {
			return err
		}

		outDir, err := utils.ExpandHome(c.OutputDir)
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(outDir); err != nil {
			return err
		}

		var figures []string
		if c.Plots {
			paths, err := plots.RenderAll(outDir, ds.Observations, a, plots.Options{Format: c.PlotFormat, Bins: c.HistogramBins})
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: figures incomplete: %v\n", err)
			}
			for _, p := range paths {
				figures = append(figures, filepath.Base(p))
			}
		}

		md := report.Markdown(a, report.Options{StarLevels: c.StarLevels, Stats: &ds.Stats, Figures: figures})
		reportPath := filepath.Join(outDir, "report.md")
		if err := utils.SafeWriteFile(reportPath, []byte(md)); err != nil {
			return err
		}
		jsonPath := filepath.Join(outDir, "results.json")
		if err := report.WriteJSON(jsonPath, a, &ds.Stats, c.StarLevels); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !runQuiet {
			text := md
			if c.Render {
				rendered, err := glamour.Render(md, c.RenderStyle)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: render failed, printing plain Markdown: %v\n", err)
				} else {
					text = rendered
				}
			}
			fmt.Fprintln(out, text)
		}
		if n := a.Failed(); n > 0 {
			fmt.Fprintf(out, "⚠ %d of %d GDP groups could not be fully analysed (see report)\n", n, len(a.Groups))
		}
		fmt.Fprintf(out, "✓ Report: %s\n", reportPath)
		fmt.Fprintf(out, "✓ Results: %s\n", jsonPath)
		if len(figures) > 0 {
			fmt.Fprintf(out, "✓ Figures: %d written to %s\n", len(figures), outDir)
		}
		return nil
	},
}

func applyRunFlags(cmd *cobra.Command, c *cfgpkg.Global) {
	f := cmd.Flags()
	if f.Changed("data-dir") {
		c.DataDir = runDataDir
	}
	if f.Changed("death-file") {
		c.DeathRateFile = runDeathFile
	}
	if f.Changed("health-file") {
		c.HealthExpenditureFile = runHealthFile
	}
	if f.Changed("gdp-file") {
		c.GDPFile = runGDPFile
	}
	if f.Changed("sheet") {
		c.Sheet = runSheet
	}
	if f.Changed("year") {
		c.Year = runYear
	}
	if f.Changed("output") {
		c.OutputDir = runOutput
	}
	if f.Changed("no-plots") {
		c.Plots = !runNoPlots
	}
	if f.Changed("format") {
		c.PlotFormat = runFormat
	}
	if f.Changed("bins") && runBins > 0 {
		c.HistogramBins = runBins
	}
	if f.Changed("sequential") {
		c.Parallel = !runSequential
	}
	if f.Changed("classic-bp") {
		c.RobustBP = !runClassicBP
	}
	if f.Changed("render") {
		c.Render = runRender
	}
}

// sourcesFromConfig resolves the three input files against the data dir.
func sourcesFromConfig(c *cfgpkg.Global) (dataset.Sources, dataset.ReadOptions, error) {
	dir, err := utils.ExpandHome(c.DataDir)
	if err != nil {
		return dataset.Sources{}, dataset.ReadOptions{}, err
	}
	dec, err := cfgpkg.Separator(c.DecimalSeparator)
	if err != nil {
		return dataset.Sources{}, dataset.ReadOptions{}, fmt.Errorf("decimal_separator: %w", err)
	}
	thou, err := cfgpkg.Separator(c.ThousandsSeparator)
	if err != nil {
		return dataset.Sources{}, dataset.ReadOptions{}, fmt.Errorf("thousands_separator: %w", err)
	}
	mk := func(name, file, value string) dataset.Source {
		return dataset.Source{
			Name:         name,
			Path:         utils.ResolvePath(dir, file),
			EntityColumn: c.EntityColumn,
			YearColumn:   c.YearColumn,
			ValueColumn:  value,
		}
	}
	src := dataset.Sources{
		DeathRate:         mk(dataset.DeathRate, c.DeathRateFile, c.DeathRateColumn),
		HealthExpenditure: mk(dataset.HealthExpenditure, c.HealthExpenditureFile, c.HealthExpenditureColumn),
		GDPPerCapita:      mk(dataset.GDPPerCapita, c.GDPFile, c.GDPColumn),
	}
	ropt := dataset.ReadOptions{
		Sheet:  c.Sheet,
		Number: dataset.NumberFormat{DecimalSeparator: dec, ThousandsSeparator: thou},
	}
	return src, ropt, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "directory holding the input files (overrides config)")
	runCmd.Flags().StringVar(&runDeathFile, "death-file", "", "malnutrition death rate file")
	runCmd.Flags().StringVar(&runHealthFile, "health-file", "", "health expenditure file")
	runCmd.Flags().StringVar(&runGDPFile, "gdp-file", "", "GDP per capita file")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "sheet name for XLSX inputs")
	runCmd.Flags().IntVar(&runYear, "year", 0, "year to analyse (overrides config)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output directory for report, JSON and figures")
	runCmd.Flags().BoolVar(&runNoPlots, "no-plots", false, "skip figure rendering")
	runCmd.Flags().StringVar(&runFormat, "format", "", "figure format: png|svg|pdf|jpg|eps|tif")
	runCmd.Flags().IntVar(&runBins, "bins", 0, "histogram bins")
	runCmd.Flags().BoolVar(&runSequential, "sequential", false, "analyse GDP groups one after another")
	runCmd.Flags().BoolVar(&runClassicBP, "classic-bp", false, "use the classic Breusch-Pagan LM instead of the Koenker variant")
	runCmd.Flags().BoolVar(&runRender, "render", false, "render the Markdown report for the terminal")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "do not print the report")
}

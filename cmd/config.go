package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/healthgap-cli/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set healthgap configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := setKey(c, args[0], args[1]); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			p, err := cfgpkg.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		d := cfgpkg.Defaults()
		if err := cfgpkg.Save(&d, path); err != nil {
			return err
		}
		cfg = &d
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Config written: %s\n", path)
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	str := map[string]*string{
		"data_dir":                  &c.DataDir,
		"death_rate_file":           &c.DeathRateFile,
		"health_expenditure_file":   &c.HealthExpenditureFile,
		"gdp_file":                  &c.GDPFile,
		"sheet":                     &c.Sheet,
		"entity_column":             &c.EntityColumn,
		"year_column":               &c.YearColumn,
		"death_rate_column":         &c.DeathRateColumn,
		"health_expenditure_column": &c.HealthExpenditureColumn,
		"gdp_column":                &c.GDPColumn,
		"decimal_separator":         &c.DecimalSeparator,
		"thousands_separator":       &c.ThousandsSeparator,
		"output_dir":                &c.OutputDir,
		"plot_format":               &c.PlotFormat,
		"render_style":              &c.RenderStyle,
	}
	if p, ok := str[key]; ok {
		*p = val
		return nil
	}
	bools := map[string]*bool{
		"parallel":  &c.Parallel,
		"robust_bp": &c.RobustBP,
		"plots":     &c.Plots,
		"render":    &c.Render,
	}
	if p, ok := bools[key]; ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		*p = b
		return nil
	}
	switch key {
	case "year":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for year: %w", err)
		}
		c.Year = i
	case "histogram_bins":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for histogram_bins: %v", val)
		}
		c.HistogramBins = i
	case "outlier_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for outlier_threshold: %w", err)
		}
		c.OutlierThreshold = f
	case "star_levels":
		var levels []float64
		for _, part := range strings.Split(val, ",") {
			f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return fmt.Errorf("invalid float in star_levels: %q", part)
			}
			levels = append(levels, f)
		}
		c.StarLevels = levels
	default:
		return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(cfgpkg.Keys, ", "))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
}

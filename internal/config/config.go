package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Inputs
	DataDir               string `mapstructure:"data_dir" yaml:"data_dir"`
	DeathRateFile         string `mapstructure:"death_rate_file" yaml:"death_rate_file"`
	HealthExpenditureFile string `mapstructure:"health_expenditure_file" yaml:"health_expenditure_file"`
	GDPFile               string `mapstructure:"gdp_file" yaml:"gdp_file"`
	Sheet                 string `mapstructure:"sheet" yaml:"sheet"`

	// Column names in the source files
	EntityColumn            string `mapstructure:"entity_column" yaml:"entity_column"`
	YearColumn              string `mapstructure:"year_column" yaml:"year_column"`
	DeathRateColumn         string `mapstructure:"death_rate_column" yaml:"death_rate_column"`
	HealthExpenditureColumn string `mapstructure:"health_expenditure_column" yaml:"health_expenditure_column"`
	GDPColumn               string `mapstructure:"gdp_column" yaml:"gdp_column"`

	// Number parsing; empty means auto-detect
	DecimalSeparator   string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string `mapstructure:"thousands_separator" yaml:"thousands_separator"`

	// Analysis
	Year             int       `mapstructure:"year" yaml:"year"`
	Parallel         bool      `mapstructure:"parallel" yaml:"parallel"`
	RobustBP         bool      `mapstructure:"robust_bp" yaml:"robust_bp"`
	StarLevels       []float64 `mapstructure:"star_levels" yaml:"star_levels"`
	OutlierThreshold float64   `mapstructure:"outlier_threshold" yaml:"outlier_threshold"`

	// Output
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`
	Plots         bool   `mapstructure:"plots" yaml:"plots"`
	PlotFormat    string `mapstructure:"plot_format" yaml:"plot_format"`
	HistogramBins int    `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	Render        bool   `mapstructure:"render" yaml:"render"`
	RenderStyle   string `mapstructure:"render_style" yaml:"render_style"`
}

// Defaults returns the built-in settings for the Our World in Data exports.
func Defaults() Global {
	return Global{
		DataDir:                 ".",
		DeathRateFile:           "death-rate-from-malnutrition-ghe.csv",
		HealthExpenditureFile:   "total-healthcare-expenditure-gdp.csv",
		GDPFile:                 "gdp-per-capita-worldbank.csv",
		EntityColumn:            "Entity",
		YearColumn:              "Year",
		DeathRateColumn:         "Death rate from protein-energy malnutrition among both sexes",
		HealthExpenditureColumn: "Current health expenditure (CHE) as percentage of gross domestic product (GDP) (%)",
		GDPColumn:               "GDP per capita, PPP (constant 2021 international $)",
		Year:                    2021,
		Parallel:                true,
		RobustBP:                true,
		StarLevels:              []float64{0.01, 0.05, 0.10},
		OutlierThreshold:        3.5,
		OutputDir:               "healthgap-out",
		Plots:                   true,
		PlotFormat:              "png",
		HistogramBins:           20,
		RenderStyle:             "dark",
	}
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"data_dir", "death_rate_file", "health_expenditure_file", "gdp_file", "sheet",
	"entity_column", "year_column", "death_rate_column", "health_expenditure_column", "gdp_column",
	"decimal_separator", "thousands_separator",
	"year", "parallel", "robust_bp", "star_levels", "outlier_threshold",
	"output_dir", "plots", "plot_format", "histogram_bins", "render", "render_style",
}

// DefaultPath returns ~/.healthgap/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".healthgap", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.healthgap/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("HEALTHGAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("death_rate_file", d.DeathRateFile)
	v.SetDefault("health_expenditure_file", d.HealthExpenditureFile)
	v.SetDefault("gdp_file", d.GDPFile)
	v.SetDefault("sheet", d.Sheet)
	v.SetDefault("entity_column", d.EntityColumn)
	v.SetDefault("year_column", d.YearColumn)
	v.SetDefault("death_rate_column", d.DeathRateColumn)
	v.SetDefault("health_expenditure_column", d.HealthExpenditureColumn)
	v.SetDefault("gdp_column", d.GDPColumn)
	v.SetDefault("decimal_separator", d.DecimalSeparator)
	v.SetDefault("thousands_separator", d.ThousandsSeparator)
	v.SetDefault("year", d.Year)
	v.SetDefault("parallel", d.Parallel)
	v.SetDefault("robust_bp", d.RobustBP)
	v.SetDefault("star_levels", d.StarLevels)
	v.SetDefault("outlier_threshold", d.OutlierThreshold)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("plots", d.Plots)
	v.SetDefault("plot_format", d.PlotFormat)
	v.SetDefault("histogram_bins", d.HistogramBins)
	v.SetDefault("render", d.Render)
	v.SetDefault("render_style", d.RenderStyle)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".healthgap"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges that would otherwise fail deep inside a run.
func (c *Global) Validate() error {
	if c.HistogramBins < 0 {
		return fmt.Errorf("histogram_bins must be positive, got %d", c.HistogramBins)
	}
	if c.OutlierThreshold < 0 {
		return fmt.Errorf("outlier_threshold must not be negative, got %g", c.OutlierThreshold)
	}
	for _, l := range c.StarLevels {
		if l <= 0 || l >= 1 {
			return fmt.Errorf("star_levels must lie in (0, 1), got %g", l)
		}
	}
	if _, err := Separator(c.DecimalSeparator); err != nil {
		return fmt.Errorf("decimal_separator: %w", err)
	}
	if _, err := Separator(c.ThousandsSeparator); err != nil {
		return fmt.Errorf("thousands_separator: %w", err)
	}
	return nil
}

// Separator maps a configured separator name to its rune; empty means auto.
func Separator(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		if s == " " {
			return ' ', nil
		}
		return 0, nil
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	case "space":
		return ' ', nil
	case "'", "apostrophe":
		return '\'', nil
	default:
		return 0, fmt.Errorf("unsupported separator %q (use '.', ',', 'space' or empty for auto)", s)
	}
}

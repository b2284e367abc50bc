package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Reset sticky flags that may persist Changed state across invocations
	for _, fs := range []*pflag.FlagSet{runCmd.Flags(), describeCmd.Flags(), configInitCmd.Flags(), rootCmd.PersistentFlags()} {
		resetFlags(fs)
	}
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

// writeInputs writes three OWID-style CSVs for 2021 with 15 countries and a
// few rows that must be dropped or skipped.
func writeInputs(t *testing.T, dir string) {
	t.Helper()
	death := []string{"Entity,Code,Year,Death rate from protein-energy malnutrition among both sexes"}
	health := []string{"Entity,Code,Year,Current health expenditure (CHE) as percentage of gross domestic product (GDP) (%)"}
	gdp := []string{"Entity,Code,Year,\"GDP per capita, PPP (constant 2021 international $)\""}
	for i := 0; i < 15; i++ {
		name := fmt.Sprintf("Country%02d", i)
		h := 2.5 + float64(i%5)*1.3
		d := 28 - 2.1*h + float64((i*3)%4)*0.4
		g := 900 + float64(i)*2700
		death = append(death, fmt.Sprintf("%s,C%02d,2021,%.3f", name, i, d), fmt.Sprintf("%s,C%02d,2020,%.3f", name, i, d+1))
		health = append(health, fmt.Sprintf("%s,C%02d,2021,%.3f", name, i, h))
		gdp = append(gdp, fmt.Sprintf("%s,C%02d,2021,%.1f", name, i, g))
	}
	death = append(death, "Atlantis,ATL,2021,")
	health = append(health, "Atlantis,ATL,2021,4")
	gdp = append(gdp, "Atlantis,ATL,2021,5000")

	for name, lines := range map[string][]string{
		"death-rate-from-malnutrition-ghe.csv": death,
		"total-healthcare-expenditure-gdp.csv": health,
		"gdp-per-capita-worldbank.csv":         gdp,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	}
}

func TestCLI_RunWritesReportAndResults(t *testing.T) {
	isolateHome(t)
	data := t.TempDir()
	writeInputs(t, data)
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "run", "--data-dir", data, "--output", outDir, "--format", "svg", "--sequential")
	require.NoError(t, err, out)

	assert.Contains(t, out, "# Health expenditure and malnutrition mortality by GDP group (2021)")
	assert.Contains(t, out, "| N | 5 | 5 | 5 |")
	assert.Contains(t, out, "- Dropped for missing values: 1")
	assert.Contains(t, out, "✓ Report: "+filepath.Join(outDir, "report.md"))

	for _, name := range []string{"report.md", "results.json", "histograms.svg", "boxplots.svg", "scatter.svg"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	raw, err := os.ReadFile(filepath.Join(outDir, "results.json"))
	require.NoError(t, err)
	var doc struct {
		Year   int `json:"year"`
		N      int `json:"n"`
		Groups []struct {
			Group string `json:"group"`
			N     int    `json:"n"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 2021, doc.Year)
	assert.Equal(t, 15, doc.N)
	require.Len(t, doc.Groups, 3)
	assert.Equal(t, "High-GDP", doc.Groups[2].Group)
}

func TestCLI_RunNoPlotsQuietAndClassicBP(t *testing.T) {
	isolateHome(t)
	data := t.TempDir()
	writeInputs(t, data)
	outDir := t.TempDir()

	out, err := execute(t, "run", "--data-dir", data, "-o", outDir, "--no-plots", "--classic-bp", "-q")
	require.NoError(t, err)
	assert.NotContains(t, out, "# Health expenditure")
	assert.NotContains(t, out, "Figures")

	md, err := os.ReadFile(filepath.Join(outDir, "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "Classic variant")
	_, err = os.Stat(filepath.Join(outDir, "scatter.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_RunMissingYear(t *testing.T) {
	isolateHome(t)
	data := t.TempDir()
	writeInputs(t, data)
	_, err := execute(t, "run", "--data-dir", data, "-o", t.TempDir(), "--year", "1990", "--no-plots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no complete observations")
}

func TestCLI_RunMissingFile(t *testing.T) {
	isolateHome(t)
	_, err := execute(t, "run", "--data-dir", t.TempDir(), "-o", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Malnutrition_Death_Rate")
}

func TestCLI_Describe(t *testing.T) {
	isolateHome(t)
	data := t.TempDir()
	writeInputs(t, data)
	path := filepath.Join(data, "gdp-per-capita-worldbank.csv")

	out, err := execute(t, "describe", path)
	require.NoError(t, err)
	assert.Contains(t, out, "File: gdp-per-capita-worldbank.csv")
	assert.Contains(t, out, "Rows: 16")
	assert.Contains(t, out, "| count | 16 | 16 |")
	assert.Contains(t, out, "Non-numeric columns: Entity, Code")

	out, err = execute(t, "describe", path, "--columns", "Year", "--json")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	cols := doc["columns"].([]any)
	require.Len(t, cols, 1)
	assert.Equal(t, "Year", cols[0].(map[string]any)["name"])

	_, err = execute(t, "describe", path, "--columns", "Population")
	require.Error(t, err)
}

func TestCLI_ConfigInitSetShow(t *testing.T) {
	home := isolateHome(t)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(home, ".healthgap", "config.yaml"))

	_, err = execute(t, "config", "init")
	require.Error(t, err)

	_, err = execute(t, "config", "set", "year", "2019")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "star_levels", "0.01, 0.05")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "plots", "false")
	require.NoError(t, err)

	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "year: 2019")
	assert.Contains(t, out, "plots: false")
	assert.Contains(t, out, "- 0.05")

	_, err = execute(t, "config", "set", "nope", "1")
	require.Error(t, err)
	_, err = execute(t, "config", "set", "star_levels", "2")
	require.Error(t, err)
	_, err = execute(t, "config", "set", "parallel", "maybe")
	require.Error(t, err)
}

package plots

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/healthgap-cli/internal/dataset"
	"github.com/KaramelBytes/healthgap-cli/internal/pipeline"
)

func sample() []dataset.Observation {
	var out []dataset.Observation
	for i := 0; i < 24; i++ {
		h := 2 + float64(i%8)
		out = append(out, dataset.Observation{
			Country:               fmt.Sprintf("C%02d", i),
			Year:                  2021,
			MalnutritionDeathRate: 25 - 1.5*h + float64(i%3),
			HealthExpenditureGDP:  h,
			GDPPerCapita:          800 + float64(i)*1500,
		})
	}
	return out
}

func TestRenderAll(t *testing.T) {
	obs := sample()
	a, err := pipeline.Run(context.Background(), obs, pipeline.WithYear(2021))
	require.NoError(t, err)

	for _, format := range []string{"png", "svg"} {
		t.Run(format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "figures")
			paths, err := RenderAll(dir, obs, a, Options{Format: format})
			require.NoError(t, err)
			require.Len(t, paths, 3)
			for i, base := range []string{"histograms", "boxplots", "scatter"} {
				assert.Equal(t, filepath.Join(dir, base+"."+format), paths[i])
				info, err := os.Stat(paths[i])
				require.NoError(t, err)
				assert.Greater(t, info.Size(), int64(0))
			}
			if format == "svg" {
				b, err := os.ReadFile(paths[2])
				require.NoError(t, err)
				assert.True(t, strings.Contains(string(b), "<svg"))
			}
		})
	}
}

func TestRenderAll_Errors(t *testing.T) {
	obs := sample()
	a, err := pipeline.Run(context.Background(), obs)
	require.NoError(t, err)

	_, err = RenderAll(t.TempDir(), obs, a, Options{Format: "bmp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported figure format")

	_, err = RenderAll(t.TempDir(), nil, a, Options{})
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestOptionsNormalized(t *testing.T) {
	o, err := Options{Format: ".JPEG"}.normalized()
	require.NoError(t, err)
	assert.Equal(t, "jpg", o.Format)
	assert.Equal(t, 20, o.Bins)
	assert.Equal(t, DefaultOptions().Width, o.Width)

	o, err = Options{Bins: 7}.normalized()
	require.NoError(t, err)
	assert.Equal(t, "png", o.Format)
	assert.Equal(t, 7, o.Bins)
}

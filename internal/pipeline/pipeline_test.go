package pipeline

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KaramelBytes/healthgap-cli/internal/dataset"
	"github.com/KaramelBytes/healthgap-cli/internal/grouping"
	"github.com/KaramelBytes/healthgap-cli/internal/ols"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func syntheticYear(seed uint64, n int) []dataset.Observation {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]dataset.Observation, n)
	for i := range out {
		gdp := 500 + rng.Float64()*60000
		health := 2 + rng.Float64()*10
		death := math.Max(0, 40-2.5*health-gdp/5000+rng.NormFloat64()*(1+health/3))
		out[i] = dataset.Observation{
			Country:               "C" + string(rune('A'+i%26)) + string(rune('a'+i/26)),
			Year:                  2021,
			MalnutritionDeathRate: death,
			HealthExpenditureGDP:  health,
			GDPPerCapita:          gdp,
		}
	}
	return out
}

func TestRun_AllGroups(t *testing.T) {
	obs := syntheticYear(1, 90)
	a, err := Run(context.Background(), obs, WithRunID("fixed"), WithYear(2021))
	require.NoError(t, err)

	assert.Equal(t, "fixed", a.RunID)
	assert.Equal(t, 2021, a.Year)
	assert.Equal(t, 90, a.N)
	assert.True(t, a.RobustBP)
	require.Len(t, a.Overall, 3)
	assert.Equal(t, 90, a.Overall[0].Count)

	ordered := a.Ordered()
	require.Len(t, ordered, 3)
	total := 0
	for i, ga := range ordered {
		assert.Equal(t, grouping.All[i], ga.Group)
		require.NoError(t, ga.Err)
		require.NotNil(t, ga.Model)
		require.NotNil(t, ga.Diagnostic)
		assert.Equal(t, ga.N(), ga.Model.N())
		assert.Equal(t, ga.N(), ga.Diagnostic.N)
		require.Len(t, ga.Summary, 2)
		total += ga.N()
	}
	assert.Equal(t, 90, total)
	assert.Zero(t, a.Failed())
}

func TestRun_SequentialMatchesParallel(t *testing.T) {
	obs := syntheticYear(7, 120)
	par, err := Run(context.Background(), obs, WithParallel(true), WithRunID("x"))
	require.NoError(t, err)
	seq, err := Run(context.Background(), obs, WithParallel(false), WithRunID("x"))
	require.NoError(t, err)

	for _, g := range grouping.All {
		p, s := par.Groups[g], seq.Groups[g]
		if diff := cmp.Diff(p.Observations, s.Observations); diff != "" {
			t.Fatalf("%v observations differ:\n%s", g, diff)
		}
		if diff := cmp.Diff(p.Model.Params(), s.Model.Params()); diff != "" {
			t.Fatalf("%v params differ:\n%s", g, diff)
		}
		if diff := cmp.Diff(p.Model.StdErrors(), s.Model.StdErrors()); diff != "" {
			t.Fatalf("%v standard errors differ:\n%s", g, diff)
		}
		if diff := cmp.Diff(*p.Diagnostic, *s.Diagnostic); diff != "" {
			t.Fatalf("%v diagnostic differs:\n%s", g, diff)
		}
	}
}

func TestRun_DegenerateGroupIsIsolated(t *testing.T) {
	obs := syntheticYear(3, 30)
	// Give every low-GDP country the same expenditure.
	part, err := grouping.Assign(obs)
	require.NoError(t, err)
	for i := range obs {
		if part.Label(i) == grouping.Low {
			obs[i].HealthExpenditureGDP = 4
		}
	}

	core, logs := observer.New(zap.WarnLevel)
	a, err := Run(context.Background(), obs, WithLogger(zap.New(core)))
	require.NoError(t, err)

	low := a.Groups[grouping.Low]
	require.Error(t, low.Err)
	var sde *ols.SingularDesignError
	assert.True(t, errors.As(low.Err, &sde))
	assert.Nil(t, low.Model)
	assert.Nil(t, low.Diagnostic)
	assert.Contains(t, low.Err.Error(), "Low-GDP")

	for _, g := range []grouping.Group{grouping.Medium, grouping.High} {
		assert.NoError(t, a.Groups[g].Err)
		assert.NotNil(t, a.Groups[g].Model)
		assert.NotNil(t, a.Groups[g].Diagnostic)
	}
	assert.Equal(t, 1, a.Failed())
	assert.Equal(t, 1, logs.FilterMessage("regression failed").Len())
}

func TestRun_TooFewInGroup(t *testing.T) {
	obs := syntheticYear(11, 6)
	a, err := Run(context.Background(), obs)
	require.NoError(t, err)
	for _, ga := range a.Ordered() {
		var ide *ols.InsufficientDataError
		require.ErrorAs(t, ga.Err, &ide, "group %v", ga.Group)
	}
}

func TestRun_ClassicBP(t *testing.T) {
	a, err := Run(context.Background(), syntheticYear(5, 60), WithRobustBP(false), WithOutlierThreshold(0))
	require.NoError(t, err)
	assert.False(t, a.RobustBP)
	for _, ga := range a.Ordered() {
		require.NoError(t, ga.Err)
		assert.False(t, ga.Diagnostic.Robust)
	}
	assert.Zero(t, a.Overall[0].OutlierThreshold)
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(context.Background(), nil)
	require.ErrorIs(t, err, grouping.ErrEmpty)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, parallel := range []bool{true, false} {
		_, err = Run(ctx, syntheticYear(2, 30), WithParallel(parallel))
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestRun_GeneratesRunID(t *testing.T) {
	a, err := Run(context.Background(), syntheticYear(9, 30))
	require.NoError(t, err)
	b, err := Run(context.Background(), syntheticYear(9, 30))
	require.NoError(t, err)
	assert.Len(t, a.RunID, 36)
	assert.NotEqual(t, a.RunID, b.RunID)
}

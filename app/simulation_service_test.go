package app_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grainmeta/adapters/community"
	"grainmeta/adapters/rng"
	"grainmeta/adapters/spatial"
	"grainmeta/app"
	"grainmeta/domain/core"
	"grainmeta/domain/metrics"
	"grainmeta/internal"
	"grainmeta/internal/testkit"
	"grainmeta/models"
)

func newService(repo *testkit.InMemoryResultRepository) *app.SimulationService {
	logger := internal.NewLogger(internal.LogLevelError)
	if repo == nil {
		// Pass an untyped nil so the service sees no repository at all.
		return app.NewSimulationService(community.NewGenerator(), spatial.NewSampler(), rng.NewAdapter(), nil, logger)
	}
	return app.NewSimulationService(community.NewGenerator(), spatial.NewSampler(), rng.NewAdapter(), repo, logger)
}

func TestDesignStudies(t *testing.T) {
	svc := newService(nil)
	spec := testkit.DefaultBatchSpec()

	studies, err := svc.DesignStudies(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, studies, spec.Studies)

	for i, study := range studies {
		assert.Equal(t, i, study.Index)
		assert.False(t, core.ID(study.ID).IsEmpty())
		assert.GreaterOrEqual(t, study.Grain, spec.GrainMin)
		assert.LessOrEqual(t, study.Grain, spec.GrainMax)
		require.NoError(t, study.Validate())
	}

	// Same seed, same grains.
	again, err := svc.DesignStudies(context.Background(), spec)
	require.NoError(t, err)
	for i := range studies {
		assert.Equal(t, studies[i].Grain, again[i].Grain)
	}
}

func TestRun_FullPipeline(t *testing.T) {
	repo := testkit.NewInMemoryResultRepository()
	svc := newService(repo)
	spec := testkit.DefaultBatchSpec()

	result, err := svc.Run(context.Background(), spec)
	require.NoError(t, err)

	// Two conditions per study.
	assert.Len(t, result.Records, spec.Studies*2)
	assert.Len(t, result.Samples, spec.Studies*2)

	// Three raw metrics per study.
	assert.Len(t, result.Effects, spec.Studies*len(metrics.Kinds()))

	// Standardization ran and produced one rarefied-richness effect per study.
	assert.Greater(t, result.RarefactionTarget, 0)
	assert.Len(t, result.Standardized, spec.Studies)

	// Raw and standardized summaries both present.
	assert.Len(t, result.Summaries, len(metrics.Kinds())+1)

	// Persisted.
	stored, err := repo.GetRun(context.Background(), result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, spec.Studies, stored.StudyCount)

	raw, err := repo.ListEffectSizes(context.Background(), result.Run.ID, false)
	require.NoError(t, err)
	assert.Len(t, raw, len(result.Effects))
}

func TestRun_DeterministicAcrossConcurrency(t *testing.T) {
	svc := newService(nil)

	spec := testkit.DefaultBatchSpec()
	spec.Concurrency = 1
	sequential, err := svc.Run(context.Background(), spec)
	require.NoError(t, err)

	spec.Concurrency = 8
	parallel, err := svc.Run(context.Background(), spec)
	require.NoError(t, err)

	require.Len(t, parallel.Effects, len(sequential.Effects))
	for i := range sequential.Effects {
		a, b := sequential.Effects[i], parallel.Effects[i]
		assert.Equal(t, a.StudyIndex, b.StudyIndex)
		assert.Equal(t, a.Metric, b.Metric)
		assert.Equal(t, a.LRR.Defined, b.LRR.Defined)
		if a.LRR.Defined {
			assert.Equal(t, a.LRR.Value, b.LRR.Value)
		}
	}
}

// Halving the species pool must push richness LRRs clearly negative, and the
// treatment direction must survive standardization.
func TestRun_TreatmentEffectDirection(t *testing.T) {
	svc := newService(nil)
	spec := testkit.DefaultBatchSpec()

	result, err := svc.Run(context.Background(), spec)
	require.NoError(t, err)

	var richnessMean float64
	var found bool
	for _, s := range result.Summaries {
		if s.Metric == metrics.KindRichness && !s.Standardized {
			richnessMean = s.MeanLRR
			found = true
		}
	}
	require.True(t, found, "richness summary missing")
	assert.Less(t, richnessMean, 0.0, "halved pool should depress richness")

	for _, s := range result.Summaries {
		if s.Metric == metrics.KindRarefiedRichness {
			require.Greater(t, s.Defined, 0, "standardized effects all undefined")
			assert.Less(t, s.MeanLRR, 0.0)
		}
	}
}

func TestRun_InvalidSpec(t *testing.T) {
	svc := newService(nil)

	spec := testkit.DefaultBatchSpec()
	spec.Studies = 0
	_, err := svc.Run(context.Background(), spec)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	spec = testkit.DefaultBatchSpec()
	spec.GrainMin = 0.5
	spec.GrainMax = 0.1
	_, err = svc.Run(context.Background(), spec)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	spec = testkit.DefaultBatchSpec()
	spec.Control.PoolSize = -1
	_, err = svc.Run(context.Background(), spec)
	assert.ErrorIs(t, err, core.ErrInvalidPoolSize)
}

func TestRun_ExplicitRarefactionTarget(t *testing.T) {
	svc := newService(nil)
	spec := testkit.DefaultBatchSpec()
	spec.RarefactionTarget = 2

	result, err := svc.Run(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RarefactionTarget)

	// A tiny target is below every quadrat total here, so everything defined,
	// and each rarefied value cannot exceed the target.
	for _, es := range result.Standardized {
		if !es.LRR.Defined {
			continue
		}
		assert.LessOrEqual(t, es.Control.Value, 2.0)
		assert.LessOrEqual(t, es.Treatment.Value, 2.0)
	}
}

func TestRun_SkipStandardization(t *testing.T) {
	svc := newService(nil)
	spec := testkit.DefaultBatchSpec()
	spec.SkipStandardization = true

	result, err := svc.Run(context.Background(), spec)
	require.NoError(t, err)
	assert.Empty(t, result.Standardized)
	assert.Zero(t, result.RarefactionTarget)
	assert.Len(t, result.Summaries, len(metrics.Kinds()))
}

func TestStandardizeService_Rerun(t *testing.T) {
	svc := newService(nil)
	result, err := svc.Run(context.Background(), testkit.DefaultBatchSpec())
	require.NoError(t, err)

	std := app.NewStandardizeService(internal.NewLogger(internal.LogLevelError))

	rerun, err := std.Standardize(*result, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, rerun.RarefactionTarget)
	assert.Len(t, rerun.Standardized, len(result.Standardized))

	// An absurd target makes every study undefined but does not error.
	huge, err := std.Standardize(*result, math.MaxInt32)
	require.NoError(t, err)
	for _, es := range huge.Standardized {
		assert.False(t, es.LRR.Defined)
	}
}

func TestStandardizeService_NoSamples(t *testing.T) {
	std := app.NewStandardizeService(internal.NewLogger(internal.LogLevelError))
	_, err := std.Standardize(models.RunResult{}, 0)
	assert.ErrorIs(t, err, core.ErrNoSamples)
}

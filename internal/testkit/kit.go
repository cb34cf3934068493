// Package testkit provides fixtures and in-memory adapters for exercising the
// simulation pipeline without external infrastructure.
package testkit

import (
	"context"
	"sync"

	"grainmeta/app"
	"grainmeta/domain/core"
	"grainmeta/domain/ecology"
	"grainmeta/domain/metrics"
	"grainmeta/models"
	"grainmeta/ports"
)

// DefaultBatchSpec returns a small, fast batch with sensible course defaults:
// 10 studies, grain drawn from [0.02, 0.09], treatment halving the pool.
func DefaultBatchSpec() app.BatchSpec {
	control := ecology.CommunityParams{
		PoolSize:    100,
		Individuals: 1000,
		Shape:       1.0,
		Spatial:     ecology.SpatialRandom,
	}
	treatment := control
	treatment.PoolSize = 50

	return app.BatchSpec{
		Studies:     10,
		Seed:        42,
		GrainMin:    0.02,
		GrainMax:    0.09,
		Quadrats:    5,
		Placement:   ecology.PlacementRandom,
		Control:     control,
		Treatment:   treatment,
		Concurrency: 4,
	}
}

// UniformCommunity builds a community with count individuals of each of the
// first richness species, placed on a deterministic lattice. Handy for tests
// that need exact known abundances.
func UniformCommunity(poolSize, richness, count int) ecology.Community {
	var individuals []ecology.Individual
	total := richness * count
	i := 0
	for species := 0; species < richness; species++ {
		for k := 0; k < count; k++ {
			x := (float64(i) + 0.5) / float64(total)
			y := (float64((i*7)%total) + 0.5) / float64(total)
			individuals = append(individuals, ecology.Individual{
				Species: species,
				Loc:     ecology.Point{X: x, Y: y},
			})
			i++
		}
	}
	return ecology.Community{PoolSize: poolSize, Individuals: individuals}
}

// InMemoryResultRepository implements ports.ResultRepository for tests and for
// CLI runs without a database.
type InMemoryResultRepository struct {
	mu        sync.RWMutex
	runs      map[core.RunID]models.Run
	effects   map[core.RunID]map[bool][]metrics.EffectSize
	summaries map[core.RunID][]models.MetaSummary
}

// NewInMemoryResultRepository creates an empty repository.
func NewInMemoryResultRepository() *InMemoryResultRepository {
	return &InMemoryResultRepository{
		runs:      make(map[core.RunID]models.Run),
		effects:   make(map[core.RunID]map[bool][]metrics.EffectSize),
		summaries: make(map[core.RunID][]models.MetaSummary),
	}
}

var _ ports.ResultRepository = (*InMemoryResultRepository)(nil)

func (r *InMemoryResultRepository) SaveRun(ctx context.Context, run models.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	return nil
}

func (r *InMemoryResultRepository) GetRun(ctx context.Context, id core.RunID) (models.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return models.Run{}, core.ErrRunNotFound
	}
	return run, nil
}

func (r *InMemoryResultRepository) SaveEffectSizes(ctx context.Context, runID core.RunID, standardized bool, effects []metrics.EffectSize) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.effects[runID]; !ok {
		r.effects[runID] = make(map[bool][]metrics.EffectSize, 2)
	}
	r.effects[runID][standardized] = append([]metrics.EffectSize(nil), effects...)
	return nil
}

func (r *InMemoryResultRepository) ListEffectSizes(ctx context.Context, runID core.RunID, standardized bool) ([]metrics.EffectSize, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byKind, ok := r.effects[runID]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	return append([]metrics.EffectSize(nil), byKind[standardized]...), nil
}

func (r *InMemoryResultRepository) SaveSummaries(ctx context.Context, runID core.RunID, summaries []models.MetaSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries[runID] = append([]models.MetaSummary(nil), summaries...)
	return nil
}

// Summaries returns the stored summaries for assertions.
func (r *InMemoryResultRepository) Summaries(runID core.RunID) []models.MetaSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.summaries[runID]
}

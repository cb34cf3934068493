package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"grainmeta/adapters/stats/diversity"
	"grainmeta/adapters/stats/effects"
	"grainmeta/domain/core"
	"grainmeta/domain/ecology"
	"grainmeta/domain/metrics"
	"grainmeta/internal"
	"grainmeta/models"
	"grainmeta/ports"
)

// BatchSpec defines the inputs for one deterministic simulation run: how many
// studies, the grain range they draw from, and the community parameters of
// both conditions.
type BatchSpec struct {
	RunID    core.RunID // optional, generated if empty
	Studies  int
	Seed     int64
	GrainMin float64
	GrainMax float64

	Quadrats  int
	Placement ecology.PlacementMethod

	Control   ecology.CommunityParams
	Treatment ecology.CommunityParams

	// RarefactionTarget of 0 selects the default (mean abundance at the
	// smallest grain, clamped to the minimum quadrat total).
	RarefactionTarget   int
	SkipStandardization bool

	// Concurrency bounds the parallel study map; 0 means sequential.
	Concurrency int
}

// Validate rejects batch parameters before any study is designed.
func (s BatchSpec) Validate() error {
	if s.Studies <= 0 {
		return core.NewParameterError("studies", "must be positive")
	}
	if s.GrainMin <= 0 || s.GrainMax <= 0 {
		return core.ErrInvalidGrain
	}
	if s.GrainMin > s.GrainMax {
		return core.NewParameterError("grain range", "min exceeds max")
	}
	if s.GrainMax > 1 {
		return core.NewParameterError("grain range", "max exceeds the unit extent")
	}
	if s.Quadrats <= 0 {
		return core.ErrInvalidQuadrats
	}
	if s.RarefactionTarget < 0 {
		return core.NewParameterError("rarefaction target", "cannot be negative")
	}
	if err := s.Control.Validate(); err != nil {
		return err
	}
	return s.Treatment.Validate()
}

// SimulationService runs the four-stage pipeline: community generation,
// quadrat sampling, metric calculation, and effort standardization.
type SimulationService struct {
	generator ports.CommunityGenerator
	sampler   ports.QuadratSampler
	rngPort   ports.RNGPort
	repo      ports.ResultRepository // optional
	logger    *internal.Logger
}

// NewSimulationService creates a simulation service. repo may be nil when
// results are not persisted.
func NewSimulationService(generator ports.CommunityGenerator, sampler ports.QuadratSampler, rngPort ports.RNGPort, repo ports.ResultRepository, logger *internal.Logger) *SimulationService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SimulationService{
		generator: generator,
		sampler:   sampler,
		rngPort:   rngPort,
		repo:      repo,
		logger:    logger,
	}
}

// DesignStudies draws the immutable study designs for a batch: each study gets
// a grain uniform in [GrainMin, GrainMax] and both conditions' parameters.
func (s *SimulationService) DesignStudies(ctx context.Context, spec BatchSpec) ([]ecology.Study, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	rng, err := s.rngPort.SeededStream(ctx, "design", spec.Seed)
	if err != nil {
		return nil, err
	}

	studies := make([]ecology.Study, spec.Studies)
	for i := range studies {
		grain := spec.GrainMin + rng.Float64()*(spec.GrainMax-spec.GrainMin)
		studies[i] = ecology.Study{
			ID:        core.StudyID(core.NewID()),
			Index:     i,
			Grain:     grain,
			Quadrats:  spec.Quadrats,
			Placement: spec.Placement,
			Control:   spec.Control,
			Treatment: spec.Treatment,
		}
	}
	return studies, nil
}

// studyOutput collects everything one study contributes to the run.
type studyOutput struct {
	records []metrics.StudyRecord
	samples []ecology.Sample
}

// Run executes the whole batch. Studies are independent and run under a
// bounded parallel map; every random draw comes from a stream keyed by
// (study index, condition, stage), so results are identical for a fixed seed
// regardless of scheduling.
func (s *SimulationService) Run(ctx context.Context, spec BatchSpec) (*models.RunResult, error) {
	studies, err := s.DesignStudies(ctx, spec)
	if err != nil {
		return nil, err
	}

	runID := spec.RunID
	if runID == "" {
		runID = core.RunID(core.NewID())
	}
	s.logger.Info("run %s: %d studies, seed %d, grain [%g, %g]",
		runID, spec.Studies, spec.Seed, spec.GrainMin, spec.GrainMax)

	outputs := make([]studyOutput, len(studies))

	limit := int64(spec.Concurrency)
	if limit <= 0 {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)
	g, gctx := errgroup.WithContext(ctx)
	for i := range studies {
		study := studies[i]
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			out, err := s.runStudy(gctx, study, spec.Seed)
			if err != nil {
				return fmt.Errorf("study %d: %w", study.Index, err)
			}
			outputs[study.Index] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []metrics.StudyRecord
	var samples []ecology.Sample
	indexes := make(map[core.StudyID]int, len(studies))
	for _, study := range studies {
		indexes[study.ID] = study.Index
	}
	for _, out := range outputs {
		records = append(records, out.records...)
		samples = append(samples, out.samples...)
	}

	result := &models.RunResult{
		Run: models.Run{
			ID:         runID,
			Seed:       spec.Seed,
			CreatedAt:  core.Now(),
			StudyCount: len(studies),
			Studies:    studies,
		},
		Records: records,
		Effects: effects.Pair(records, metrics.Kinds(), indexes),
		Samples: samples,
	}

	if !spec.SkipStandardization {
		s.standardize(result, spec.RarefactionTarget, indexes)
	}

	result.Summaries = effects.SummarizeAll(result.Effects, false)
	result.Summaries = append(result.Summaries, effects.SummarizeAll(result.Standardized, true)...)

	if s.repo != nil {
		if err := s.persist(ctx, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// runStudy executes generation, sampling and metric calculation for both
// conditions of one study.
func (s *SimulationService) runStudy(ctx context.Context, study ecology.Study, baseSeed int64) (studyOutput, error) {
	var out studyOutput
	for _, condition := range []ecology.Condition{ecology.ConditionControl, ecology.ConditionTreatment} {
		genRNG, err := s.rngPort.StudyStream(ctx, study.Index, string(condition), "generate", baseSeed)
		if err != nil {
			return out, err
		}
		community, err := s.generator.Generate(ctx, study.Params(condition), genRNG)
		if err != nil {
			return out, err
		}

		sampleRNG, err := s.rngPort.StudyStream(ctx, study.Index, string(condition), "sample", baseSeed)
		if err != nil {
			return out, err
		}
		sample, err := s.sampler.Sample(ctx, community, study, condition, sampleRNG)
		if err != nil {
			return out, err
		}

		out.samples = append(out.samples, sample)
		out.records = append(out.records, diversity.StudyRecord(sample))
	}
	return out, nil
}

// standardize recomputes richness effect sizes at a common individual count.
// An unselectable target (every quadrat empty, no samples) skips the stage
// with a warning rather than failing the run; per-sample target violations
// surface as undefined markers inside the standardized effects.
func (s *SimulationService) standardize(result *models.RunResult, target int, indexes map[core.StudyID]int) {
	if target <= 0 {
		var err error
		target, err = diversity.DefaultTarget(result.Samples)
		if err != nil {
			s.logger.Warn("run %s: standardization skipped: %v", result.Run.ID, err)
			return
		}
	}

	rarefied := make([]metrics.StudyRecord, 0, len(result.Samples))
	for _, sample := range result.Samples {
		rarefied = append(rarefied, diversity.RarefiedStudyRecord(sample, target))
	}

	result.RarefactionTarget = target
	result.Standardized = effects.Pair(rarefied, []metrics.Kind{metrics.KindRarefiedRichness}, indexes)
}

func (s *SimulationService) persist(ctx context.Context, result *models.RunResult) error {
	if err := s.repo.SaveRun(ctx, result.Run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := s.repo.SaveEffectSizes(ctx, result.Run.ID, false, result.Effects); err != nil {
		return fmt.Errorf("save effect sizes: %w", err)
	}
	if len(result.Standardized) > 0 {
		if err := s.repo.SaveEffectSizes(ctx, result.Run.ID, true, result.Standardized); err != nil {
			return fmt.Errorf("save standardized effect sizes: %w", err)
		}
	}
	if err := s.repo.SaveSummaries(ctx, result.Run.ID, result.Summaries); err != nil {
		return fmt.Errorf("save summaries: %w", err)
	}
	s.logger.Debug("run %s persisted", result.Run.ID)
	return nil
}

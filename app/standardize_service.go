package app

import (
	"grainmeta/adapters/stats/diversity"
	"grainmeta/adapters/stats/effects"
	"grainmeta/domain/core"
	"grainmeta/domain/metrics"
	"grainmeta/internal"
	"grainmeta/models"
)

// StandardizeService re-runs effort standardization on an existing run result
// at a caller-chosen target, without regenerating communities. Useful for
// exploring how the choice of T moves the standardized effect sizes.
type StandardizeService struct {
	logger *internal.Logger
}

// NewStandardizeService creates a standardize service.
func NewStandardizeService(logger *internal.Logger) *StandardizeService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &StandardizeService{logger: logger}
}

// Standardize returns a copy of the result with standardized effects and
// summaries recomputed at the given target. target 0 selects the default.
func (s *StandardizeService) Standardize(result models.RunResult, target int) (models.RunResult, error) {
	if len(result.Samples) == 0 {
		return models.RunResult{}, core.ErrNoSamples
	}

	if target <= 0 {
		var err error
		target, err = diversity.DefaultTarget(result.Samples)
		if err != nil {
			return models.RunResult{}, err
		}
		s.logger.Info("run %s: default rarefaction target %d", result.Run.ID, target)
	}

	indexes := make(map[core.StudyID]int, len(result.Run.Studies))
	for _, study := range result.Run.Studies {
		indexes[study.ID] = study.Index
	}

	rarefied := make([]metrics.StudyRecord, 0, len(result.Samples))
	for _, sample := range result.Samples {
		rarefied = append(rarefied, diversity.RarefiedStudyRecord(sample, target))
	}

	result.RarefactionTarget = target
	result.Standardized = effects.Pair(rarefied, []metrics.Kind{metrics.KindRarefiedRichness}, indexes)

	result.Summaries = effects.SummarizeAll(result.Effects, false)
	result.Summaries = append(result.Summaries, effects.SummarizeAll(result.Standardized, true)...)

	return result, nil
}

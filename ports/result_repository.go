package ports

import (
	"context"

	"grainmeta/domain/core"
	"grainmeta/domain/metrics"
	"grainmeta/models"
)

// ResultRepository persists simulation runs and their effect sizes.
type ResultRepository interface {
	SaveRun(ctx context.Context, run models.Run) error
	GetRun(ctx context.Context, id core.RunID) (models.Run, error)

	SaveEffectSizes(ctx context.Context, runID core.RunID, standardized bool, effects []metrics.EffectSize) error
	ListEffectSizes(ctx context.Context, runID core.RunID, standardized bool) ([]metrics.EffectSize, error)

	SaveSummaries(ctx context.Context, runID core.RunID, summaries []models.MetaSummary) error
}

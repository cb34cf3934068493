package models

import (
	"grainmeta/domain/core"
	"grainmeta/domain/ecology"
	"grainmeta/domain/metrics"
)

// Run identifies one simulation batch and its immutable study designs.
type Run struct {
	ID         core.RunID     `json:"id" db:"id"`
	Seed       int64          `json:"seed" db:"seed"`
	CreatedAt  core.Timestamp `json:"created_at" db:"created_at"`
	StudyCount int            `json:"study_count" db:"study_count"`

	Studies []ecology.Study `json:"studies" db:"-"`
}

// RunResult is the terminal artifact of a simulation batch: study-level metric
// records, raw effect sizes, and effort-standardized effect sizes.
type RunResult struct {
	Run     Run                   `json:"run"`
	Records []metrics.StudyRecord `json:"records"`
	Effects []metrics.EffectSize  `json:"effects"`

	// Samples are retained so effort standardization can be re-run at a
	// different target without regenerating communities.
	Samples []ecology.Sample `json:"samples,omitempty"`

	// Standardized holds effect sizes recomputed on rarefied richness; empty
	// when standardization was skipped or failed for the whole run.
	Standardized      []metrics.EffectSize `json:"standardized,omitempty"`
	RarefactionTarget int                  `json:"rarefaction_target,omitempty"`

	Summaries []MetaSummary `json:"summaries,omitempty"`
}

// EffectsFor filters effect sizes by metric kind.
func (r RunResult) EffectsFor(kind metrics.Kind, standardized bool) []metrics.EffectSize {
	source := r.Effects
	if standardized {
		source = r.Standardized
	}
	var out []metrics.EffectSize
	for _, es := range source {
		if es.Metric == kind {
			out = append(out, es)
		}
	}
	return out
}

// MetaSummary aggregates one metric's effect sizes across studies, including
// the LRR-on-grain regression that quantifies residual grain dependence.
type MetaSummary struct {
	Metric       metrics.Kind `json:"metric" db:"metric"`
	Standardized bool         `json:"standardized" db:"standardized"`
	Studies      int          `json:"studies" db:"studies"`
	Defined      int          `json:"defined" db:"defined"`
	Undefined    int          `json:"undefined" db:"undefined"`

	MeanLRR float64 `json:"mean_lrr" db:"mean_lrr"`
	SDLRR   float64 `json:"sd_lrr" db:"sd_lrr"`
	CILow   float64 `json:"ci_low" db:"ci_low"`
	CIHigh  float64 `json:"ci_high" db:"ci_high"`

	// Regression of LRR on grain across studies.
	GrainSlope     float64 `json:"grain_slope" db:"grain_slope"`
	GrainIntercept float64 `json:"grain_intercept" db:"grain_intercept"`
	GrainR2        float64 `json:"grain_r2" db:"grain_r2"`

	UndefinedReasons []string `json:"undefined_reasons,omitempty" db:"-"`
}

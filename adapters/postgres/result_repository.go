// Package postgres persists simulation runs and effect sizes. Persistence is
// optional infrastructure: the pipeline itself never depends on it.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"grainmeta/domain/core"
	"grainmeta/domain/ecology"
	"grainmeta/domain/metrics"
	"grainmeta/models"
	"grainmeta/ports"
)

// ResultRepositoryImpl implements ports.ResultRepository for PostgreSQL
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultRepository creates a new PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) ports.ResultRepository {
	return &ResultRepositoryImpl{db: db}
}

// EnsureSchema creates the result tables when they do not exist yet.
func (r *ResultRepositoryImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	seed BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	study_count INT NOT NULL,
	studies JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS effect_sizes (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	study_id TEXT NOT NULL,
	study_index INT NOT NULL,
	grain DOUBLE PRECISION NOT NULL,
	metric TEXT NOT NULL,
	standardized BOOLEAN NOT NULL,
	control_value DOUBLE PRECISION NOT NULL,
	control_defined BOOLEAN NOT NULL,
	control_reason TEXT NOT NULL DEFAULT '',
	treatment_value DOUBLE PRECISION NOT NULL,
	treatment_defined BOOLEAN NOT NULL,
	treatment_reason TEXT NOT NULL DEFAULT '',
	lrr DOUBLE PRECISION NOT NULL,
	lrr_defined BOOLEAN NOT NULL,
	lrr_reason TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, study_id, metric, standardized)
);

CREATE TABLE IF NOT EXISTS meta_summaries (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	metric TEXT NOT NULL,
	standardized BOOLEAN NOT NULL,
	studies INT NOT NULL,
	defined INT NOT NULL,
	undefined INT NOT NULL,
	mean_lrr DOUBLE PRECISION NOT NULL,
	sd_lrr DOUBLE PRECISION NOT NULL,
	ci_low DOUBLE PRECISION NOT NULL,
	ci_high DOUBLE PRECISION NOT NULL,
	grain_slope DOUBLE PRECISION NOT NULL,
	grain_intercept DOUBLE PRECISION NOT NULL,
	grain_r2 DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, metric, standardized)
);`

// SaveRun upserts a run and its immutable study designs.
func (r *ResultRepositoryImpl) SaveRun(ctx context.Context, run models.Run) error {
	studiesJSON, err := json.Marshal(run.Studies)
	if err != nil {
		return fmt.Errorf("marshal studies: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, created_at, study_count, studies)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			seed = EXCLUDED.seed,
			study_count = EXCLUDED.study_count,
			studies = EXCLUDED.studies`,
		run.ID.String(), run.Seed, run.CreatedAt.Time(), run.StudyCount, studiesJSON)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetRun loads a run with its study designs.
func (r *ResultRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (models.Run, error) {
	var row struct {
		ID         string       `db:"id"`
		Seed       int64        `db:"seed"`
		CreatedAt  sql.NullTime `db:"created_at"`
		StudyCount int          `db:"study_count"`
		Studies    []byte       `db:"studies"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT id, seed, created_at, study_count, studies
		FROM runs WHERE id = $1`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return models.Run{}, core.ErrRunNotFound
	}
	if err != nil {
		return models.Run{}, fmt.Errorf("get run: %w", err)
	}

	var studies []ecology.Study
	if err := json.Unmarshal(row.Studies, &studies); err != nil {
		return models.Run{}, fmt.Errorf("unmarshal studies: %w", err)
	}

	run := models.Run{
		ID:         core.RunID(row.ID),
		Seed:       row.Seed,
		StudyCount: row.StudyCount,
		Studies:    studies,
	}
	if row.CreatedAt.Valid {
		run.CreatedAt = core.NewTimestamp(row.CreatedAt.Time)
	}
	return run, nil
}

// SaveEffectSizes stores all effect sizes of one run/standardization pass.
func (r *ResultRepositoryImpl) SaveEffectSizes(ctx context.Context, runID core.RunID, standardized bool, effects []metrics.EffectSize) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, es := range effects {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO effect_sizes (
				run_id, study_id, study_index, grain, metric, standardized,
				control_value, control_defined, control_reason,
				treatment_value, treatment_defined, treatment_reason,
				lrr, lrr_defined, lrr_reason
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (run_id, study_id, metric, standardized) DO UPDATE SET
				control_value = EXCLUDED.control_value,
				control_defined = EXCLUDED.control_defined,
				control_reason = EXCLUDED.control_reason,
				treatment_value = EXCLUDED.treatment_value,
				treatment_defined = EXCLUDED.treatment_defined,
				treatment_reason = EXCLUDED.treatment_reason,
				lrr = EXCLUDED.lrr,
				lrr_defined = EXCLUDED.lrr_defined,
				lrr_reason = EXCLUDED.lrr_reason`,
			runID.String(), es.StudyID.String(), es.StudyIndex, es.Grain, string(es.Metric), standardized,
			es.Control.Value, es.Control.Defined, es.Control.Reason,
			es.Treatment.Value, es.Treatment.Defined, es.Treatment.Reason,
			es.LRR.Value, es.LRR.Defined, es.LRR.Reason)
		if err != nil {
			return fmt.Errorf("save effect size %s/%s: %w", es.StudyID, es.Metric, err)
		}
	}
	return tx.Commit()
}

// ListEffectSizes loads one run's effect sizes in study order.
func (r *ResultRepositoryImpl) ListEffectSizes(ctx context.Context, runID core.RunID, standardized bool) ([]metrics.EffectSize, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT study_id, study_index, grain, metric,
			control_value, control_defined, control_reason,
			treatment_value, treatment_defined, treatment_reason,
			lrr, lrr_defined, lrr_reason
		FROM effect_sizes
		WHERE run_id = $1 AND standardized = $2
		ORDER BY study_index, metric`, runID.String(), standardized)
	if err != nil {
		return nil, fmt.Errorf("list effect sizes: %w", err)
	}
	defer rows.Close()

	var out []metrics.EffectSize
	for rows.Next() {
		var row struct {
			StudyID          string  `db:"study_id"`
			StudyIndex       int     `db:"study_index"`
			Grain            float64 `db:"grain"`
			Metric           string  `db:"metric"`
			ControlValue     float64 `db:"control_value"`
			ControlDefined   bool    `db:"control_defined"`
			ControlReason    string  `db:"control_reason"`
			TreatmentValue   float64 `db:"treatment_value"`
			TreatmentDefined bool    `db:"treatment_defined"`
			TreatmentReason  string  `db:"treatment_reason"`
			LRR              float64 `db:"lrr"`
			LRRDefined       bool    `db:"lrr_defined"`
			LRRReason        string  `db:"lrr_reason"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan effect size: %w", err)
		}
		kind := metrics.Kind(row.Metric)
		out = append(out, metrics.EffectSize{
			StudyID:    core.StudyID(row.StudyID),
			StudyIndex: row.StudyIndex,
			Grain:      row.Grain,
			Metric:     kind,
			Control:    metrics.Value{Kind: kind, Value: row.ControlValue, Defined: row.ControlDefined, Reason: row.ControlReason},
			Treatment:  metrics.Value{Kind: kind, Value: row.TreatmentValue, Defined: row.TreatmentDefined, Reason: row.TreatmentReason},
			LRR:        metrics.LogRatio{Value: row.LRR, Defined: row.LRRDefined, Reason: row.LRRReason},
		})
	}
	return out, rows.Err()
}

// SaveSummaries stores the meta-analysis summaries for one run.
func (r *ResultRepositoryImpl) SaveSummaries(ctx context.Context, runID core.RunID, summaries []models.MetaSummary) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, s := range summaries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO meta_summaries (
				run_id, metric, standardized, studies, defined, undefined,
				mean_lrr, sd_lrr, ci_low, ci_high,
				grain_slope, grain_intercept, grain_r2
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (run_id, metric, standardized) DO UPDATE SET
				studies = EXCLUDED.studies,
				defined = EXCLUDED.defined,
				undefined = EXCLUDED.undefined,
				mean_lrr = EXCLUDED.mean_lrr,
				sd_lrr = EXCLUDED.sd_lrr,
				ci_low = EXCLUDED.ci_low,
				ci_high = EXCLUDED.ci_high,
				grain_slope = EXCLUDED.grain_slope,
				grain_intercept = EXCLUDED.grain_intercept,
				grain_r2 = EXCLUDED.grain_r2`,
			runID.String(), string(s.Metric), s.Standardized, s.Studies, s.Defined, s.Undefined,
			s.MeanLRR, s.SDLRR, s.CILow, s.CIHigh,
			s.GrainSlope, s.GrainIntercept, s.GrainR2)
		if err != nil {
			return fmt.Errorf("save summary %s: %w", s.Metric, err)
		}
	}
	return tx.Commit()
}

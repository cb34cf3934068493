// Package excel exports run results as a workbook with one sheet per artifact:
// study designs, effect sizes, and meta-analysis summaries.
package excel

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"grainmeta/domain/metrics"
	"grainmeta/models"
	"grainmeta/ports"
)

// ExporterImpl implements ports.ResultExporter for .xlsx workbooks
type ExporterImpl struct{}

// NewExporter creates a new workbook exporter
func NewExporter() ports.ResultExporter {
	return &ExporterImpl{}
}

const (
	sheetStudies   = "Studies"
	sheetEffects   = "EffectSizes"
	sheetSummaries = "Summary"
)

// Export writes the run result to an .xlsx file at path.
func (e *ExporterImpl) Export(ctx context.Context, result models.RunResult, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()

	if err := e.writeStudies(f, result); err != nil {
		return fmt.Errorf("write studies sheet: %w", err)
	}
	if err := e.writeEffects(f, result); err != nil {
		return fmt.Errorf("write effect sizes sheet: %w", err)
	}
	if err := e.writeSummaries(f, result.Summaries); err != nil {
		return fmt.Errorf("write summary sheet: %w", err)
	}

	// Drop the default sheet so the workbook opens on Studies.
	if idx, err := f.GetSheetIndex(sheetStudies); err == nil && idx != -1 {
		f.SetActiveSheet(idx)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (e *ExporterImpl) writeStudies(f *excelize.File, result models.RunResult) error {
	if _, err := f.NewSheet(sheetStudies); err != nil {
		return err
	}
	headers := []string{
		"study_index", "study_id", "grain", "quadrats", "placement",
		"control_pool", "control_individuals", "treatment_pool", "treatment_individuals",
	}
	if err := writeRow(f, sheetStudies, 1, toCells(headers)); err != nil {
		return err
	}
	for i, s := range result.Run.Studies {
		row := []interface{}{
			s.Index, s.ID.String(), s.Grain, s.Quadrats, string(s.Placement),
			s.Control.PoolSize, s.Control.Individuals,
			s.Treatment.PoolSize, s.Treatment.Individuals,
		}
		if err := writeRow(f, sheetStudies, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (e *ExporterImpl) writeEffects(f *excelize.File, result models.RunResult) error {
	if _, err := f.NewSheet(sheetEffects); err != nil {
		return err
	}
	headers := []string{
		"study_index", "study_id", "grain", "metric", "standardized",
		"control", "treatment", "lrr", "lrr_defined", "lrr_reason",
	}
	if err := writeRow(f, sheetEffects, 1, toCells(headers)); err != nil {
		return err
	}
	rowIdx := 2
	for _, group := range []struct {
		effects      []metrics.EffectSize
		standardized bool
	}{
		{result.Effects, false},
		{result.Standardized, true},
	} {
		for _, es := range group.effects {
			row := []interface{}{
				es.StudyIndex, es.StudyID.String(), es.Grain, string(es.Metric), group.standardized,
				metricCell(es.Control.Value, es.Control.Defined),
				metricCell(es.Treatment.Value, es.Treatment.Defined),
				metricCell(es.LRR.Value, es.LRR.Defined),
				es.LRR.Defined, es.LRR.Reason,
			}
			if err := writeRow(f, sheetEffects, rowIdx, row); err != nil {
				return err
			}
			rowIdx++
		}
	}
	return nil
}

func (e *ExporterImpl) writeSummaries(f *excelize.File, summaries []models.MetaSummary) error {
	if _, err := f.NewSheet(sheetSummaries); err != nil {
		return err
	}
	headers := []string{
		"metric", "standardized", "studies", "defined", "undefined",
		"mean_lrr", "sd_lrr", "ci_low", "ci_high",
		"grain_slope", "grain_intercept", "grain_r2",
	}
	if err := writeRow(f, sheetSummaries, 1, toCells(headers)); err != nil {
		return err
	}
	for i, s := range summaries {
		row := []interface{}{
			string(s.Metric), s.Standardized, s.Studies, s.Defined, s.Undefined,
			s.MeanLRR, s.SDLRR, s.CILow, s.CIHigh,
			s.GrainSlope, s.GrainIntercept, s.GrainR2,
		}
		if err := writeRow(f, sheetSummaries, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

// metricCell renders undefined values as the literal "NA" so a reader can tell
// an undefined cell from a true zero.
func metricCell(v float64, defined bool) interface{} {
	if !defined {
		return "NA"
	}
	return v
}

func writeRow(f *excelize.File, sheet string, rowIdx int, values []interface{}) error {
	for c, v := range values {
		cell, _ := excelize.CoordinatesToCellName(c+1, rowIdx)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func toCells(headers []string) []interface{} {
	out := make([]interface{}, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}

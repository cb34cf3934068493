package excel

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"grainmeta/domain/core"
	"grainmeta/domain/ecology"
	"grainmeta/domain/metrics"
	"grainmeta/models"
)

func sampleResult() models.RunResult {
	studyID := core.StudyID("study-1")
	return models.RunResult{
		Run: models.Run{
			ID:         core.RunID("run-1"),
			Seed:       42,
			StudyCount: 1,
			Studies: []ecology.Study{{
				ID:        studyID,
				Index:     0,
				Grain:     0.05,
				Quadrats:  5,
				Placement: ecology.PlacementRandom,
				Control:   ecology.CommunityParams{PoolSize: 100, Individuals: 1000, Shape: 1},
				Treatment: ecology.CommunityParams{PoolSize: 50, Individuals: 1000, Shape: 1},
			}},
		},
		Effects: []metrics.EffectSize{{
			StudyID:   studyID,
			Grain:     0.05,
			Metric:    metrics.KindRichness,
			Control:   metrics.Defined(metrics.KindRichness, 40),
			Treatment: metrics.Defined(metrics.KindRichness, 20),
			LRR:       metrics.LogRatio{Value: math.Log(0.5), Defined: true},
		}, {
			StudyID:   studyID,
			Grain:     0.05,
			Metric:    metrics.KindSPIE,
			Control:   metrics.Undefined(metrics.KindSPIE, "fewer than two individuals"),
			Treatment: metrics.Defined(metrics.KindSPIE, 12.5),
			LRR:       metrics.LogRatio{Defined: false, Reason: "control s_pie undefined"},
		}},
		Summaries: []models.MetaSummary{{
			Metric:  metrics.KindRichness,
			Studies: 1,
			Defined: 1,
			MeanLRR: math.Log(0.5),
		}},
	}
}

func TestExport_WritesAllSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	exporter := NewExporter()

	err := exporter.Export(context.Background(), sampleResult(), path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, sheetStudies)
	assert.Contains(t, sheets, sheetEffects)
	assert.Contains(t, sheets, sheetSummaries)
	assert.NotContains(t, sheets, "Sheet1")

	header, err := f.GetCellValue(sheetStudies, "A1")
	require.NoError(t, err)
	assert.Equal(t, "study_index", header)

	grain, err := f.GetCellValue(sheetStudies, "C2")
	require.NoError(t, err)
	assert.Equal(t, "0.05", grain)
}

func TestExport_UndefinedCellsMarkedNA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	exporter := NewExporter()

	err := exporter.Export(context.Background(), sampleResult(), path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Row 3 is the s_pie effect with an undefined control.
	control, err := f.GetCellValue(sheetEffects, "F3")
	require.NoError(t, err)
	assert.Equal(t, "NA", control)

	lrr, err := f.GetCellValue(sheetEffects, "H3")
	require.NoError(t, err)
	assert.Equal(t, "NA", lrr)

	reason, err := f.GetCellValue(sheetEffects, "J3")
	require.NoError(t, err)
	assert.Contains(t, reason, "undefined")
}

func TestExport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exporter := NewExporter()
	err := exporter.Export(ctx, sampleResult(), filepath.Join(t.TempDir(), "out.xlsx"))
	assert.Error(t, err)
}

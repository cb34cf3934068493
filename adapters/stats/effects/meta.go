package effects

import (
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"grainmeta/domain/metrics"
	"grainmeta/models"
)

// Summarize aggregates one metric's effect sizes across studies: mean LRR with
// a normal-approximation 95% interval, the undefined-cell tally, and the
// regression of LRR on grain that quantifies how much sampling grain leaks
// into the effect size.
func Summarize(allEffects []metrics.EffectSize, kind metrics.Kind, standardized bool) models.MetaSummary {
	summary := models.MetaSummary{
		Metric:       kind,
		Standardized: standardized,
	}

	var lrrs, grains []float64
	for _, es := range allEffects {
		if es.Metric != kind {
			continue
		}
		summary.Studies++
		if !es.LRR.Defined {
			summary.Undefined++
			summary.UndefinedReasons = append(summary.UndefinedReasons, es.LRR.Reason)
			continue
		}
		summary.Defined++
		lrrs = append(lrrs, es.LRR.Value)
		grains = append(grains, es.Grain)
	}

	if len(lrrs) == 0 {
		return summary
	}

	mean, _ := mstats.Mean(lrrs)
	summary.MeanLRR = mean
	if len(lrrs) > 1 {
		sd, _ := mstats.StandardDeviationSample(lrrs)
		summary.SDLRR = sd
		halfWidth := 1.96 * sd / math.Sqrt(float64(len(lrrs)))
		summary.CILow = mean - halfWidth
		summary.CIHigh = mean + halfWidth
	} else {
		summary.CILow = mean
		summary.CIHigh = mean
	}

	if len(lrrs) > 2 && !constant(grains) {
		alpha, beta := stat.LinearRegression(grains, lrrs, nil, false)
		summary.GrainIntercept = alpha
		summary.GrainSlope = beta
		summary.GrainR2 = stat.RSquared(grains, lrrs, nil, alpha, beta)
	}

	return summary
}

// SummarizeAll produces summaries for every metric kind present in the effects.
func SummarizeAll(allEffects []metrics.EffectSize, standardized bool) []models.MetaSummary {
	seen := make(map[metrics.Kind]bool)
	var kinds []metrics.Kind
	for _, es := range allEffects {
		if !seen[es.Metric] {
			seen[es.Metric] = true
			kinds = append(kinds, es.Metric)
		}
	}

	summaries := make([]models.MetaSummary, 0, len(kinds))
	for _, kind := range kinds {
		summaries = append(summaries, Summarize(allEffects, kind, standardized))
	}
	return summaries
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

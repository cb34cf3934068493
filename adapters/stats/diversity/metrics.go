// Package diversity computes per-sample biodiversity metrics: total abundance,
// species richness, the PIE-based effective species number, and rarefied
// richness at a standardized individual count.
package diversity

import (
	"fmt"

	mstats "github.com/montanaflynn/stats"

	"grainmeta/domain/ecology"
	"grainmeta/domain/metrics"
)

// SiteMetrics computes the raw metric values for every quadrat of a sample.
func SiteMetrics(sample ecology.Sample) []metrics.SiteRecord {
	records := make([]metrics.SiteRecord, sample.Sites())
	for i := range records {
		records[i] = metrics.SiteRecord{
			Site: i,
			Values: map[metrics.Kind]metrics.Value{
				metrics.KindAbundance: metrics.Defined(metrics.KindAbundance, float64(sample.SiteTotal(i))),
				metrics.KindRichness:  metrics.Defined(metrics.KindRichness, float64(sample.SiteRichness(i))),
				metrics.KindSPIE:      SPIE(sample.Counts[i]),
			},
		}
	}
	return records
}

// SPIE returns the effective number of species derived from the probability of
// interspecific encounter (Hurlbert's PIE with the N/(N-1) bias correction,
// converted to an effective species number as 1/(1-PIE)). Undefined for
// samples with fewer than two individuals, where encounter probability has no
// meaning, and for the degenerate two-individual two-species case where the
// corrected PIE reaches one.
func SPIE(counts []int) metrics.Value {
	n := 0
	for _, c := range counts {
		n += c
	}
	if n < 2 {
		return metrics.Undefined(metrics.KindSPIE, fmt.Sprintf("needs at least 2 individuals, sample has %d", n))
	}

	sumSquares := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		sumSquares += p * p
	}

	pie := float64(n) / float64(n-1) * (1 - sumSquares)
	if pie >= 1 {
		return metrics.Undefined(metrics.KindSPIE, "corrected PIE reached 1, effective species number diverges")
	}
	return metrics.Defined(metrics.KindSPIE, 1/(1-pie))
}

// StudyRecord aggregates site metrics to the study level as the mean across
// quadrats. Sites where a metric is undefined are excluded from that metric's
// mean; a metric undefined at every site stays undefined with the reason kept.
func StudyRecord(sample ecology.Sample) metrics.StudyRecord {
	sites := SiteMetrics(sample)
	values := make(map[metrics.Kind]metrics.Value, len(metrics.Kinds()))
	for _, kind := range metrics.Kinds() {
		values[kind] = meanAcrossSites(sites, kind)
	}
	return metrics.StudyRecord{
		StudyID:   sample.StudyID,
		Condition: sample.Condition,
		Grain:     sample.Grain,
		Values:    values,
	}
}

func meanAcrossSites(sites []metrics.SiteRecord, kind metrics.Kind) metrics.Value {
	var defined []float64
	lastReason := "no sites"
	for _, site := range sites {
		v := site.Values[kind]
		if v.Defined {
			defined = append(defined, v.Value)
		} else {
			lastReason = v.Reason
		}
	}
	if len(defined) == 0 {
		return metrics.Undefined(kind, fmt.Sprintf("undefined at every site: %s", lastReason))
	}
	mean, err := mstats.Mean(defined)
	if err != nil {
		return metrics.Undefined(kind, err.Error())
	}
	return metrics.Defined(kind, mean)
}

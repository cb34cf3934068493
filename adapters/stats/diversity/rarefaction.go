package diversity

import (
	"fmt"
	"math"

	"grainmeta/domain/core"
	"grainmeta/domain/ecology"
	"grainmeta/domain/metrics"
)

// ExpectedRichness computes individual-based rarefaction (Hurlbert):
//
//	E[S_T] = S - sum_i C(N-n_i, T) / C(N, T)
//
// the expected species count in a random subsample of T individuals. Terms
// with N-n_i < T contribute zero to the sum (the species is certain to appear).
// The binomial ratio is evaluated in log-gamma space so large N do not
// overflow. T above the sample total is rejected, never extrapolated.
func ExpectedRichness(counts []int, target int) (float64, error) {
	if target <= 0 {
		return 0, core.NewParameterError("rarefaction target", "must be positive")
	}

	total := 0
	observed := 0
	for _, c := range counts {
		if c < 0 {
			return 0, core.NewParameterError("species count", "cannot be negative")
		}
		total += c
		if c > 0 {
			observed++
		}
	}
	if total == 0 {
		return 0, core.ErrEmptySample
	}
	if target > total {
		return 0, core.NewRarefactionError(target, total)
	}

	expected := float64(observed)
	for _, c := range counts {
		if c == 0 || total-c < target {
			continue
		}
		expected -= math.Exp(logChoose(total-c, target) - logChoose(total, target))
	}
	return expected, nil
}

// logChoose returns ln C(n, k) via log-gamma.
func logChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	ln1, _ := math.Lgamma(float64(n + 1))
	ln2, _ := math.Lgamma(float64(k + 1))
	ln3, _ := math.Lgamma(float64(n - k + 1))
	return ln1 - ln2 - ln3
}

// RarefiedStudyRecord computes the study-level rarefied richness for one
// sample: mean over quadrats of E[S_T] at the common target. Any quadrat whose
// total falls below the target makes the study's standardized richness
// undefined; partial extrapolation would reintroduce the grain confound the
// standardization exists to remove.
func RarefiedStudyRecord(sample ecology.Sample, target int) metrics.StudyRecord {
	value := rarefiedMean(sample, target)
	return metrics.StudyRecord{
		StudyID:   sample.StudyID,
		Condition: sample.Condition,
		Grain:     sample.Grain,
		Values: map[metrics.Kind]metrics.Value{
			metrics.KindRarefiedRichness: value,
		},
	}
}

func rarefiedMean(sample ecology.Sample, target int) metrics.Value {
	if sample.Sites() == 0 {
		return metrics.Undefined(metrics.KindRarefiedRichness, "sample has no quadrats")
	}
	sum := 0.0
	for i := 0; i < sample.Sites(); i++ {
		expected, err := ExpectedRichness(sample.Counts[i], target)
		if err != nil {
			return metrics.Undefined(metrics.KindRarefiedRichness,
				fmt.Sprintf("site %d: %v", i, err))
		}
		sum += expected
	}
	return metrics.Defined(metrics.KindRarefiedRichness, sum/float64(sample.Sites()))
}

// DefaultTarget picks the standardization target for a set of samples: the
// mean quadrat abundance of the smallest-grain sample, clamped to the minimum
// quadrat total so rarefaction stays defined everywhere. Samples with empty
// quadrats force the floor to zero, which callers must treat as "no valid
// target" (ErrNoSamples).
func DefaultTarget(samples []ecology.Sample) (int, error) {
	if len(samples) == 0 {
		return 0, core.ErrNoSamples
	}

	smallest := samples[0]
	minSiteTotal := math.MaxInt
	for _, s := range samples {
		if s.Grain < smallest.Grain {
			smallest = s
		}
		for i := 0; i < s.Sites(); i++ {
			if t := s.SiteTotal(i); t < minSiteTotal {
				minSiteTotal = t
			}
		}
	}

	if smallest.Sites() == 0 {
		return 0, core.ErrNoSamples
	}
	mean := float64(smallest.Total()) / float64(smallest.Sites())
	target := int(math.Floor(mean))
	if target > minSiteTotal {
		target = minSiteTotal
	}
	if target < 1 {
		return 0, fmt.Errorf("%w: smallest quadrat holds no individuals", core.ErrNoSamples)
	}
	return target, nil
}

// Package effects turns matched study records into log-ratio effect sizes and
// aggregates them into meta-analysis summaries.
package effects

import (
	"sort"

	"grainmeta/domain/core"
	"grainmeta/domain/ecology"
	"grainmeta/domain/metrics"
)

// Pair groups study records by study and computes one effect size per metric
// kind. Studies missing either condition are skipped entirely; studies whose
// metric is undefined in a condition produce an undefined LRR marker, which is
// kept — undefined cells are part of the result, not noise to drop.
func Pair(records []metrics.StudyRecord, kinds []metrics.Kind, indexes map[core.StudyID]int) []metrics.EffectSize {
	byStudy := make(map[core.StudyID]map[ecology.Condition]metrics.StudyRecord)
	var order []core.StudyID
	for _, r := range records {
		if _, ok := byStudy[r.StudyID]; !ok {
			byStudy[r.StudyID] = make(map[ecology.Condition]metrics.StudyRecord, 2)
			order = append(order, r.StudyID)
		}
		byStudy[r.StudyID][r.Condition] = r
	}
	sort.Slice(order, func(i, j int) bool { return indexes[order[i]] < indexes[order[j]] })

	var out []metrics.EffectSize
	for _, id := range order {
		pair := byStudy[id]
		control, okC := pair[ecology.ConditionControl]
		treatment, okT := pair[ecology.ConditionTreatment]
		if !okC || !okT {
			continue
		}
		for _, kind := range kinds {
			es := metrics.NewEffectSize(control, treatment, kind)
			es.StudyIndex = indexes[id]
			out = append(out, es)
		}
	}
	return out
}

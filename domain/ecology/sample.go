package ecology

import (
	"grainmeta/domain/core"
)

// Sample is a sites-by-species count matrix produced by quadrat sampling one
// community. Rows are quadrats, columns are species indexed against the
// community's pool. Derived data, owned by its (study, condition) pair.
type Sample struct {
	StudyID   core.StudyID `json:"study_id"`
	Condition Condition    `json:"condition"`
	Grain     float64      `json:"grain"`
	Counts    [][]int      `json:"counts"`
}

// Sites returns the number of quadrats in the sample.
func (s Sample) Sites() int {
	return len(s.Counts)
}

// Species returns the number of species columns.
func (s Sample) Species() int {
	if len(s.Counts) == 0 {
		return 0
	}
	return len(s.Counts[0])
}

// SiteTotal returns the total abundance in quadrat i.
func (s Sample) SiteTotal(i int) int {
	total := 0
	for _, n := range s.Counts[i] {
		total += n
	}
	return total
}

// SiteRichness returns the number of species present in quadrat i.
func (s Sample) SiteRichness(i int) int {
	richness := 0
	for _, n := range s.Counts[i] {
		if n > 0 {
			richness++
		}
	}
	return richness
}

// Pooled collapses all quadrats into a single species count vector.
func (s Sample) Pooled() []int {
	pooled := make([]int, s.Species())
	for _, row := range s.Counts {
		for j, n := range row {
			pooled[j] += n
		}
	}
	return pooled
}

// Total returns the total abundance across all quadrats.
func (s Sample) Total() int {
	total := 0
	for i := range s.Counts {
		total += s.SiteTotal(i)
	}
	return total
}

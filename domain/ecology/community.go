package ecology

// Point is a location in the unit-square extent.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Inside reports whether the point lies within [0,1] x [0,1].
func (p Point) Inside() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

// Individual is one organism: a species index into the study's pool and a
// location in the extent.
type Individual struct {
	Species int   `json:"species"`
	Loc     Point `json:"loc"`
}

// Community is a realized set of individuals placed in the unit-square extent.
// Immutable after generation; species are indexed 0..PoolSize-1 against the
// study's configured pool, so realized richness is always <= PoolSize.
type Community struct {
	PoolSize    int          `json:"pool_size"`
	Individuals []Individual `json:"individuals"`
}

// Abundances returns per-species counts, indexed by species. The slice always
// has PoolSize entries; species absent from the realization have count zero.
func (c Community) Abundances() []int {
	counts := make([]int, c.PoolSize)
	for _, ind := range c.Individuals {
		if ind.Species >= 0 && ind.Species < c.PoolSize {
			counts[ind.Species]++
		}
	}
	return counts
}

// Total returns the realized number of individuals.
func (c Community) Total() int {
	return len(c.Individuals)
}

// Richness returns the realized number of species with at least one individual.
func (c Community) Richness() int {
	richness := 0
	for _, n := range c.Abundances() {
		if n > 0 {
			richness++
		}
	}
	return richness
}

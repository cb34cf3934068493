// Package community realizes synthetic ecological communities: a log-normal
// species abundance distribution over a fixed pool, with individuals placed in
// the unit-square extent either uniformly or as a Thomas cluster process.
package community

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"grainmeta/domain/ecology"
	"grainmeta/ports"
)

// Generator implements ports.CommunityGenerator.
type Generator struct{}

// NewGenerator creates a new community generator.
func NewGenerator() *Generator {
	return &Generator{}
}

var _ ports.CommunityGenerator = (*Generator)(nil)

// Generate realizes one community. Deterministic for a fixed rng state; the
// only failure mode is invalid parameters.
func (g *Generator) Generate(ctx context.Context, params ecology.CommunityParams, rng *rand.Rand) (ecology.Community, error) {
	if err := params.Validate(); err != nil {
		return ecology.Community{}, err
	}

	abundances := g.drawAbundances(params, rng)

	var individuals []ecology.Individual
	switch params.Spatial {
	case ecology.SpatialClustered:
		individuals = g.placeClustered(params, abundances, rng)
	default:
		individuals = g.placeRandom(abundances, rng)
	}

	return ecology.Community{
		PoolSize:    params.PoolSize,
		Individuals: individuals,
	}, nil
}

// drawAbundances draws species counts from a log-normal SAD. Relative
// abundances come from LogNormal(0, sigma); individuals are then assigned
// multinomially (exact totals) or per-species Poisson (expected totals).
func (g *Generator) drawAbundances(params ecology.CommunityParams, rng *rand.Rand) []int {
	lognorm := distuv.LogNormal{Mu: 0, Sigma: params.Shape, Src: rng}

	weights := make([]float64, params.PoolSize)
	total := 0.0
	for i := range weights {
		weights[i] = lognorm.Rand()
		total += weights[i]
	}

	counts := make([]int, params.PoolSize)
	if params.Totals == ecology.TotalExpected {
		for i, w := range weights {
			lambda := float64(params.Individuals) * w / total
			counts[i] = int(distuv.Poisson{Lambda: lambda, Src: rng}.Rand())
		}
		return counts
	}

	// Multinomial assignment via inverse CDF lookup.
	cumulative := make([]float64, len(weights))
	running := 0.0
	for i, w := range weights {
		running += w
		cumulative[i] = running
	}
	for j := 0; j < params.Individuals; j++ {
		u := rng.Float64() * total
		i := sort.SearchFloat64s(cumulative, u)
		if i >= len(counts) {
			i = len(counts) - 1
		}
		counts[i]++
	}
	return counts
}

// placeRandom scatters individuals uniformly over the extent (Poisson process).
func (g *Generator) placeRandom(abundances []int, rng *rand.Rand) []ecology.Individual {
	var individuals []ecology.Individual
	for species, n := range abundances {
		for k := 0; k < n; k++ {
			individuals = append(individuals, ecology.Individual{
				Species: species,
				Loc:     ecology.Point{X: rng.Float64(), Y: rng.Float64()},
			})
		}
	}
	return individuals
}

// placeClustered realizes a Thomas process: per-species parent points uniform
// over the extent, each individual displaced from a random parent by an
// isotropic gaussian. Coordinates wrap on the torus so density stays uniform
// near the edges.
func (g *Generator) placeClustered(params ecology.CommunityParams, abundances []int, rng *rand.Rand) []ecology.Individual {
	var individuals []ecology.Individual
	for species, n := range abundances {
		if n == 0 {
			continue
		}
		parents := make([]ecology.Point, params.ParentsPerSpecies)
		for p := range parents {
			parents[p] = ecology.Point{X: rng.Float64(), Y: rng.Float64()}
		}
		for k := 0; k < n; k++ {
			parent := parents[rng.Intn(len(parents))]
			individuals = append(individuals, ecology.Individual{
				Species: species,
				Loc: ecology.Point{
					X: wrap(parent.X + rng.NormFloat64()*params.ClusterSpread),
					Y: wrap(parent.Y + rng.NormFloat64()*params.ClusterSpread),
				},
			})
		}
	}
	return individuals
}

// wrap maps a coordinate onto the unit torus.
func wrap(x float64) float64 {
	x = math.Mod(x, 1)
	if x < 0 {
		x += 1
	}
	return x
}

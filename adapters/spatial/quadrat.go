// Package spatial draws quadrat samples from realized communities. A quadrat
// is an axis-aligned square of the study's grain area, placed fully inside the
// unit-square extent either on a tiling grid or uniformly at random.
package spatial

import (
	"context"
	"math"
	"math/rand"

	"grainmeta/domain/core"
	"grainmeta/domain/ecology"
	"grainmeta/ports"
)

// Sampler implements ports.QuadratSampler.
type Sampler struct{}

// NewSampler creates a new quadrat sampler.
func NewSampler() *Sampler {
	return &Sampler{}
}

var _ ports.QuadratSampler = (*Sampler)(nil)

// Sample places the study's quadrats over the community and counts individuals
// per quadrat per species. Quadrat membership is half-open ([x, x+side)) so
// grid quadrats never double-count boundary individuals.
func (s *Sampler) Sample(ctx context.Context, community ecology.Community, study ecology.Study, condition ecology.Condition, rng *rand.Rand) (ecology.Sample, error) {
	if err := study.Validate(); err != nil {
		return ecology.Sample{}, err
	}

	side := math.Sqrt(study.Grain)

	var origins []ecology.Point
	var err error
	switch study.Placement {
	case ecology.PlacementGrid:
		origins, err = gridOrigins(side, study.Quadrats)
	default:
		origins = randomOrigins(side, study.Quadrats, rng)
	}
	if err != nil {
		return ecology.Sample{}, err
	}

	counts := make([][]int, len(origins))
	for i := range counts {
		counts[i] = make([]int, community.PoolSize)
	}
	for _, ind := range community.Individuals {
		for i, origin := range origins {
			if ind.Loc.X >= origin.X && ind.Loc.X < origin.X+side &&
				ind.Loc.Y >= origin.Y && ind.Loc.Y < origin.Y+side {
				counts[i][ind.Species]++
			}
		}
	}

	return ecology.Sample{
		StudyID:   study.ID,
		Condition: condition,
		Grain:     study.Grain,
		Counts:    counts,
	}, nil
}

// randomOrigins draws quadrat lower-left corners uniformly so the quadrat
// stays inside the extent. Quadrats may overlap, as in field protocols that
// re-throw quadrats independently.
func randomOrigins(side float64, k int, rng *rand.Rand) []ecology.Point {
	origins := make([]ecology.Point, k)
	span := 1 - side
	for i := range origins {
		origins[i] = ecology.Point{X: rng.Float64() * span, Y: rng.Float64() * span}
	}
	return origins
}

// gridOrigins tiles the extent with non-overlapping cells of the quadrat side
// and picks k cells spread evenly over the tiling in row-major order.
func gridOrigins(side float64, k int) ([]ecology.Point, error) {
	perAxis := int(math.Floor(1 / side))
	cells := perAxis * perAxis
	if cells < k {
		return nil, core.NewParameterError("grain", "too coarse for the requested number of grid quadrats")
	}

	origins := make([]ecology.Point, 0, k)
	step := float64(cells) / float64(k)
	for i := 0; i < k; i++ {
		cell := int(float64(i) * step)
		row := cell / perAxis
		col := cell % perAxis
		origins = append(origins, ecology.Point{
			X: float64(col) * side,
			Y: float64(row) * side,
		})
	}
	return origins, nil
}

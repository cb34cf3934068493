package ports

import (
	"context"
	"math/rand"

	"grainmeta/domain/ecology"
)

// QuadratSampler draws a sites-by-species count matrix from a community by
// placing the study's quadrats over the extent.
type QuadratSampler interface {
	Sample(ctx context.Context, community ecology.Community, study ecology.Study, condition ecology.Condition, rng *rand.Rand) (ecology.Sample, error)
}

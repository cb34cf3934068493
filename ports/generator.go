package ports

import (
	"context"
	"math/rand"

	"grainmeta/domain/ecology"
)

// CommunityGenerator produces a realized community from condition parameters.
// Generation is a pure draw: deterministic for a given rng state, failing only
// on invalid parameters.
type CommunityGenerator interface {
	Generate(ctx context.Context, params ecology.CommunityParams, rng *rand.Rand) (ecology.Community, error)
}

package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// StudyStream creates a deterministic RNG stream for a specific study,
	// condition and pipeline stage. Streams for different (study, condition,
	// stage) tuples are independent, so studies can run in parallel while the
	// whole run stays reproducible for a fixed base seed.
	StudyStream(ctx context.Context, studyIndex int, condition, stage string, baseSeed int64) (*rand.Rand, error)
}

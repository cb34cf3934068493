// Package rng provides deterministic seeded random streams. Each named
// operation and each (study, condition, stage) tuple gets an independent
// stream derived from the base seed, so studies can be computed in parallel
// without the scheduling order changing any draw.
package rng

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"

	"grainmeta/ports"
)

// Adapter implements ports.RNGPort with FNV-derived sub-seeds.
type Adapter struct{}

// NewAdapter creates a new RNG adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

var _ ports.RNGPort = (*Adapter)(nil)

// SeededStream returns a deterministic stream for a named operation.
func (a *Adapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if name == "" {
		return nil, fmt.Errorf("stream name cannot be empty")
	}
	return rand.New(rand.NewSource(deriveSeed(seed, name))), nil
}

// StudyStream returns a deterministic stream for one study/condition/stage.
func (a *Adapter) StudyStream(ctx context.Context, studyIndex int, condition, stage string, baseSeed int64) (*rand.Rand, error) {
	if studyIndex < 0 {
		return nil, fmt.Errorf("study index cannot be negative")
	}
	if condition == "" || stage == "" {
		return nil, fmt.Errorf("condition and stage cannot be empty")
	}
	key := fmt.Sprintf("study/%d/%s/%s", studyIndex, condition, stage)
	return rand.New(rand.NewSource(deriveSeed(baseSeed, key))), nil
}

// deriveSeed mixes the base seed and key into an independent sub-seed.
func deriveSeed(base int64, key string) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(base))
	h.Write(buf[:])
	h.Write([]byte(key))
	return int64(h.Sum64())
}

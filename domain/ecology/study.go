package ecology

import (
	"grainmeta/domain/core"
)

// Condition identifies which arm of a study a community belongs to.
type Condition string

const (
	ConditionControl   Condition = "control"
	ConditionTreatment Condition = "treatment"
)

// SpatialProcess selects how individuals are placed within the extent.
type SpatialProcess string

const (
	// SpatialRandom places individuals uniformly at random (Poisson process).
	SpatialRandom SpatialProcess = "random"
	// SpatialClustered places individuals around per-species parent points
	// (Thomas / Poisson-cluster process).
	SpatialClustered SpatialProcess = "clustered"
)

// PlacementMethod selects how quadrats are positioned over a community.
type PlacementMethod string

const (
	PlacementRandom PlacementMethod = "random"
	PlacementGrid   PlacementMethod = "grid"
)

// TotalMode controls how the target individual count J is realized.
type TotalMode string

const (
	// TotalExact assigns exactly J individuals multinomially across species.
	TotalExact TotalMode = "exact"
	// TotalExpected draws per-species Poisson counts so the realized total
	// equals J in expectation.
	TotalExpected TotalMode = "expected"
)

// CommunityParams configures community generation for one study condition.
type CommunityParams struct {
	PoolSize    int            `json:"pool_size"`   // species pool S
	Individuals int            `json:"individuals"` // target total J
	Shape       float64        `json:"shape"`       // sigma of log-abundances
	Spatial     SpatialProcess `json:"spatial"`
	Totals      TotalMode      `json:"totals,omitempty"` // empty means exact

	// Clustered placement only.
	ParentsPerSpecies int     `json:"parents_per_species,omitempty"`
	ClusterSpread     float64 `json:"cluster_spread,omitempty"` // gaussian sd of offspring displacement
}

// Validate rejects parameter combinations the generator cannot realize.
func (p CommunityParams) Validate() error {
	if p.PoolSize <= 0 {
		return core.ErrInvalidPoolSize
	}
	if p.Individuals <= 0 {
		return core.ErrInvalidTotal
	}
	if p.Shape <= 0 {
		return core.ErrInvalidShape
	}
	switch p.Totals {
	case "", TotalExact, TotalExpected:
	default:
		return core.NewParameterError("totals", "must be exact or expected")
	}
	switch p.Spatial {
	case SpatialRandom:
	case SpatialClustered:
		if p.ParentsPerSpecies <= 0 {
			return core.NewParameterError("parents_per_species", "must be positive for clustered placement")
		}
		if p.ClusterSpread <= 0 {
			return core.NewParameterError("cluster_spread", "must be positive for clustered placement")
		}
	default:
		return core.NewParameterError("spatial", "must be random or clustered")
	}
	return nil
}

// Study holds the immutable design of one simulated study: its assigned
// sampling grain and the generation parameters for both conditions.
type Study struct {
	ID        core.StudyID    `json:"id"`
	Index     int             `json:"index"` // position in the run, used for seed derivation
	Grain     float64         `json:"grain"` // quadrat area in extent units
	Quadrats  int             `json:"quadrats"`
	Placement PlacementMethod `json:"placement"`
	Control   CommunityParams `json:"control"`
	Treatment CommunityParams `json:"treatment"`
}

// Validate checks the whole design, including both condition parameter sets.
func (s Study) Validate() error {
	if s.Grain <= 0 {
		return core.ErrInvalidGrain
	}
	if s.Grain > 1 {
		return core.NewParameterError("grain", "exceeds the unit extent")
	}
	if s.Quadrats <= 0 {
		return core.ErrInvalidQuadrats
	}
	switch s.Placement {
	case PlacementRandom, PlacementGrid:
	default:
		return core.NewParameterError("placement", "must be random or grid")
	}
	if err := s.Control.Validate(); err != nil {
		return err
	}
	return s.Treatment.Validate()
}

// Params returns the community parameters for the given condition.
func (s Study) Params(cond Condition) CommunityParams {
	if cond == ConditionTreatment {
		return s.Treatment
	}
	return s.Control
}

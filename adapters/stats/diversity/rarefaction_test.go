package diversity

import (
	"errors"
	"math"
	"testing"

	"grainmeta/domain/core"
	"grainmeta/domain/ecology"
)

func TestExpectedRichness_RoundTripAtFullSample(t *testing.T) {
	counts := []int{10, 5, 3, 0, 2}
	got, err := ExpectedRichness(counts, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Errorf("E[S_N] = %v, want exactly observed richness 4", got)
	}
}

func TestExpectedRichness_MonotoneInTarget(t *testing.T) {
	counts := []int{40, 20, 10, 5, 3, 1, 1}
	total := 80

	prev := 0.0
	for target := 1; target <= total; target++ {
		got, err := ExpectedRichness(counts, target)
		if err != nil {
			t.Fatalf("target %d: %v", target, err)
		}
		if got < prev-1e-9 {
			t.Fatalf("rarefied richness decreased: E[S_%d]=%v < E[S_%d]=%v", target, got, target-1, prev)
		}
		prev = got
	}
}

func TestExpectedRichness_SingleIndividualTarget(t *testing.T) {
	// E[S_1] is exactly 1 for any non-empty sample.
	got, err := ExpectedRichness([]int{7, 3, 12}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("E[S_1] = %v, want 1", got)
	}
}

func TestExpectedRichness_TargetExceedsTotal(t *testing.T) {
	_, err := ExpectedRichness([]int{3, 2}, 6)
	if !errors.Is(err, core.ErrRarefactionTarget) {
		t.Errorf("expected ErrRarefactionTarget, got %v", err)
	}
}

func TestExpectedRichness_InvalidInput(t *testing.T) {
	if _, err := ExpectedRichness([]int{3, 2}, 0); !errors.Is(err, core.ErrInvalidParameter) {
		t.Errorf("expected parameter error for target 0, got %v", err)
	}
	if _, err := ExpectedRichness([]int{0, 0}, 1); !errors.Is(err, core.ErrEmptySample) {
		t.Errorf("expected ErrEmptySample, got %v", err)
	}
	if _, err := ExpectedRichness([]int{-1, 5}, 2); !errors.Is(err, core.ErrInvalidParameter) {
		t.Errorf("expected parameter error for negative count, got %v", err)
	}
}

func TestExpectedRichness_LargeCountsStable(t *testing.T) {
	// Log-gamma evaluation must stay finite where naive factorials overflow.
	counts := []int{100000, 50000, 25000, 10000}
	got, err := ExpectedRichness(counts, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("E[S_T] not finite: %v", got)
	}
	if got <= 1 || got > 4 {
		t.Errorf("E[S_1000] = %v, want within (1, 4]", got)
	}
}

func TestRarefiedStudyRecord(t *testing.T) {
	sample := ecology.Sample{
		StudyID:   "s1",
		Condition: ecology.ConditionControl,
		Grain:     0.05,
		Counts: [][]int{
			{10, 5, 3},
			{8, 8, 8},
		},
	}

	record := RarefiedStudyRecord(sample, 10)
	v := record.Values["rarefied_richness"]
	if !v.Defined {
		t.Fatalf("expected defined rarefied richness: %s", v.Reason)
	}
	if v.Value <= 0 || v.Value > 3 {
		t.Errorf("rarefied richness = %v, want within (0, 3]", v.Value)
	}
}

func TestRarefiedStudyRecord_SiteBelowTarget(t *testing.T) {
	sample := ecology.Sample{
		StudyID:   "s1",
		Condition: ecology.ConditionControl,
		Grain:     0.05,
		Counts: [][]int{
			{10, 5, 3},
			{1, 0, 0}, // total 1 < target
		},
	}

	record := RarefiedStudyRecord(sample, 10)
	v := record.Values["rarefied_richness"]
	if v.Defined {
		t.Fatal("expected undefined rarefied richness when a site falls below the target")
	}
	if v.Reason == "" {
		t.Error("undefined standardization must carry a reason")
	}
}

func TestDefaultTarget(t *testing.T) {
	samples := []ecology.Sample{
		{Grain: 0.01, Counts: [][]int{{5, 5}, {6, 4}}},   // smallest grain, mean 10
		{Grain: 0.09, Counts: [][]int{{50, 30}, {40, 40}}},
	}
	target, err := DefaultTarget(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target != 10 {
		t.Errorf("target = %d, want 10 (mean abundance at smallest grain)", target)
	}
}

func TestDefaultTarget_ClampedToMinimumSite(t *testing.T) {
	samples := []ecology.Sample{
		{Grain: 0.01, Counts: [][]int{{20, 20}}}, // mean 40
		{Grain: 0.09, Counts: [][]int{{3, 2}}},   // a site with only 5
	}
	target, err := DefaultTarget(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target != 5 {
		t.Errorf("target = %d, want clamp to 5", target)
	}
}

func TestDefaultTarget_NoValidTarget(t *testing.T) {
	if _, err := DefaultTarget(nil); !errors.Is(err, core.ErrNoSamples) {
		t.Errorf("expected ErrNoSamples for empty input, got %v", err)
	}

	samples := []ecology.Sample{
		{Grain: 0.01, Counts: [][]int{{0, 0}}},
	}
	if _, err := DefaultTarget(samples); !errors.Is(err, core.ErrNoSamples) {
		t.Errorf("expected ErrNoSamples for empty quadrats, got %v", err)
	}
}

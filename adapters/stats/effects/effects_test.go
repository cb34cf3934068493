package effects

import (
	"math"
	"testing"

	"grainmeta/domain/core"
	"grainmeta/domain/ecology"
	"grainmeta/domain/metrics"
)

func record(id core.StudyID, cond ecology.Condition, grain float64, richness float64) metrics.StudyRecord {
	return metrics.StudyRecord{
		StudyID:   id,
		Condition: cond,
		Grain:     grain,
		Values: map[metrics.Kind]metrics.Value{
			metrics.KindRichness: metrics.Defined(metrics.KindRichness, richness),
		},
	}
}

func TestPair_KnownRatio(t *testing.T) {
	// Treatment halves richness in every study: LRR must equal ln(0.5) exactly.
	indexes := map[core.StudyID]int{"a": 0, "b": 1}
	records := []metrics.StudyRecord{
		record("a", ecology.ConditionControl, 0.02, 100),
		record("a", ecology.ConditionTreatment, 0.02, 50),
		record("b", ecology.ConditionControl, 0.08, 60),
		record("b", ecology.ConditionTreatment, 0.08, 30),
	}

	effects := Pair(records, []metrics.Kind{metrics.KindRichness}, indexes)
	if len(effects) != 2 {
		t.Fatalf("expected 2 effect sizes, got %d", len(effects))
	}
	for _, es := range effects {
		if !es.LRR.Defined {
			t.Fatalf("study %s: expected defined LRR: %s", es.StudyID, es.LRR.Reason)
		}
		if math.Abs(es.LRR.Value-math.Log(0.5)) > 1e-12 {
			t.Errorf("study %s: LRR = %v, want ln(0.5)", es.StudyID, es.LRR.Value)
		}
	}

	// Output follows study index order.
	if effects[0].StudyID != "a" || effects[1].StudyID != "b" {
		t.Error("effect sizes not in study order")
	}
}

func TestPair_SkipsUnmatchedStudies(t *testing.T) {
	indexes := map[core.StudyID]int{"a": 0, "b": 1}
	records := []metrics.StudyRecord{
		record("a", ecology.ConditionControl, 0.02, 100),
		record("a", ecology.ConditionTreatment, 0.02, 50),
		record("b", ecology.ConditionControl, 0.08, 60), // no treatment arm
	}
	effects := Pair(records, []metrics.Kind{metrics.KindRichness}, indexes)
	if len(effects) != 1 || effects[0].StudyID != "a" {
		t.Fatalf("expected only study a, got %+v", effects)
	}
}

func TestPair_UndefinedControlKept(t *testing.T) {
	indexes := map[core.StudyID]int{"a": 0}
	records := []metrics.StudyRecord{
		{
			StudyID:   "a",
			Condition: ecology.ConditionControl,
			Grain:     0.02,
			Values: map[metrics.Kind]metrics.Value{
				metrics.KindRichness: metrics.Defined(metrics.KindRichness, 0), // zero richness
			},
		},
		record("a", ecology.ConditionTreatment, 0.02, 50),
	}

	effects := Pair(records, []metrics.Kind{metrics.KindRichness}, indexes)
	if len(effects) != 1 {
		t.Fatalf("undefined LRR must be kept as a row, got %d rows", len(effects))
	}
	if effects[0].LRR.Defined {
		t.Fatal("zero control richness must yield an undefined LRR")
	}
	if effects[0].LRR.Reason == "" {
		t.Error("undefined LRR must carry a reason")
	}
}

func TestSummarize(t *testing.T) {
	effects := []metrics.EffectSize{
		{Metric: metrics.KindRichness, Grain: 0.01, LRR: metrics.LogRatio{Value: -0.6, Defined: true}},
		{Metric: metrics.KindRichness, Grain: 0.05, LRR: metrics.LogRatio{Value: -0.7, Defined: true}},
		{Metric: metrics.KindRichness, Grain: 0.09, LRR: metrics.LogRatio{Value: -0.8, Defined: true}},
		{Metric: metrics.KindRichness, Grain: 0.03, LRR: metrics.LogRatio{Defined: false, Reason: "empty control"}},
		{Metric: metrics.KindAbundance, Grain: 0.01, LRR: metrics.LogRatio{Value: 0.1, Defined: true}},
	}

	s := Summarize(effects, metrics.KindRichness, false)
	if s.Studies != 4 || s.Defined != 3 || s.Undefined != 1 {
		t.Errorf("counts wrong: %+v", s)
	}
	if math.Abs(s.MeanLRR-(-0.7)) > 1e-12 {
		t.Errorf("MeanLRR = %v, want -0.7", s.MeanLRR)
	}
	if s.CILow >= s.CIHigh {
		t.Errorf("degenerate CI: [%v, %v]", s.CILow, s.CIHigh)
	}
	if len(s.UndefinedReasons) != 1 || s.UndefinedReasons[0] != "empty control" {
		t.Errorf("undefined reasons not carried: %+v", s.UndefinedReasons)
	}

	// LRR decreases linearly with grain here: slope -2.5, perfect fit.
	if math.Abs(s.GrainSlope-(-2.5)) > 1e-9 {
		t.Errorf("GrainSlope = %v, want -2.5", s.GrainSlope)
	}
	if math.Abs(s.GrainR2-1) > 1e-9 {
		t.Errorf("GrainR2 = %v, want 1", s.GrainR2)
	}
}

func TestSummarize_AllUndefined(t *testing.T) {
	effects := []metrics.EffectSize{
		{Metric: metrics.KindSPIE, Grain: 0.01, LRR: metrics.LogRatio{Defined: false, Reason: "x"}},
	}
	s := Summarize(effects, metrics.KindSPIE, true)
	if s.Defined != 0 || s.Undefined != 1 || !s.Standardized {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.MeanLRR != 0 || s.GrainSlope != 0 {
		t.Error("summary with no defined effects must stay zero-valued")
	}
}

func TestSummarizeAll(t *testing.T) {
	effects := []metrics.EffectSize{
		{Metric: metrics.KindRichness, Grain: 0.01, LRR: metrics.LogRatio{Value: -0.5, Defined: true}},
		{Metric: metrics.KindAbundance, Grain: 0.01, LRR: metrics.LogRatio{Value: 0.2, Defined: true}},
	}
	summaries := SummarizeAll(effects, false)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
}

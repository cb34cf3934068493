package metrics

import (
	"fmt"
	"math"

	"grainmeta/domain/core"
)

// LogRatio is the ln(treatment/control) effect size for one metric. A zero or
// undefined metric in either condition makes the ratio undefined; the marker
// carries the reason because undefined cells are themselves a finding in a
// simulated meta-analysis.
type LogRatio struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
	Reason  string  `json:"reason,omitempty"`
}

// NewLogRatio computes ln(treatment/control), propagating undefined inputs.
func NewLogRatio(treatment, control Value) LogRatio {
	if !control.Defined {
		return LogRatio{Defined: false, Reason: fmt.Sprintf("control %s undefined: %s", control.Kind, control.Reason)}
	}
	if !treatment.Defined {
		return LogRatio{Defined: false, Reason: fmt.Sprintf("treatment %s undefined: %s", treatment.Kind, treatment.Reason)}
	}
	if control.Value <= 0 {
		return LogRatio{Defined: false, Reason: fmt.Sprintf("control %s is non-positive (%g)", control.Kind, control.Value)}
	}
	if treatment.Value <= 0 {
		return LogRatio{Defined: false, Reason: fmt.Sprintf("treatment %s is non-positive (%g)", treatment.Kind, treatment.Value)}
	}
	return LogRatio{Value: math.Log(treatment.Value / control.Value), Defined: true}
}

// MustValue returns the ratio value or an error for undefined ratios.
func (lr LogRatio) MustValue() (float64, error) {
	if !lr.Defined {
		return 0, fmt.Errorf("%w: %s", core.ErrUndefinedLogRatio, lr.Reason)
	}
	return lr.Value, nil
}

// EffectSize is the terminal per-study artifact: one metric compared across
// conditions at the study's grain.
type EffectSize struct {
	StudyID    core.StudyID `json:"study_id"`
	StudyIndex int          `json:"study_index"`
	Grain      float64      `json:"grain"`
	Metric     Kind         `json:"metric"`
	Control    Value        `json:"control"`
	Treatment  Value        `json:"treatment"`
	LRR        LogRatio     `json:"lrr"`
}

// NewEffectSize derives the effect size for one metric from matched study records.
func NewEffectSize(control, treatment StudyRecord, kind Kind) EffectSize {
	c := control.Value(kind)
	tr := treatment.Value(kind)
	return EffectSize{
		StudyID:   control.StudyID,
		Grain:     control.Grain,
		Metric:    kind,
		Control:   c,
		Treatment: tr,
		LRR:       NewLogRatio(tr, c),
	}
}

package metrics

import (
	"grainmeta/domain/core"
	"grainmeta/domain/ecology"
)

// Kind identifies a diversity metric.
type Kind string

const (
	KindAbundance        Kind = "abundance"
	KindRichness         Kind = "richness"
	KindSPIE             Kind = "s_pie"
	KindRarefiedRichness Kind = "rarefied_richness"
)

// Kinds lists the raw per-sample metrics in reporting order.
func Kinds() []Kind {
	return []Kind{KindAbundance, KindRichness, KindSPIE}
}

// Value is a metric observation that may be undefined. A degenerate sample
// (zero abundance, single individual) produces an explicit undefined value
// rather than NaN or a silently dropped row.
type Value struct {
	Kind    Kind    `json:"kind"`
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
	Reason  string  `json:"reason,omitempty"`
}

// Defined constructs a defined metric value.
func Defined(kind Kind, v float64) Value {
	return Value{Kind: kind, Value: v, Defined: true}
}

// Undefined constructs an undefined metric value carrying the reason.
func Undefined(kind Kind, reason string) Value {
	return Value{Kind: kind, Defined: false, Reason: reason}
}

// SiteRecord holds the per-quadrat metric values for one site of a sample.
type SiteRecord struct {
	Site   int            `json:"site"`
	Values map[Kind]Value `json:"values"`
}

// StudyRecord holds study-level (mean across quadrats) metric values for one
// condition of one study.
type StudyRecord struct {
	StudyID   core.StudyID      `json:"study_id"`
	Condition ecology.Condition `json:"condition"`
	Grain     float64           `json:"grain"`
	Values    map[Kind]Value    `json:"values"`
}

// Value returns the study-level value for a metric kind, or an undefined
// marker when the kind was never computed.
func (r StudyRecord) Value(kind Kind) Value {
	if v, ok := r.Values[kind]; ok {
		return v
	}
	return Undefined(kind, "metric not computed")
}

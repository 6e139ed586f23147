package monitor

import (
	"time"

	"github.com/normanking/metamonitor/internal/cognitive/circular"
	"github.com/normanking/metamonitor/internal/cognitive/distractor"
	"github.com/normanking/metamonitor/internal/cognitive/quality"
)

// Phase names the reasoning state inferred from the latest thought.
type Phase string

const (
	PhaseExploration  Phase = "exploration"
	PhaseOverthinking Phase = "overthinking"
	PhaseDistracted   Phase = "distracted"
	PhaseFatigue      Phase = "fatigue"
)

// Trend summarises the direction of thought quality.
type Trend string

const (
	TrendStable           Trend = "stable"
	TrendDeclining        Trend = "declining"
	TrendDegrading        Trend = "degrading"
	TrendInsufficientData Trend = "insufficient_data"
)

// InterventionKind identifies which detector raised an intervention.
type InterventionKind string

const (
	InterventionCircular   InterventionKind = "circular_reasoning"
	InterventionDistractor InterventionKind = "distractor_fixation"
	InterventionQuality    InterventionKind = "quality_degradation"
)

// Phase returns the phase an intervention of this kind puts the session in.
func (k InterventionKind) Phase() Phase {
	switch k {
	case InterventionCircular:
		return PhaseOverthinking
	case InterventionDistractor:
		return PhaseDistracted
	case InterventionQuality:
		return PhaseFatigue
	default:
		return PhaseExploration
	}
}

// InterventionRecord is one entry of the session's audit trail.
type InterventionRecord struct {
	ThoughtIndex int              `json:"thought_index"`
	Kind         InterventionKind `json:"kind"`
	Reason       string           `json:"reason"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Signal is the composite verdict for one thought.
type Signal struct {
	CircularScore   float64 `json:"circular_score"`
	DistractorAlert bool    `json:"distractor_alert"`
	QualityTrend    Trend   `json:"quality_trend"`
	Phase           Phase   `json:"phase"`
	Intervention    string  `json:"intervention,omitempty"`

	// Detector detail, for observability.
	CircularPattern   circular.Kind   `json:"circular_pattern"`
	DistractorPattern distractor.Kind `json:"distractor_pattern"`
	QualityPatterns   []quality.Kind  `json:"quality_patterns,omitempty"`
	QualityScore      float64         `json:"quality_score"`
	Relevance         float64         `json:"relevance"`
}

// HasIntervention reports whether any detector fired.
func (s Signal) HasIntervention() bool { return s.Intervention != "" }

// QualityStatus is the quality slice of Status.
type QualityStatus struct {
	Coherence          float64 `json:"coherence"`
	InformationDensity float64 `json:"information_density"`
	Relevance          float64 `json:"relevance"`
	Trend              Trend   `json:"trend"`
}

// Status is a read-only snapshot of a session.
type Status struct {
	CognitiveLoad       float64              `json:"cognitive_load"`
	CurrentPhase        Phase                `json:"current_phase"`
	CircularScore       float64              `json:"circular_score"`
	Relevance           float64              `json:"relevance"`
	ThoughtCount        int                  `json:"thought_count"`
	QualityMetrics      QualityStatus        `json:"quality_metrics"`
	InterventionHistory []InterventionRecord `json:"intervention_history"`
}

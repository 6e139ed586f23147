package quality

import (
	"fmt"
	"time"
)

// Kind identifies a degradation pattern.
type Kind int

const (
	KindVocabularyDecline Kind = iota + 1
	KindCoherenceBreakdown
	KindReasoningSimplification
	KindCognitiveFatigue
)

// String returns the pattern name used in logs and reports.
func (k Kind) String() string {
	switch k {
	case KindVocabularyDecline:
		return "vocabulary_decline"
	case KindCoherenceBreakdown:
		return "coherence_breakdown"
	case KindReasoningSimplification:
		return "reasoning_simplification"
	case KindCognitiveFatigue:
		return "cognitive_fatigue"
	default:
		return "unknown"
	}
}

// Pattern is one detected degradation. Only the fields of its Kind are set.
type Pattern struct {
	Kind Kind `json:"kind"`

	// VocabularyDecline
	Rate             float64 `json:"rate,omitempty"`
	CurrentDiversity float64 `json:"current_diversity,omitempty"`
	InitialDiversity float64 `json:"initial_diversity,omitempty"`

	// CoherenceBreakdown
	MarkerUsage   float64 `json:"marker_usage,omitempty"`
	Fragmentation float64 `json:"fragmentation,omitempty"`

	// ReasoningSimplification
	DepthDecline    float64 `json:"depth_decline,omitempty"`
	AbstractionLoss float64 `json:"abstraction_loss,omitempty"`

	// CognitiveFatigue
	SessionDuration time.Duration `json:"session_duration,omitempty"`
	MetricsAffected int           `json:"metrics_affected,omitempty"`
	Variability     float64       `json:"variability,omitempty"`
}

// Severe reports whether the pattern alone marks the session as degrading.
func (p Pattern) Severe() bool {
	return p.Kind == KindCognitiveFatigue || p.Kind == KindReasoningSimplification
}

// Rank orders patterns for intervention: fatigue outranks simplification,
// which outranks breakdown, which outranks vocabulary decline.
func (p Pattern) Rank() int {
	switch p.Kind {
	case KindCognitiveFatigue:
		return 4
	case KindReasoningSimplification:
		return 3
	case KindCoherenceBreakdown:
		return 2
	case KindVocabularyDecline:
		return 1
	default:
		return 0
	}
}

// subScore returns the pattern's contribution to the aggregate score and its weight.
func (p Pattern) subScore() (score, weight float64) {
	switch p.Kind {
	case KindVocabularyDecline:
		return p.Rate * 2, 1.0
	case KindCoherenceBreakdown:
		return (1 - p.MarkerUsage) + p.Fragmentation, 1.5
	case KindReasoningSimplification:
		return p.DepthDecline * 2, 2.0
	case KindCognitiveFatigue:
		return float64(p.MetricsAffected)/4 + p.Variability, 1.2
	default:
		return 0, 0
	}
}

// Description summarises the pattern's statistics.
func (p Pattern) Description() string {
	switch p.Kind {
	case KindVocabularyDecline:
		return fmt.Sprintf("Vocabulary diversity declining at %.1f%% per thought (from %.2f to %.2f)",
			p.Rate*100, p.InitialDiversity, p.CurrentDiversity)
	case KindCoherenceBreakdown:
		return fmt.Sprintf("Coherence breaking down: %.1f%% marker usage, %.1f%% fragmentation",
			p.MarkerUsage*100, p.Fragmentation*100)
	case KindReasoningSimplification:
		return fmt.Sprintf("Reasoning becoming simplified: %.1f%% depth loss, %.1f%% abstraction loss",
			p.DepthDecline*100, p.AbstractionLoss*100)
	case KindCognitiveFatigue:
		return fmt.Sprintf("Cognitive fatigue after %.1f minutes: %d metrics declining, %.1f%% variability",
			p.SessionDuration.Minutes(), p.MetricsAffected, p.Variability*100)
	default:
		return ""
	}
}

// InterventionMessage returns advice addressed to the reasoner.
func (p Pattern) InterventionMessage() string {
	switch p.Kind {
	case KindVocabularyDecline:
		return msgVocabulary
	case KindCoherenceBreakdown:
		return msgCoherence
	case KindReasoningSimplification:
		return msgReasoning
	case KindCognitiveFatigue:
		return fmt.Sprintf("Signs of cognitive fatigue (%d metrics declining). Consider consolidating your insights and concluding.",
			p.MetricsAffected)
	default:
		return ""
	}
}

const (
	msgVocabulary  = "Your vocabulary is becoming repetitive. Try to vary your word choices and expressions."
	msgCoherence   = "Your thoughts are becoming fragmented. Use transitional phrases to connect ideas clearly."
	msgReasoning   = "Your reasoning is becoming less sophisticated. Return to deeper analysis and logical argumentation."
	msgSignificant = "Significant quality degradation detected. Consider concluding your analysis and summarizing key insights."
	msgModerate    = "Moderate quality decline observed. Try to refocus on the main problem and core arguments."
)

// Package circular detects reasoning that loops back on itself: a thought
// that repeats an earlier one, a sequence that returns to its start, or a
// run of thoughts that keeps reusing the same concepts.
package circular

import (
	"fmt"

	"github.com/normanking/metamonitor/internal/cognitive/concept"
)

// scoreEpsilon absorbs floating-point noise when comparing a similarity
// against an inclusive threshold.
const scoreEpsilon = 1e-9

// Severity discounts for the indirect pattern kinds.
const (
	cyclicSeverityFactor     = 0.9
	conceptualSeverityFactor = 0.8
)

// Kind identifies a circular reasoning pattern.
type Kind int

const (
	KindNone Kind = iota
	KindDirect
	KindCyclic
	KindConceptual
)

// String returns the pattern name used in logs and reports.
func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindCyclic:
		return "cyclic"
	case KindConceptual:
		return "conceptual"
	default:
		return "none"
	}
}

// Pattern is the detection result. Only the fields of its Kind are set.
type Pattern struct {
	Kind Kind `json:"kind"`

	// Direct
	Score        float64 `json:"score,omitempty"`
	MatchedIndex int     `json:"matched_index,omitempty"`
	StepsBack    int     `json:"steps_back,omitempty"`

	// Cyclic
	CycleLength int     `json:"cycle_length,omitempty"`
	Strength    float64 `json:"strength,omitempty"`

	// Conceptual
	Average float64 `json:"average,omitempty"`
}

// Detected reports whether any pattern was found.
func (p Pattern) Detected() bool { return p.Kind != KindNone }

// Severity maps the pattern onto [0, 1]. Weaker pattern kinds are discounted.
func (p Pattern) Severity() float64 {
	switch p.Kind {
	case KindDirect:
		return p.Score
	case KindCyclic:
		return p.Strength * cyclicSeverityFactor
	case KindConceptual:
		return p.Average * conceptualSeverityFactor
	default:
		return 0
	}
}

// InterventionMessage returns advice for the user, or "" for KindNone.
func (p Pattern) InterventionMessage() string {
	switch p.Kind {
	case KindDirect:
		return fmt.Sprintf("You're repeating an earlier thought (similarity: %.2f, %d thoughts back). Try approaching the problem from a different angle.",
			p.Score, p.StepsBack)
	case KindCyclic:
		return fmt.Sprintf("Your reasoning has come full circle over %d thoughts. Step back and question the assumption that keeps leading you here.",
			p.CycleLength)
	case KindConceptual:
		return fmt.Sprintf("You keep circling the same concepts (overlap: %.2f). Introduce a new idea or perspective to move forward.",
			p.Average)
	default:
		return ""
	}
}

// Config holds the detection thresholds.
type Config struct {
	DirectThreshold         float64 `mapstructure:"direct_threshold" yaml:"direct_threshold"`
	CyclicMinHistory        int     `mapstructure:"cyclic_min_history" yaml:"cyclic_min_history"`
	CyclicReturnThreshold   float64 `mapstructure:"cyclic_return_threshold" yaml:"cyclic_return_threshold"`
	CyclicDivergenceCeiling float64 `mapstructure:"cyclic_divergence_ceiling" yaml:"cyclic_divergence_ceiling"`
	ConceptualWindow        int     `mapstructure:"conceptual_window" yaml:"conceptual_window"`
	ConceptualThreshold     float64 `mapstructure:"conceptual_threshold" yaml:"conceptual_threshold"`
	SemanticWeight          float64 `mapstructure:"semantic_weight" yaml:"semantic_weight"`
}

// DefaultConfig returns the tuned thresholds.
func DefaultConfig() Config {
	return Config{
		DirectThreshold:         0.6,
		CyclicMinHistory:        3,
		CyclicReturnThreshold:   0.7,
		CyclicDivergenceCeiling: 0.5,
		ConceptualWindow:        5,
		ConceptualThreshold:     0.7,
		SemanticWeight:          0.7,
	}
}

// Detector finds circular patterns. It keeps no state between calls.
type Detector struct {
	cfg       Config
	extractor *concept.Extractor
}

// NewDetector creates a detector. A nil extractor uses the default vocabulary.
func NewDetector(cfg Config, extractor *concept.Extractor) *Detector {
	if extractor == nil {
		extractor = concept.DefaultExtractor()
	}
	return &Detector{cfg: cfg, extractor: extractor}
}

// Detect compares current against history (oldest first) and returns the
// first pattern found, checking direct repetition, then cycles, then
// conceptual overlap.
func (d *Detector) Detect(current string, history []string) Pattern {
	none := Pattern{}
	if len(history) == 0 {
		return none
	}

	cur := d.extractor.Extract(current)
	past := make([]concept.Set, len(history))
	for i, h := range history {
		past[i] = d.extractor.Extract(h)
	}

	for i, p := range past {
		sim := concept.Similarity(cur, p)
		if sim >= d.cfg.DirectThreshold-scoreEpsilon {
			return Pattern{Kind: KindDirect, Score: sim, MatchedIndex: i, StepsBack: len(past) - i}
		}
	}

	if p, ok := d.cyclic(cur, past); ok {
		return p
	}
	if p, ok := d.conceptual(cur, past); ok {
		return p
	}
	return none
}

func (d *Detector) cyclic(cur concept.Set, past []concept.Set) (Pattern, bool) {
	if len(past) < d.cfg.CyclicMinHistory {
		return Pattern{}, false
	}
	first := past[0]
	back := concept.Similarity(cur, first)
	if back <= d.cfg.CyclicReturnThreshold {
		return Pattern{}, false
	}

	var sum float64
	for _, p := range past[1:] {
		sum += concept.Similarity(p, first)
	}
	if sum/float64(len(past)-1) >= d.cfg.CyclicDivergenceCeiling {
		return Pattern{}, false
	}
	return Pattern{Kind: KindCyclic, CycleLength: len(past) + 1, Strength: back}, true
}

func (d *Detector) conceptual(cur concept.Set, past []concept.Set) (Pattern, bool) {
	if len(cur) == 0 {
		return Pattern{}, false
	}

	// Empty sets inside the window are skipped, never replaced by older ones.
	var window []concept.Set
	for _, p := range past[max(len(past)-d.cfg.ConceptualWindow, 0):] {
		if len(p) > 0 {
			window = append(window, p)
		}
	}
	if len(window) == 0 {
		return Pattern{}, false
	}

	curDist := cur.KindDistribution()
	var sum float64
	for _, p := range window {
		semantic := concept.Similarity(cur, p)
		structural := distributionSimilarity(curDist, p.KindDistribution())
		sum += d.cfg.SemanticWeight*semantic + (1-d.cfg.SemanticWeight)*structural
	}
	avg := sum / float64(len(window))
	if avg <= d.cfg.ConceptualThreshold {
		return Pattern{}, false
	}
	return Pattern{Kind: KindConceptual, Average: avg}, true
}

// distributionSimilarity is the mean of 1-|a-b| over every concept kind.
func distributionSimilarity(a, b map[concept.Kind]float64) float64 {
	var sum float64
	for _, k := range concept.Kinds {
		diff := a[k] - b[k]
		if diff < 0 {
			diff = -diff
		}
		sum += 1 - diff
	}
	return sum / float64(len(concept.Kinds))
}

// Package distractor detects thinking that wanders away from the question
// that opened the session: sustained low relevance, spirals into detail, or
// rapid switching between unrelated topics.
package distractor

import (
	"fmt"
	"strings"

	"github.com/normanking/metamonitor/internal/cognitive/concept"
	"github.com/normanking/metamonitor/internal/ringbuf"
)

// Kind identifies a distractor pattern.
type Kind int

const (
	KindNone Kind = iota
	KindTangentialDrift
	KindDetailSpiral
	KindTopicHopping
)

// String returns the pattern name used in logs and reports.
func (k Kind) String() string {
	switch k {
	case KindTangentialDrift:
		return "tangential_drift"
	case KindDetailSpiral:
		return "detail_spiral"
	case KindTopicHopping:
		return "topic_hopping"
	default:
		return "none"
	}
}

// Pattern is the classification of the latest thought. Only the fields of
// its Kind are set.
type Pattern struct {
	Kind          Kind    `json:"kind"`
	AvgRelevance  float64 `json:"avg_relevance,omitempty"`
	PeakDensity   float64 `json:"peak_density,omitempty"`
	TopicSwitches int     `json:"topic_switches,omitempty"`
}

// Detected reports whether any pattern was found.
func (p Pattern) Detected() bool { return p.Kind != KindNone }

// InterventionMessage returns advice for the user, or "" for KindNone.
func (p Pattern) InterventionMessage() string {
	switch p.Kind {
	case KindTangentialDrift:
		return fmt.Sprintf("Your thoughts have drifted from the original topic (relevance: %.2f). Consider refocusing on the core problem.", p.AvgRelevance)
	case KindDetailSpiral:
		return fmt.Sprintf("You're getting lost in details (density: %.2f). Step back and consider the bigger picture.", p.PeakDensity)
	case KindTopicHopping:
		return fmt.Sprintf("You've switched topics %d times. Try to maintain focus on one aspect before moving to another.", p.TopicSwitches)
	default:
		return ""
	}
}

// Config holds history sizes and classification thresholds.
type Config struct {
	HistoryCapacity int     `mapstructure:"history_capacity" yaml:"history_capacity"`
	HoppingWindow   int     `mapstructure:"hopping_window" yaml:"hopping_window"`
	DetailThreshold float64 `mapstructure:"detail_threshold" yaml:"detail_threshold"`
	DriftThreshold  float64 `mapstructure:"drift_threshold" yaml:"drift_threshold"`
	LowRelevance    float64 `mapstructure:"low_relevance" yaml:"low_relevance"`
}

// DefaultConfig returns the tuned thresholds.
func DefaultConfig() Config {
	return Config{
		HistoryCapacity: 10,
		HoppingWindow:   5,
		DetailThreshold: 0.5,
		DriftThreshold:  0.25,
		LowRelevance:    0.3,
	}
}

// Detector tracks relevance to the session's original question and the
// detail density of each thought. It is not safe for concurrent use.
type Detector struct {
	cfg       Config
	vocab     Vocabulary
	extractor *concept.Extractor

	original  concept.Set
	relevance *ringbuf.Buffer[float64]
	density   *ringbuf.Buffer[float64]
}

// NewDetector creates a detector. A nil extractor uses the default vocabulary.
func NewDetector(cfg Config, vocab Vocabulary, extractor *concept.Extractor) *Detector {
	if extractor == nil {
		extractor = concept.DefaultExtractor()
	}
	return &Detector{
		cfg:       cfg,
		vocab:     vocab,
		extractor: extractor,
		relevance: ringbuf.New[float64](cfg.HistoryCapacity),
		density:   ringbuf.New[float64](cfg.HistoryCapacity),
	}
}

// SetOriginalQuery fixes the session baseline. It is a no-op once a
// baseline is set, for blank text, and for text yielding no concepts.
func (d *Detector) SetOriginalQuery(text string) {
	if d.original != nil || strings.TrimSpace(text) == "" {
		return
	}
	if concepts := d.extractor.Extract(text); len(concepts) > 0 {
		d.original = concepts
	}
}

// HasBaseline reports whether an original query is set.
func (d *Detector) HasBaseline() bool { return d.original != nil }

// Detect scores thought, records its relevance and detail density, and
// classifies the recent history. The bool mirrors Pattern.Detected.
func (d *Detector) Detect(thought string) (bool, Pattern) {
	rel := 1.0
	if d.original != nil {
		rel = d.relevanceScore(d.extractor.Extract(thought), d.original)
	}
	d.relevance.Push(rel)
	d.density.Push(d.detailDensity(thought))

	p := d.classify()
	return p.Detected(), p
}

// LastRelevance returns the most recent relevance score.
func (d *Detector) LastRelevance() (float64, bool) { return d.relevance.Last() }

// RelevanceHistory returns the retained relevance scores, oldest first.
func (d *Detector) RelevanceHistory() []float64 { return d.relevance.Slice() }

// DensityHistory returns the retained detail densities, oldest first.
func (d *Detector) DensityHistory() []float64 { return d.density.Slice() }

// Reset clears the histories and the baseline.
func (d *Detector) Reset() {
	d.original = nil
	d.relevance.Clear()
	d.density.Clear()
}

func (d *Detector) classify() Pattern {
	if d.density.Len() >= 2 {
		recent := d.density.Tail(3)
		peak := maxOf(recent)
		if peak > d.cfg.DetailThreshold && mean(recent) > d.cfg.DetailThreshold*0.8 {
			return Pattern{Kind: KindDetailSpiral, PeakDensity: peak}
		}
	}

	if d.relevance.Len() >= 3 {
		recent := d.relevance.Tail(3)
		low := 0
		for _, r := range recent {
			if r < d.cfg.LowRelevance {
				low++
			}
		}
		if avg := mean(recent); avg < d.cfg.DriftThreshold && low >= 2 {
			return Pattern{Kind: KindTangentialDrift, AvgRelevance: avg}
		}
	}

	window := d.relevance.Tail(d.cfg.HoppingWindow)
	if len(window) >= 4 {
		drops, nearZero := 0, 0
		for i := 1; i < len(window); i++ {
			if window[i-1] > 0.3 && window[i] < 0.1 {
				drops++
			}
			if window[i] < 0.05 {
				nearZero++
			}
		}
		if drops >= 2 || nearZero >= 3 || (mean(window) < 0.1 && variance(window) > 0.3) {
			return Pattern{Kind: KindTopicHopping, TopicSwitches: max(drops, 2)}
		}
	}

	return Pattern{}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return sum / float64(len(xs))
}

func maxOf(xs []float64) float64 {
	var m float64
	for _, x := range xs {
		m = max(m, x)
	}
	return m
}

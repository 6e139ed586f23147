// Package quality measures each thought on eight linguistic and content
// metrics and watches their trends for signs that reasoning is degrading.
package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/normanking/metamonitor/internal/ringbuf"
)

// FatigueConfig holds the triggers for cognitive fatigue. Fatigue fires when
// any one of the rules matches.
type FatigueConfig struct {
	// Session age with at least LongSessionDeclining declining metrics.
	LongSession          time.Duration `mapstructure:"long_session" yaml:"long_session"`
	LongSessionDeclining int           `mapstructure:"long_session_declining" yaml:"long_session_declining"`

	// More than ManyThoughts retained thoughts with ManyThoughtsDeclining.
	ManyThoughts          int `mapstructure:"many_thoughts" yaml:"many_thoughts"`
	ManyThoughtsDeclining int `mapstructure:"many_thoughts_declining" yaml:"many_thoughts_declining"`

	// Vocabulary variability above Variability with VariabilityDeclining.
	Variability          float64 `mapstructure:"variability" yaml:"variability"`
	VariabilityDeclining int     `mapstructure:"variability_declining" yaml:"variability_declining"`

	// At least MaxThoughts retained thoughts with MaxThoughtsDeclining.
	MaxThoughts          int `mapstructure:"max_thoughts" yaml:"max_thoughts"`
	MaxThoughtsDeclining int `mapstructure:"max_thoughts_declining" yaml:"max_thoughts_declining"`

	// BreakAfter is the session age past which a break is recommended.
	BreakAfter time.Duration `mapstructure:"break_after" yaml:"break_after"`
}

// Config holds history sizes and decline thresholds.
type Config struct {
	HistoryCapacity   int     `mapstructure:"history_capacity" yaml:"history_capacity"`
	MinMetrics        int     `mapstructure:"min_metrics" yaml:"min_metrics"`
	TrendWindow       int     `mapstructure:"trend_window" yaml:"trend_window"`
	VocabularyDecline float64 `mapstructure:"vocabulary_decline" yaml:"vocabulary_decline"`
	CoherenceDecline  float64 `mapstructure:"coherence_decline" yaml:"coherence_decline"`
	ComplexityDecline float64 `mapstructure:"complexity_decline" yaml:"complexity_decline"`
	ReasoningDecline  float64 `mapstructure:"reasoning_decline" yaml:"reasoning_decline"`
	DecliningSlope    float64 `mapstructure:"declining_slope" yaml:"declining_slope"`

	Fatigue FatigueConfig `mapstructure:"fatigue" yaml:"fatigue"`
}

// DefaultConfig returns the tuned thresholds.
func DefaultConfig() Config {
	return Config{
		HistoryCapacity:   20,
		MinMetrics:        3,
		TrendWindow:       5,
		VocabularyDecline: 0.2,
		CoherenceDecline:  0.25,
		ComplexityDecline: 0.2,
		ReasoningDecline:  0.3,
		DecliningSlope:    0.1,
		Fatigue: FatigueConfig{
			LongSession:           20 * time.Minute,
			LongSessionDeclining:  3,
			ManyThoughts:          10,
			ManyThoughtsDeclining: 2,
			Variability:           0.3,
			VariabilityDeclining:  2,
			MaxThoughts:           15,
			MaxThoughtsDeclining:  1,
			BreakAfter:            30 * time.Minute,
		},
	}
}

// Analysis is the outcome of analysing one thought.
type Analysis struct {
	Current         Metrics       `json:"current"`
	Patterns        []Pattern     `json:"patterns"`
	Score           float64       `json:"score"`
	Recommendations []string      `json:"recommendations"`
	SessionDuration time.Duration `json:"session_duration"`
}

// HasSevere reports whether any pattern is severe on its own.
func (a Analysis) HasSevere() bool {
	for _, p := range a.Patterns {
		if p.Severe() {
			return true
		}
	}
	return false
}

// MostSevere returns the highest-ranked pattern.
func (a Analysis) MostSevere() (Pattern, bool) {
	var best Pattern
	for _, p := range a.Patterns {
		if p.Rank() > best.Rank() {
			best = p
		}
	}
	return best, best.Kind != 0
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock replaces time.Now, for deterministic session ages in tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

// Detector keeps a rolling metrics history for one session. It is not safe
// for concurrent use.
type Detector struct {
	cfg     Config
	scorer  *Scorer
	trend   TrendAnalyzer
	history *ringbuf.Buffer[Metrics]
	now     func() time.Time
	start   time.Time
}

// NewDetector creates a detector whose session clock starts now.
func NewDetector(cfg Config, vocab Vocabulary, opts ...Option) *Detector {
	d := &Detector{
		cfg:     cfg,
		scorer:  NewScorer(vocab),
		trend:   TrendAnalyzer{Window: cfg.TrendWindow, MinPoints: cfg.MinMetrics},
		history: ringbuf.New[Metrics](cfg.HistoryCapacity),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.start = d.now()
	return d
}

// Analyze measures thought, appends it to the history and reports the
// degradation patterns visible across the retained history.
func (d *Detector) Analyze(thought string, index int) Analysis {
	m := Metrics{
		Linguistic:   d.scorer.Linguistic(thought),
		Content:      d.scorer.Content(thought),
		ThoughtIndex: index,
		Timestamp:    d.now(),
	}
	d.history.Push(m)

	elapsed := m.Timestamp.Sub(d.start)
	patterns := d.detectPatterns(elapsed)
	score := aggregateScore(patterns)

	return Analysis{
		Current:         m,
		Patterns:        patterns,
		Score:           score,
		Recommendations: d.recommendations(patterns, score),
		SessionDuration: elapsed,
	}
}

// History returns the retained metrics, oldest first.
func (d *Detector) History() []Metrics { return d.history.Slice() }

// Latest returns the most recent metrics.
func (d *Detector) Latest() (Metrics, bool) { return d.history.Last() }

// Reset clears the history and restarts the session clock.
func (d *Detector) Reset() {
	d.history.Clear()
	d.start = d.now()
}

func (d *Detector) series(f func(Metrics) float64) []float64 {
	hist := d.history.Slice()
	out := make([]float64, len(hist))
	for i, m := range hist {
		out[i] = f(m)
	}
	return out
}

func (d *Detector) slopeBelow(values []float64, limit float64) (float64, bool) {
	slope, _, ok := d.trend.Trend(values)
	return slope, ok && slope < limit
}

func (d *Detector) detectPatterns(elapsed time.Duration) []Pattern {
	if d.history.Len() < d.cfg.MinMetrics {
		return nil
	}

	vocab := d.series(func(m Metrics) float64 { return m.Linguistic.VocabularyDiversity })
	coherence := d.series(func(m Metrics) float64 { return m.Linguistic.CoherenceMarkers })
	complexity := d.series(func(m Metrics) float64 { return m.Linguistic.SentenceComplexity })
	reasoning := d.series(func(m Metrics) float64 { return m.Content.ReasoningDepth })
	abstraction := d.series(func(m Metrics) float64 { return m.Content.AbstractionLevel })
	density := d.series(func(m Metrics) float64 { return m.Content.InformationDensity })

	var patterns []Pattern

	if slope, ok := d.slopeBelow(vocab, -d.cfg.VocabularyDecline); ok {
		patterns = append(patterns, Pattern{
			Kind:             KindVocabularyDecline,
			Rate:             -slope,
			CurrentDiversity: lastMean(vocab),
			InitialDiversity: firstMean(vocab),
		})
	}

	_, cohDown := d.slopeBelow(coherence, -d.cfg.CoherenceDecline)
	_, cplxDown := d.slopeBelow(complexity, -d.cfg.ComplexityDecline)
	if cohDown || cplxDown {
		patterns = append(patterns, Pattern{
			Kind:          KindCoherenceBreakdown,
			MarkerUsage:   lastMean(coherence),
			Fragmentation: 1 - lastMean(complexity),
		})
	}

	if _, ok := d.slopeBelow(reasoning, -d.cfg.ReasoningDecline); ok {
		patterns = append(patterns, Pattern{
			Kind:            KindReasoningSimplification,
			DepthDecline:    firstMean(reasoning) - lastMean(reasoning),
			AbstractionLoss: 0.5 - math.Abs(lastMean(abstraction)),
		})
	}

	declining := 0
	for _, s := range [][]float64{vocab, coherence, reasoning, density} {
		if _, ok := d.slopeBelow(s, -d.cfg.DecliningSlope); ok {
			declining++
		}
	}
	variability := stddev(vocab)
	if d.fatigued(elapsed, d.history.Len(), declining, variability) {
		patterns = append(patterns, Pattern{
			Kind:            KindCognitiveFatigue,
			SessionDuration: elapsed,
			MetricsAffected: declining,
			Variability:     variability,
		})
	}

	return patterns
}

func (d *Detector) fatigued(elapsed time.Duration, thoughts, declining int, variability float64) bool {
	f := d.cfg.Fatigue
	return (elapsed > f.LongSession && declining >= f.LongSessionDeclining) ||
		(thoughts > f.ManyThoughts && declining >= f.ManyThoughtsDeclining) ||
		(variability > f.Variability && declining >= f.VariabilityDeclining) ||
		(thoughts >= f.MaxThoughts && declining >= f.MaxThoughtsDeclining)
}

func aggregateScore(patterns []Pattern) float64 {
	if len(patterns) == 0 {
		return 0
	}
	var sum, weights float64
	for _, p := range patterns {
		s, w := p.subScore()
		sum += s * w
		weights += w
	}
	return math.Min(math.Max(sum/weights, 0), 1)
}

func (d *Detector) recommendations(patterns []Pattern, score float64) []string {
	var out []string
	for _, p := range patterns {
		switch p.Kind {
		case KindVocabularyDecline:
			if p.CurrentDiversity < 0.3 {
				out = append(out, msgVocabulary)
			}
		case KindCoherenceBreakdown:
			out = append(out, msgCoherence)
		case KindReasoningSimplification:
			out = append(out, msgReasoning)
		case KindCognitiveFatigue:
			if p.SessionDuration > d.cfg.Fatigue.BreakAfter {
				out = append(out, breakMessage(d.cfg.Fatigue.BreakAfter))
			}
		}
	}

	switch {
	case score > 0.7:
		out = append(out, msgSignificant)
	case score > 0.5:
		out = append(out, msgModerate)
	}
	return out
}

func breakMessage(after time.Duration) string {
	return fmt.Sprintf("You've been working for over %d minutes. Consider taking a break to refresh your thinking.", int(after.Minutes()))
}

// lastMean averages the newest three points.
func lastMean(xs []float64) float64 {
	return average(xs[max(len(xs)-3, 0):])
}

// firstMean averages the oldest three points.
func firstMean(xs []float64) float64 {
	return average(xs[:min(len(xs), 3)])
}

func stddev(xs []float64) float64 {
	if len(xs) < 3 {
		return 0
	}
	m := average(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)))
}

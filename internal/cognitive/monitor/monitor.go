// Package monitor combines the circular, distractor and quality detectors
// into one per-session facade. Each call to AnalyzeThought scores a thought
// against the session so far and resolves a single phase and intervention.
//
// A Monitor is not safe for concurrent use; wrap it per session.
package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/metamonitor/internal/cognitive/circular"
	"github.com/normanking/metamonitor/internal/cognitive/concept"
	"github.com/normanking/metamonitor/internal/cognitive/distractor"
	"github.com/normanking/metamonitor/internal/cognitive/quality"
	"github.com/normanking/metamonitor/internal/ringbuf"
)

// Config tunes the orchestrator and its detectors.
type Config struct {
	HistoryCapacity   int     `mapstructure:"history_capacity" yaml:"history_capacity"`
	CircularThreshold float64 `mapstructure:"circular_threshold" yaml:"circular_threshold"`
	DegradingScore    float64 `mapstructure:"degrading_score" yaml:"degrading_score"`
	DecliningScore    float64 `mapstructure:"declining_score" yaml:"declining_score"`

	// ClearInterventionsOnReset drops the intervention log on Reset. When
	// false the log survives resets as an audit trail.
	ClearInterventionsOnReset bool `mapstructure:"clear_interventions_on_reset" yaml:"clear_interventions_on_reset"`

	Circular   circular.Config   `mapstructure:"circular" yaml:"circular"`
	Distractor distractor.Config `mapstructure:"distractor" yaml:"distractor"`
	Quality    quality.Config    `mapstructure:"quality" yaml:"quality"`
}

// DefaultConfig returns the tuned configuration.
func DefaultConfig() Config {
	return Config{
		HistoryCapacity:           10,
		CircularThreshold:         0.5,
		DegradingScore:            0.6,
		DecliningScore:            0.3,
		ClearInterventionsOnReset: true,
		Circular:                  circular.DefaultConfig(),
		Distractor:                distractor.DefaultConfig(),
		Quality:                   quality.DefaultConfig(),
	}
}

// Option configures a Monitor.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	now    func() time.Time
}

// WithLogger logs interventions at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now for timestamps and session age.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Monitor is the per-session orchestrator.
type Monitor struct {
	cfg Config
	log zerolog.Logger
	now func() time.Time

	circular   *circular.Detector
	distractor *distractor.Detector
	quality    *quality.Detector

	history       *ringbuf.Buffer[string]
	interventions []InterventionRecord
	last          Signal
	analyzed      bool
}

// New creates a Monitor for one reasoning session.
func New(cfg Config, opts ...Option) *Monitor {
	o := options{logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	extractor := concept.DefaultExtractor()
	return &Monitor{
		cfg:        cfg,
		log:        o.logger,
		now:        o.now,
		circular:   circular.NewDetector(cfg.Circular, extractor),
		distractor: distractor.NewDetector(cfg.Distractor, distractor.DefaultVocabulary(), extractor),
		quality:    quality.NewDetector(cfg.Quality, quality.DefaultVocabulary(), quality.WithClock(o.now)),
		history:    ringbuf.New[string](cfg.HistoryCapacity),
		last:       Signal{Phase: PhaseExploration, QualityTrend: TrendStable, Relevance: 1},
	}
}

// AnalyzeThought scores thought against the session history, appends it to
// the history and returns the merged signal. index is recorded in the
// intervention log only; ordering follows call order.
func (m *Monitor) AnalyzeThought(thought string, index int) Signal {
	if !m.distractor.HasBaseline() && strings.TrimSpace(thought) != "" {
		m.distractor.SetOriginalQuery(thought)
	}

	circ := m.circular.Detect(thought, m.history.Slice())
	distracted, dist := m.distractor.Detect(thought)
	qa := m.quality.Analyze(thought, index)

	m.history.Push(thought)

	sig := Signal{
		CircularScore:     circ.Severity(),
		DistractorAlert:   distracted,
		QualityTrend:      m.trend(qa),
		Phase:             PhaseExploration,
		CircularPattern:   circ.Kind,
		DistractorPattern: dist.Kind,
		QualityScore:      qa.Score,
		Relevance:         1,
	}
	if rel, ok := m.distractor.LastRelevance(); ok {
		sig.Relevance = rel
	}
	for _, p := range qa.Patterns {
		sig.QualityPatterns = append(sig.QualityPatterns, p.Kind)
	}

	worst, degraded := qa.MostSevere()
	switch {
	case sig.CircularScore > m.cfg.CircularThreshold:
		sig.Intervention = circ.InterventionMessage()
		m.intervene(&sig, index, InterventionCircular, fmt.Sprintf("High circular score: %.2f (%s)", sig.CircularScore, circ.Kind))
	case distracted:
		sig.Intervention = dist.InterventionMessage()
		m.intervene(&sig, index, InterventionDistractor, fmt.Sprintf("Distractor pattern: %s", dist.Kind))
	case degraded:
		sig.Intervention = worst.InterventionMessage()
		m.intervene(&sig, index, InterventionQuality, worst.Description())
	}

	m.last = sig
	m.analyzed = true
	return sig
}

func (m *Monitor) trend(qa quality.Analysis) Trend {
	switch {
	case qa.HasSevere() || qa.Score > m.cfg.DegradingScore:
		return TrendDegrading
	case qa.Score > m.cfg.DecliningScore:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func (m *Monitor) intervene(sig *Signal, index int, kind InterventionKind, reason string) {
	sig.Phase = kind.Phase()
	m.interventions = append(m.interventions, InterventionRecord{
		ThoughtIndex: index,
		Kind:         kind,
		Reason:       reason,
		Timestamp:    m.now(),
	})
	m.log.Debug().
		Int("thought", index).
		Str("kind", string(kind)).
		Str("reason", reason).
		Msg("intervention raised")
}

// Reset clears every per-session history and the distractor baseline. The
// intervention log is cleared when Config.ClearInterventionsOnReset is set.
func (m *Monitor) Reset() {
	m.history.Clear()
	m.distractor.Reset()
	m.quality.Reset()
	if m.cfg.ClearInterventionsOnReset {
		m.interventions = nil
	}
	m.last = Signal{Phase: PhaseExploration, QualityTrend: TrendStable, Relevance: 1}
	m.analyzed = false
}

// History returns the retained thoughts, oldest first.
func (m *Monitor) History() []string { return m.history.Slice() }

// Interventions returns a copy of the intervention log.
func (m *Monitor) Interventions() []InterventionRecord {
	out := make([]InterventionRecord, len(m.interventions))
	copy(out, m.interventions)
	return out
}

// Status returns a snapshot of the session. It has no side effects.
func (m *Monitor) Status() Status {
	load := float64(m.history.Len())/10 + float64(len(m.interventions))/5
	if load > 1 {
		load = 1
	}

	qs := QualityStatus{Coherence: 0.5, InformationDensity: 0.5, Relevance: m.last.Relevance, Trend: TrendInsufficientData}
	if latest, ok := m.quality.Latest(); ok {
		qs.Coherence = latest.Linguistic.CoherenceMarkers
		qs.InformationDensity = latest.Content.InformationDensity
	}
	if len(m.quality.History()) >= m.cfg.Quality.MinMetrics && m.analyzed {
		qs.Trend = m.last.QualityTrend
	}

	return Status{
		CognitiveLoad:       load,
		CurrentPhase:        m.last.Phase,
		CircularScore:       m.last.CircularScore,
		Relevance:           m.last.Relevance,
		ThoughtCount:        m.history.Len(),
		QualityMetrics:      qs,
		InterventionHistory: m.Interventions(),
	}
}

package monitor

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/metamonitor/internal/cognitive/circular"
	"github.com/normanking/metamonitor/internal/cognitive/distractor"
	"github.com/normanking/metamonitor/internal/cognitive/quality"
)

var (
	recursion = []string{
		"Understanding recursion requires understanding recursion",
		"I need to understand recursion",
	}

	drift = []string{
		"Explain TCP/IP networking",
		"Bread dough rises slowly overnight",
		"Gardeners prune roses during early spring",
		"Violins sound warmer than cheap guitars",
	}

	collapse = []string{
		"Careful engineers usually measure latency across several regions because users notice slow responses quickly and therefore each team tracks percentiles rather than simple averages during releases.",
		"Another approach stores every request trace inside columnar files so analysts can later compare baseline behaviour against experimental builds without rerunning expensive production traffic replays again.",
		"Moreover capacity planners forecast seasonal demand using historical growth curves while finance reviewers approve budgets only after seeing clear evidence from realistic load tests run monthly.",
		"Fine.",
		"OK.",
	}

	onTopic = []string{
		"Each network router inspects incoming packets and therefore forwards them toward the destination using routing tables.",
		"However, congested network links drop packets when queues overflow, which forces senders to slow their transmission rate.",
		"Moreover, the network stack reassembles fragmented packets before handing complete messages to the receiving application.",
		"Consequently, network engineers monitor dropped packets closely because sustained loss usually signals hardware faults or misconfigured switches.",
		"Additionally, wireless network adapters retransmit corrupted packets automatically, hiding most radio interference from higher protocol layers.",
	}
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func run(m *Monitor, thoughts []string) []Signal {
	out := make([]Signal, len(thoughts))
	for i, th := range thoughts {
		out[i] = m.AnalyzeThought(th, i+1)
	}
	return out
}

// ============================================================================
// Detection scenarios
// ============================================================================

func TestAnalyzeThought_CircularRecursion(t *testing.T) {
	m := New(DefaultConfig())

	sigs := run(m, recursion)

	assert.Equal(t, PhaseExploration, sigs[0].Phase)
	assert.Empty(t, sigs[0].Intervention)

	last := sigs[1]
	assert.Greater(t, last.CircularScore, 0.5)
	assert.Equal(t, PhaseOverthinking, last.Phase)
	assert.NotEmpty(t, last.Intervention)
	assert.Contains(t, []circular.Kind{circular.KindDirect, circular.KindConceptual}, last.CircularPattern)

	log := m.Interventions()
	require.Len(t, log, 1)
	assert.Equal(t, InterventionCircular, log[0].Kind)
	assert.Equal(t, 2, log[0].ThoughtIndex)
}

func TestAnalyzeThought_TangentialDrift(t *testing.T) {
	m := New(DefaultConfig())

	sigs := run(m, drift)

	assert.False(t, sigs[0].DistractorAlert)
	assert.False(t, sigs[1].DistractorAlert, "drift needs three relevance points")
	assert.True(t, sigs[2].DistractorAlert, "the on-topic opener is outweighed by two off-topic thoughts")

	last := sigs[3]
	assert.True(t, last.DistractorAlert)
	assert.Equal(t, distractor.KindTangentialDrift, last.DistractorPattern)
	assert.Equal(t, PhaseDistracted, last.Phase)
	assert.Contains(t, last.Intervention, "drifted from the original topic")
	assert.Zero(t, last.Relevance)
}

func TestAnalyzeThought_QualityCollapse(t *testing.T) {
	m := New(DefaultConfig())

	sigs := run(m, collapse)

	last := sigs[len(sigs)-1]
	assert.Equal(t, TrendDegrading, last.QualityTrend)
	assert.Contains(t, last.QualityPatterns, quality.KindVocabularyDecline)
	assert.Greater(t, last.QualityScore, 0.6)
}

func TestAnalyzeThought_NoFalsePositives(t *testing.T) {
	m := New(DefaultConfig())

	for i, s := range run(m, onTopic) {
		assert.Empty(t, s.Intervention, "thought %d", i+1)
		assert.False(t, s.HasIntervention())
		assert.Equal(t, PhaseExploration, s.Phase, "thought %d", i+1)
		assert.False(t, s.DistractorAlert, "thought %d", i+1)
		assert.LessOrEqual(t, s.CircularScore, 0.5, "thought %d", i+1)
		assert.Equal(t, TrendStable, s.QualityTrend, "thought %d", i+1)
	}
	assert.Empty(t, m.Interventions())
}

func TestAnalyzeThought_CircularOutranksDistractor(t *testing.T) {
	m := New(DefaultConfig())

	run(m, drift)
	sig := m.AnalyzeThought(drift[3], 5)

	assert.Equal(t, PhaseOverthinking, sig.Phase)
	assert.True(t, sig.DistractorAlert, "distractor still reports while circular wins the phase")
}

// ============================================================================
// Properties
// ============================================================================

func TestAnalyzeThought_Deterministic(t *testing.T) {
	thoughts := append(append([]string{}, drift...), collapse...)

	a := run(New(DefaultConfig(), WithClock(fixedClock())), thoughts)
	b := run(New(DefaultConfig(), WithClock(fixedClock())), thoughts)

	assert.Equal(t, a, b)
}

func TestHistoryIsBounded(t *testing.T) {
	m := New(DefaultConfig())

	for i := 0; i < 25; i++ {
		m.AnalyzeThought(onTopic[i%len(onTopic)], i)
		require.LessOrEqual(t, len(m.History()), 10)
	}
	assert.Len(t, m.History(), 10)
	assert.Equal(t, 10, m.Status().ThoughtCount)
}

func TestReset_Idempotent(t *testing.T) {
	fresh := New(DefaultConfig(), WithClock(fixedClock())).Status()

	m := New(DefaultConfig(), WithClock(fixedClock()))
	run(m, recursion)
	run(m, drift)

	m.Reset()
	first := m.Status()
	m.Reset()
	second := m.Status()

	assert.Equal(t, fresh, first)
	assert.Equal(t, first, second)
	assert.Empty(t, m.History())
}

func TestReset_StartsNewBaseline(t *testing.T) {
	m := New(DefaultConfig())
	run(m, drift)

	m.Reset()
	run(m, drift[1:2])
	sig := m.AnalyzeThought(drift[1], 2)

	assert.GreaterOrEqual(t, sig.Relevance, 0.3, "the first thought after reset becomes the baseline")
	assert.False(t, sig.DistractorAlert)
}

func TestReset_KeepsAuditTrailWhenConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClearInterventionsOnReset = false
	m := New(cfg)

	run(m, recursion)
	require.Len(t, m.Interventions(), 1)

	m.Reset()
	assert.Len(t, m.Interventions(), 1)
	assert.Empty(t, m.History())
	assert.Equal(t, PhaseExploration, m.Status().CurrentPhase)
}

// ============================================================================
// Status
// ============================================================================

func TestStatus(t *testing.T) {
	m := New(DefaultConfig())

	s := m.Status()
	assert.Zero(t, s.CognitiveLoad)
	assert.Equal(t, PhaseExploration, s.CurrentPhase)
	assert.Equal(t, TrendInsufficientData, s.QualityMetrics.Trend)
	assert.Equal(t, 1.0, s.Relevance)
	assert.Empty(t, s.InterventionHistory)

	run(m, recursion)
	s = m.Status()
	assert.InDelta(t, 0.4, s.CognitiveLoad, 1e-9)
	assert.Equal(t, PhaseOverthinking, s.CurrentPhase)
	assert.Greater(t, s.CircularScore, 0.5)
	assert.Equal(t, TrendInsufficientData, s.QualityMetrics.Trend)
	require.Len(t, s.InterventionHistory, 1)

	s.InterventionHistory[0].Reason = "mutated"
	assert.NotEqual(t, "mutated", m.Status().InterventionHistory[0].Reason)
}

func TestStatus_TrendAfterEnoughMetrics(t *testing.T) {
	m := New(DefaultConfig())
	run(m, collapse)

	s := m.Status()
	assert.Equal(t, TrendDegrading, s.QualityMetrics.Trend)
	assert.LessOrEqual(t, s.CognitiveLoad, 1.0)
}

func TestStatus_HasNoSideEffects(t *testing.T) {
	m := New(DefaultConfig(), WithClock(fixedClock()))
	run(m, drift)

	assert.Equal(t, m.Status(), m.Status())
	assert.Len(t, m.History(), len(drift))
}

func TestWithLogger_LogsInterventions(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	m := New(DefaultConfig(), WithLogger(logger))
	run(m, recursion)

	out := buf.String()
	assert.Contains(t, out, "intervention raised")
	assert.Contains(t, out, string(InterventionCircular))
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestInterventionKindPhase(t *testing.T) {
	assert.Equal(t, PhaseOverthinking, InterventionCircular.Phase())
	assert.Equal(t, PhaseDistracted, InterventionDistractor.Phase())
	assert.Equal(t, PhaseFatigue, InterventionQuality.Phase())
	assert.Equal(t, PhaseExploration, InterventionKind("other").Phase())
}

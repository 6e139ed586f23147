package metrics

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/metamonitor/internal/bus"
	"github.com/normanking/metamonitor/internal/cognitive/monitor"
)

var t0 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func signal(phase monitor.Phase, circular, relevance float64) monitor.Signal {
	return monitor.Signal{
		Phase:         phase,
		CircularScore: circular,
		Relevance:     relevance,
		QualityTrend:  monitor.TrendStable,
	}
}

// publishRun emits a small two-session run and closes the bus so every
// event has been handled when it returns.
func publishRun(t *testing.T, b *bus.Bus) {
	t.Helper()
	events := []bus.Event{
		bus.ThoughtAnalyzed("a", 1, signal(monitor.PhaseExploration, 0, 1)),
		bus.ThoughtAnalyzed("a", 2, signal(monitor.PhaseOverthinking, 0.6, 0.8)),
		bus.InterventionRaised("a", monitor.InterventionRecord{
			ThoughtIndex: 2, Kind: monitor.InterventionCircular, Reason: "High circular score: 0.60 (direct)", Timestamp: t0,
		}),
		bus.ThoughtAnalyzed("b", 1, signal(monitor.PhaseExploration, 0.1, 0.6)),
		bus.NewEvent(bus.EventSessionReset, "a"),
		bus.NewEvent(bus.EventSessionExpired, "b"),
	}
	for _, e := range events {
		require.NoError(t, b.Publish(e))
	}
	require.NoError(t, b.Close())
}

// ============================================================================
// Store
// ============================================================================

func TestStore_RecordAndQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sig := signal(monitor.PhaseOverthinking, 0.6, 0.5)
	sig.Intervention = "Circular reasoning detected"
	require.NoError(t, s.RecordSignal(ctx, "a", 2, sig, t0))
	require.NoError(t, s.RecordSignal(ctx, "a", 1, signal(monitor.PhaseExploration, 0, 1), t0))
	require.NoError(t, s.RecordSignal(ctx, "b", 1, signal(monitor.PhaseExploration, 0, 1), t0))

	rows, err := s.Signals(ctx, "a")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].ThoughtIndex)
	assert.Equal(t, 2, rows[1].ThoughtIndex)
	assert.Equal(t, monitor.PhaseOverthinking, rows[1].Phase)
	assert.Equal(t, "Circular reasoning detected", rows[1].Intervention)
	assert.Equal(t, monitor.TrendStable, rows[1].QualityTrend)
	assert.True(t, rows[1].CreatedAt.Equal(t0))

	for i, kind := range []monitor.InterventionKind{monitor.InterventionCircular, monitor.InterventionDistractor} {
		require.NoError(t, s.RecordIntervention(ctx, "a", monitor.InterventionRecord{
			ThoughtIndex: i + 1, Kind: kind, Reason: "r", Timestamp: t0.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.RecordIntervention(ctx, "b", monitor.InterventionRecord{
		ThoughtIndex: 1, Kind: monitor.InterventionCircular, Reason: "r", Timestamp: t0.Add(time.Minute),
	}))

	recent, err := s.RecentInterventions(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, monitor.InterventionDistractor, recent[0].Kind, "newest first")

	all, err := s.RecentInterventions(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].SessionID)

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.Sessions)
	assert.Equal(t, int64(3), sum.Thoughts)
	assert.Equal(t, int64(3), sum.Interventions)
	assert.Equal(t, int64(2), sum.ByKind[monitor.InterventionCircular])
	assert.Equal(t, int64(2), sum.ByPhase[monitor.PhaseExploration])
}

func TestStore_EmptySummary(t *testing.T) {
	s := openTestStore(t)

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Thoughts)
	assert.Zero(t, sum.Interventions)
	assert.Empty(t, sum.ByKind)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordSignal(ctx, "a", 1, signal(monitor.PhaseExploration, 0, 1), t0))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.Signals(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

// ============================================================================
// Collector
// ============================================================================

func TestCollector_AggregatesEvents(t *testing.T) {
	b := bus.NewBus()
	store := openTestStore(t)
	reg := prometheus.NewRegistry()

	c := NewCollector(b, store, reg, zerolog.Nop())
	require.NoError(t, c.Start(context.Background()))

	publishRun(t, b)

	stats := c.Stats()
	assert.Equal(t, 2, stats.Sessions)
	assert.Equal(t, 3, stats.Thoughts)
	assert.Equal(t, 1, stats.Interventions)
	assert.Equal(t, 1, stats.Resets)
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 2, stats.ByPhase[monitor.PhaseExploration])
	assert.Equal(t, 1, stats.ByKind[monitor.InterventionCircular])
	assert.InDelta(t, 0.6, stats.PeakCircular, 1e-9)
	assert.InDelta(t, 0.8, stats.MeanRelevance, 1e-9)
	assert.Equal(t, string(bus.EventSessionExpired), stats.LastEvent)
	assert.Zero(t, stats.StoreErrors)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.prom.thoughts.WithLabelValues("overthinking")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.prom.thoughts.WithLabelValues("exploration")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.prom.interventions.WithLabelValues("circular_reasoning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.prom.sessions.WithLabelValues("session_reset")))

	sum, err := store.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Thoughts)
	assert.Equal(t, int64(1), sum.Interventions)
}

func TestCollector_WithoutStoreOrRegistry(t *testing.T) {
	b := bus.NewBus()
	c := NewCollector(b, nil, nil, zerolog.Nop())
	require.NoError(t, c.Start(context.Background()))

	publishRun(t, b)

	assert.Equal(t, 3, c.Stats().Thoughts)
	assert.Nil(t, c.prom)
}

func TestCollector_StatsAreCopies(t *testing.T) {
	b := bus.NewBus()
	c := NewCollector(b, nil, nil, zerolog.Nop())
	require.NoError(t, c.Start(context.Background()))
	publishRun(t, b)

	s := c.Stats()
	s.ByPhase[monitor.PhaseFatigue] = 99
	assert.NotContains(t, c.Stats().ByPhase, monitor.PhaseFatigue)
}

func TestCollector_StoreErrorsAreCounted(t *testing.T) {
	b := bus.NewBus()
	store := openTestStore(t)
	require.NoError(t, store.Close())

	c := NewCollector(b, store, nil, zerolog.Nop())
	require.NoError(t, c.Start(context.Background()))
	publishRun(t, b)

	assert.Equal(t, 4, c.Stats().StoreErrors)
}

func TestCollector_Stop(t *testing.T) {
	b := bus.NewBus()
	defer b.Close()

	c := NewCollector(b, nil, nil, zerolog.Nop())
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()), "second start is a no-op")
	assert.Equal(t, 1, b.SubscriptionsCount())

	c.Stop()
	assert.Zero(t, b.SubscriptionsCount())
}

// ============================================================================
// Dashboard
// ============================================================================

func TestDashboard_Render(t *testing.T) {
	b := bus.NewBus()
	c := NewCollector(b, nil, nil, zerolog.Nop())
	require.NoError(t, c.Start(context.Background()))
	publishRun(t, b)

	r := lipgloss.NewRenderer(&strings.Builder{})
	r.SetColorProfile(termenv.Ascii)

	d := NewDashboard(c, r)
	d.SetWidth(120)
	d.now = func() time.Time { return c.Stats().LastEventTime.Add(30 * time.Second) }

	out := d.Render()
	assert.Contains(t, out, "METACOGNITION")
	assert.Contains(t, out, "Thoughts: 3")
	assert.Contains(t, out, "Interventions: 1")
	assert.Contains(t, out, "Peak circular: 0.60")
	assert.Contains(t, out, "exploration=2 overthinking=1")
	assert.Contains(t, out, "circular_reasoning=1")
	assert.Contains(t, out, "session_expired (30s ago)")
	assert.NotContains(t, out, "\x1b[")
}

func TestDashboard_Empty(t *testing.T) {
	c := NewCollector(bus.NewBus(), nil, nil, zerolog.Nop())

	r := lipgloss.NewRenderer(&strings.Builder{})
	r.SetColorProfile(termenv.Ascii)

	out := NewDashboard(c, r).Render()
	assert.Contains(t, out, "Phases: none")
	assert.Contains(t, out, "Last: none")
}

func TestDashboard_ReportsDroppedEvents(t *testing.T) {
	b := bus.NewBusWithConfig(bus.DefaultHistorySize, 1)
	c := NewCollector(b, nil, nil, zerolog.Nop())
	require.NoError(t, c.Start(context.Background()))

	// A stalled subscriber holds one event and buffers one more; the rest
	// of its deliveries are dropped.
	release := make(chan struct{})
	_, err := b.Subscribe("", func(bus.Event) { <-release })
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, b.Publish(bus.ThoughtAnalyzed("a", i, signal(monitor.PhaseExploration, 0, 1))))
	}
	assert.GreaterOrEqual(t, c.Stats().DroppedEvents, uint64(3))

	close(release)
	require.NoError(t, b.Close())

	r := lipgloss.NewRenderer(&strings.Builder{})
	r.SetColorProfile(termenv.Ascii)
	d := NewDashboard(c, r)
	d.SetWidth(120)

	out := d.Render()
	assert.Contains(t, out, fmt.Sprintf("%d events dropped", c.Stats().DroppedEvents))
}

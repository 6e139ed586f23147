package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/metamonitor/internal/bus"
	"github.com/normanking/metamonitor/internal/cognitive/monitor"
	"github.com/normanking/metamonitor/internal/config"
)

// fakeClock is a settable clock safe for concurrent reads.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testConfig() config.SessionConfig {
	return config.SessionConfig{TTL: 30 * time.Minute, CleanupInterval: time.Minute}
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestGetOrCreate(t *testing.T) {
	m := NewManager(testConfig(), monitor.DefaultConfig())

	id1, err := m.GetOrCreate("")
	require.NoError(t, err)
	_, err = uuid.Parse(id1)
	assert.NoError(t, err)

	id2, err := m.GetOrCreate("test-session")
	require.NoError(t, err)
	assert.Equal(t, "test-session", id2)

	again, err := m.GetOrCreate("test-session")
	require.NoError(t, err)
	assert.Equal(t, "test-session", again)
	assert.Equal(t, 2, m.Count())
}

func TestMaxSessions(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSessions = 1
	m := NewManager(cfg, monitor.DefaultConfig())

	_, err := m.GetOrCreate("a")
	require.NoError(t, err)

	_, err = m.GetOrCreate("b")
	assert.ErrorIs(t, err, ErrTooManySessions)

	_, err = m.Analyze("c", "thought", 1)
	assert.ErrorIs(t, err, ErrTooManySessions)

	_, err = m.GetOrCreate("a")
	assert.NoError(t, err, "existing sessions stay reachable")
}

func TestUnknownSession(t *testing.T) {
	m := NewManager(testConfig(), monitor.DefaultConfig())

	assert.ErrorIs(t, m.Reset("missing"), ErrSessionNotFound)
	_, err := m.Status("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, m.Delete("missing"))
	assert.Zero(t, m.Count(), "lookups must not create sessions")
}

func TestCleanupExpired(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(testConfig(), monitor.DefaultConfig(), WithClock(clock.Now))

	m.GetOrCreate("old")
	clock.Advance(20 * time.Minute)
	m.GetOrCreate("fresh")
	clock.Advance(15 * time.Minute)

	assert.Equal(t, 1, m.CleanupExpired())
	assert.Equal(t, 1, m.Count())
	_, err := m.Status("fresh")
	assert.NoError(t, err)
	_, err = m.Status("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAccessRefreshesExpiry(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(testConfig(), monitor.DefaultConfig(), WithClock(clock.Now))

	m.GetOrCreate("s")
	for i := 0; i < 4; i++ {
		clock.Advance(20 * time.Minute)
		_, err := m.Analyze("s", "Still thinking about caching strategies", i+1)
		require.NoError(t, err)
	}

	assert.Zero(t, m.CleanupExpired())
	assert.Equal(t, 1, m.Count())
}

func TestStats(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(testConfig(), monitor.DefaultConfig(), WithClock(clock.Now))

	assert.Equal(t, Stats{}, m.Stats())

	m.GetOrCreate("a")
	clock.Advance(10 * time.Minute)
	m.GetOrCreate("b")
	clock.Advance(10 * time.Minute)

	st := m.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 20*time.Minute, st.OldestAge)
	assert.Equal(t, 15*time.Minute, st.AverageAge)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupInterval = time.Millisecond
	cfg.TTL = time.Nanosecond

	clock := newFakeClock()
	m := NewManager(cfg, monitor.DefaultConfig(), WithClock(clock.Now))
	m.GetOrCreate("s")
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return m.Count() == 0 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// ============================================================================
// Analysis
// ============================================================================

func TestSessionIsolation(t *testing.T) {
	m := NewManager(testConfig(), monitor.DefaultConfig())

	_, err := m.Analyze("a", "Understanding recursion requires understanding recursion", 1)
	require.NoError(t, err)
	sig, err := m.Analyze("b", "I need to understand recursion", 1)
	require.NoError(t, err)
	assert.Empty(t, sig.Intervention, "b has no history of its own")

	sig, err = m.Analyze("a", "I need to understand recursion", 2)
	require.NoError(t, err)
	assert.Equal(t, monitor.PhaseOverthinking, sig.Phase)

	sa, err := m.Status("a")
	require.NoError(t, err)
	sb, err := m.Status("b")
	require.NoError(t, err)
	assert.Len(t, sa.InterventionHistory, 1)
	assert.Empty(t, sb.InterventionHistory)
}

func TestResetClearsSession(t *testing.T) {
	m := NewManager(testConfig(), monitor.DefaultConfig())

	m.Analyze("a", "Understanding recursion requires understanding recursion", 1)
	m.Analyze("a", "I need to understand recursion", 2)
	require.NoError(t, m.Reset("a"))

	st, err := m.Status("a")
	require.NoError(t, err)
	assert.Zero(t, st.ThoughtCount)
	assert.Equal(t, monitor.PhaseExploration, st.CurrentPhase)
}

func TestPublishesEvents(t *testing.T) {
	clock := newFakeClock()
	b := bus.NewBus()
	m := NewManager(testConfig(), monitor.DefaultConfig(), WithBus(b), WithClock(clock.Now))

	m.Analyze("a", "Understanding recursion requires understanding recursion", 1)
	m.Analyze("a", "I need to understand recursion", 2)
	require.NoError(t, m.Reset("a"))
	clock.Advance(time.Hour)
	require.Equal(t, 1, m.CleanupExpired())

	var types []bus.EventType
	for _, e := range b.History() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []bus.EventType{
		bus.EventThoughtAnalyzed,
		bus.EventThoughtAnalyzed,
		bus.EventInterventionRaised,
		bus.EventSessionReset,
		bus.EventSessionExpired,
	}, types)

	raised := b.History()[2]
	require.NotNil(t, raised.Intervention)
	assert.Equal(t, monitor.InterventionCircular, raised.Intervention.Kind)
	assert.Equal(t, 2, raised.ThoughtIndex)
	assert.Equal(t, clock.Now().Add(-time.Hour), raised.Intervention.Timestamp)

	require.NoError(t, b.Close())
	_, err := m.Analyze("a", "after close", 3)
	assert.NoError(t, err, "a closed bus does not fail analysis")
}

func TestConcurrentSessions(t *testing.T) {
	m := NewManager(testConfig(), monitor.DefaultConfig())

	var g errgroup.Group
	for s := 0; s < 8; s++ {
		id := fmt.Sprintf("s%d", s)
		g.Go(func() error {
			for i := 0; i < 20; i++ {
				if _, err := m.Analyze(id, fmt.Sprintf("Thought number %d about distributed caches", i), i+1); err != nil {
					return err
				}
				if _, err := m.Status(id); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 8, m.Count())
	for s := 0; s < 8; s++ {
		st, err := m.Status(fmt.Sprintf("s%d", s))
		require.NoError(t, err)
		assert.Equal(t, 10, st.ThoughtCount)
	}
}

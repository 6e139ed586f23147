// Package session keeps one metacognitive monitor per conversation, expires
// idle sessions and publishes every analysis to the event bus.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/metamonitor/internal/bus"
	"github.com/normanking/metamonitor/internal/cognitive/monitor"
	"github.com/normanking/metamonitor/internal/config"
	"github.com/normanking/metamonitor/internal/logging"
)

var (
	// ErrSessionNotFound is returned for operations on unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when creating a session would exceed
	// the configured maximum.
	ErrTooManySessions = errors.New("session limit reached")
)

// Stats describes the live sessions.
type Stats struct {
	Total      int           `json:"total_sessions"`
	OldestAge  time.Duration `json:"oldest_session_age"`
	AverageAge time.Duration `json:"average_session_age"`
}

type entry struct {
	mu      sync.Mutex
	monitor *monitor.Monitor

	// guarded by Manager.mu
	created      time.Time
	lastAccessed time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithBus publishes session events to b.
func WithBus(b *bus.Bus) Option {
	return func(m *Manager) { m.bus = b }
}

// WithLogger sets the logger for the manager and its monitors.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = logging.Component(l, "session") }
}

// WithClock replaces time.Now for expiry and monitor timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager is safe for concurrent use. Calls on one session are serialised;
// different sessions proceed in parallel.
type Manager struct {
	cfg        config.SessionConfig
	monitorCfg monitor.Config
	bus        *bus.Bus
	log        zerolog.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewManager creates a manager whose monitors use monitorCfg.
func NewManager(cfg config.SessionConfig, monitorCfg monitor.Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:        cfg,
		monitorCfg: monitorCfg,
		log:        zerolog.Nop(),
		now:        time.Now,
		sessions:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns id, creating the session if needed. An empty id
// creates a session with a fresh UUID.
func (m *Manager) GetOrCreate(id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookupLocked(id, true); err != nil {
		return "", err
	}
	return id, nil
}

// lookupLocked returns the entry for id and refreshes its access time.
// Must be called with m.mu held.
func (m *Manager) lookupLocked(id string, create bool) (*entry, error) {
	now := m.now()
	if e, ok := m.sessions[id]; ok {
		e.lastAccessed = now
		return e, nil
	}
	if !create {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return nil, fmt.Errorf("%w (%d)", ErrTooManySessions, m.cfg.MaxSessions)
	}

	e := &entry{
		monitor: monitor.New(m.monitorCfg,
			monitor.WithLogger(m.log.With().Str("session", id).Logger()),
			monitor.WithClock(m.now),
		),
		created:      now,
		lastAccessed: now,
	}
	m.sessions[id] = e
	m.log.Debug().Str("session", id).Msg("session created")
	return e, nil
}

// Analyze runs thought through the session's monitor, creating the session
// if it does not exist yet.
func (m *Manager) Analyze(id, thought string, index int) (monitor.Signal, error) {
	m.mu.Lock()
	e, err := m.lookupLocked(id, true)
	m.mu.Unlock()
	if err != nil {
		return monitor.Signal{}, err
	}

	e.mu.Lock()
	sig := e.monitor.AnalyzeThought(thought, index)
	var rec monitor.InterventionRecord
	if sig.HasIntervention() {
		log := e.monitor.Interventions()
		rec = log[len(log)-1]
	}
	e.mu.Unlock()

	m.publish(bus.ThoughtAnalyzed(id, index, sig))
	if sig.HasIntervention() {
		m.publish(bus.InterventionRaised(id, rec))
	}
	return sig, nil
}

// Reset clears the session's monitor state.
func (m *Manager) Reset(id string) error {
	m.mu.Lock()
	e, err := m.lookupLocked(id, false)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.monitor.Reset()
	e.mu.Unlock()

	m.publish(bus.NewEvent(bus.EventSessionReset, id))
	return nil
}

// Status returns the session's status snapshot.
func (m *Manager) Status(id string) (monitor.Status, error) {
	m.mu.Lock()
	e, err := m.lookupLocked(id, false)
	m.mu.Unlock()
	if err != nil {
		return monitor.Status{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.monitor.Status(), nil
}

// Delete drops a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CleanupExpired drops sessions idle for longer than the TTL and returns
// how many were removed.
func (m *Manager) CleanupExpired() int {
	now := m.now()

	m.mu.Lock()
	var expired []string
	for id, e := range m.sessions {
		if now.Sub(e.lastAccessed) > m.cfg.TTL {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.log.Debug().Str("session", id).Msg("session expired")
		m.publish(bus.NewEvent(bus.EventSessionExpired, id))
	}
	if len(expired) > 0 {
		m.log.Info().Int("removed", len(expired)).Msg("cleaned up expired sessions")
	}
	return len(expired)
}

// Stats returns the count and age distribution of live sessions.
func (m *Manager) Stats() Stats {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var st Stats
	var total time.Duration
	for _, e := range m.sessions {
		age := now.Sub(e.created)
		total += age
		st.OldestAge = max(st.OldestAge, age)
	}
	st.Total = len(m.sessions)
	if st.Total > 0 {
		st.AverageAge = total / time.Duration(st.Total)
	}
	return st
}

// Run collects expired sessions every CleanupInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.CleanupExpired()
		}
	}
}

func (m *Manager) publish(e bus.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(e); err != nil {
		m.log.Debug().Err(err).Str("event", string(e.Type)).Msg("event not published")
	}
}

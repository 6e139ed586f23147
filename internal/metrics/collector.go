package metrics

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/normanking/metamonitor/internal/bus"
	"github.com/normanking/metamonitor/internal/cognitive/monitor"
	"github.com/normanking/metamonitor/internal/logging"
)

// storeTimeout bounds each store write issued from an event handler.
const storeTimeout = 5 * time.Second

// Stats holds the aggregated counters of a collector run.
type Stats struct {
	StartTime     time.Time
	Sessions      int
	Thoughts      int
	Interventions int
	Resets        int
	Expired       int
	ByKind        map[monitor.InterventionKind]int
	ByPhase       map[monitor.Phase]int
	PeakCircular  float64
	MeanRelevance float64
	StoreErrors   int
	DroppedEvents uint64
	LastEvent     string
	LastEventTime time.Time
}

// promMetrics are the Prometheus series mirrored from the event stream.
type promMetrics struct {
	thoughts      *prometheus.CounterVec
	interventions *prometheus.CounterVec
	sessions      *prometheus.CounterVec
	circular      prometheus.Histogram
	relevance     prometheus.Histogram
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	f := promauto.With(reg)
	return &promMetrics{
		thoughts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metamonitor",
			Name:      "thoughts_total",
			Help:      "Thoughts analyzed, by resulting phase",
		}, []string{"phase"}),
		interventions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metamonitor",
			Name:      "interventions_total",
			Help:      "Interventions raised, by kind",
		}, []string{"kind"}),
		sessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metamonitor",
			Name:      "session_events_total",
			Help:      "Session lifecycle events, by type",
		}, []string{"event"}),
		circular: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "metamonitor",
			Name:      "circular_score",
			Help:      "Distribution of circular reasoning severity",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
		relevance: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "metamonitor",
			Name:      "relevance",
			Help:      "Distribution of relevance to the session's opening thought",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
	}
}

// Collector subscribes to the event bus and aggregates metrics. Store may
// be nil; a nil registerer skips Prometheus.
type Collector struct {
	bus   *bus.Bus
	store *Store
	prom  *promMetrics
	log   zerolog.Logger

	mu           sync.RWMutex
	ctx          context.Context
	stats        Stats
	sessions     map[string]struct{}
	relevanceSum float64
	subs         []bus.SubscriptionID
	started      bool
}

// NewCollector creates a metrics collector.
func NewCollector(eventBus *bus.Bus, store *Store, reg prometheus.Registerer, logger zerolog.Logger) *Collector {
	c := &Collector{
		bus:      eventBus,
		store:    store,
		log:      logging.Component(logger, "metrics"),
		ctx:      context.Background(),
		sessions: make(map[string]struct{}),
		stats: Stats{
			StartTime: time.Now(),
			ByKind:    make(map[monitor.InterventionKind]int),
			ByPhase:   make(map[monitor.Phase]int),
		},
	}
	if reg != nil {
		c.prom = newPromMetrics(reg)
	}
	return c
}

// Start begins listening to the bus. Store writes outlive ctx by up to
// storeTimeout so events queued at shutdown are still persisted.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	id, err := c.bus.Subscribe("", c.handleEvent)
	if err != nil {
		return err
	}
	c.ctx = ctx
	c.subs = append(c.subs, id)
	c.started = true
	return nil
}

// Stop stops listening. Events already queued are still handled.
func (c *Collector) Stop() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.started = false
	c.mu.Unlock()

	for _, id := range subs {
		_ = c.bus.Unsubscribe(id)
	}
}

// Stats returns a copy of the current stats. DroppedEvents counts bus
// deliveries skipped for any subscriber; when non-zero the other counters
// are a lower bound.
func (c *Collector) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.stats
	s.ByKind = maps.Clone(c.stats.ByKind)
	s.ByPhase = maps.Clone(c.stats.ByPhase)
	s.DroppedEvents = c.bus.Dropped()
	return s
}

func (c *Collector) handleEvent(e bus.Event) {
	switch e.Type {
	case bus.EventThoughtAnalyzed:
		c.handleThought(e)
	case bus.EventInterventionRaised:
		c.handleIntervention(e)
	case bus.EventSessionReset, bus.EventSessionExpired:
		c.handleSession(e)
	}
}

func (c *Collector) handleThought(e bus.Event) {
	if e.Signal == nil {
		return
	}
	sig := *e.Signal

	c.mu.Lock()
	c.sessions[e.SessionID] = struct{}{}
	c.stats.Sessions = len(c.sessions)
	c.stats.Thoughts++
	c.stats.ByPhase[sig.Phase]++
	c.stats.PeakCircular = max(c.stats.PeakCircular, sig.CircularScore)
	c.relevanceSum += sig.Relevance
	c.stats.MeanRelevance = c.relevanceSum / float64(c.stats.Thoughts)
	c.touch(e, "thought analyzed")
	ctx := c.ctx
	c.mu.Unlock()

	if c.prom != nil {
		c.prom.thoughts.WithLabelValues(string(sig.Phase)).Inc()
		c.prom.circular.Observe(sig.CircularScore)
		c.prom.relevance.Observe(sig.Relevance)
	}

	if c.store != nil {
		wctx, cancel := logging.DetachContextWithTimeout(ctx, storeTimeout)
		defer cancel()
		c.storeErr(c.store.RecordSignal(wctx, e.SessionID, e.ThoughtIndex, sig, e.Timestamp), e)
	}
}

func (c *Collector) handleIntervention(e bus.Event) {
	if e.Intervention == nil {
		return
	}
	rec := *e.Intervention

	c.mu.Lock()
	c.stats.Interventions++
	c.stats.ByKind[rec.Kind]++
	c.touch(e, "intervention: "+string(rec.Kind))
	ctx := c.ctx
	c.mu.Unlock()

	if c.prom != nil {
		c.prom.interventions.WithLabelValues(string(rec.Kind)).Inc()
	}

	if c.store != nil {
		wctx, cancel := logging.DetachContextWithTimeout(ctx, storeTimeout)
		defer cancel()
		c.storeErr(c.store.RecordIntervention(wctx, e.SessionID, rec), e)
	}
}

func (c *Collector) handleSession(e bus.Event) {
	c.mu.Lock()
	if e.Type == bus.EventSessionReset {
		c.stats.Resets++
	} else {
		c.stats.Expired++
	}
	c.touch(e, string(e.Type))
	c.mu.Unlock()

	if c.prom != nil {
		c.prom.sessions.WithLabelValues(string(e.Type)).Inc()
	}
}

// touch must be called with c.mu held.
func (c *Collector) touch(e bus.Event, what string) {
	c.stats.LastEvent = what
	c.stats.LastEventTime = e.Timestamp
}

func (c *Collector) storeErr(err error, e bus.Event) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.stats.StoreErrors++
	c.mu.Unlock()
	c.log.Warn().Err(err).Str("session", e.SessionID).Str("event", string(e.Type)).Msg("store write failed")
}

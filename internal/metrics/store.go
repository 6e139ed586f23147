// Package metrics aggregates monitoring events into session statistics,
// Prometheus series and an optional SQLite history.
package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql

	"github.com/normanking/metamonitor/internal/cognitive/monitor"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STORED TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// SignalRow is one persisted per-thought signal.
type SignalRow struct {
	ID              int64         `json:"id"`
	SessionID       string        `json:"session_id"`
	ThoughtIndex    int           `json:"thought_index"`
	Phase           monitor.Phase `json:"phase"`
	CircularScore   float64       `json:"circular_score"`
	Relevance       float64       `json:"relevance"`
	QualityScore    float64       `json:"quality_score"`
	QualityTrend    monitor.Trend `json:"quality_trend"`
	DistractorAlert bool          `json:"distractor_alert"`
	Intervention    string        `json:"intervention,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// InterventionRow is one persisted intervention.
type InterventionRow struct {
	ID           int64                    `json:"id"`
	SessionID    string                   `json:"session_id"`
	ThoughtIndex int                      `json:"thought_index"`
	Kind         monitor.InterventionKind `json:"kind"`
	Reason       string                   `json:"reason"`
	CreatedAt    time.Time                `json:"created_at"`
}

// Summary aggregates everything in the store.
type Summary struct {
	Sessions      int64                              `json:"sessions"`
	Thoughts      int64                              `json:"thoughts"`
	Interventions int64                              `json:"interventions"`
	ByKind        map[monitor.InterventionKind]int64 `json:"by_kind"`
	ByPhase       map[monitor.Phase]int64            `json:"by_phase"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// STORE
// ═══════════════════════════════════════════════════════════════════════════════

// Store provides SQLite-backed persistence for signals and interventions.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open metrics db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing connection and creates the schema.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		thought_index INTEGER NOT NULL,
		phase TEXT NOT NULL,
		circular_score REAL NOT NULL,
		relevance REAL NOT NULL,
		quality_score REAL NOT NULL,
		quality_trend TEXT NOT NULL,
		distractor_alert BOOLEAN NOT NULL,
		intervention TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_signals_session ON signals(session_id);

	CREATE TABLE IF NOT EXISTS interventions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		thought_index INTEGER NOT NULL,
		kind TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_interventions_session ON interventions(session_id);
	CREATE INDEX IF NOT EXISTS idx_interventions_kind ON interventions(kind);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ═══════════════════════════════════════════════════════════════════════════════
// RECORDING METHODS
// ═══════════════════════════════════════════════════════════════════════════════

// RecordSignal stores the signal produced for one thought.
func (s *Store) RecordSignal(ctx context.Context, sessionID string, index int, sig monitor.Signal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (session_id, thought_index, phase, circular_score, relevance,
		                     quality_score, quality_trend, distractor_alert, intervention, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sessionID, index, string(sig.Phase), sig.CircularScore, sig.Relevance,
		sig.QualityScore, string(sig.QualityTrend), sig.DistractorAlert, sig.Intervention, at.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record signal: %w", err)
	}
	return nil
}

// RecordIntervention stores an intervention record.
func (s *Store) RecordIntervention(ctx context.Context, sessionID string, rec monitor.InterventionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interventions (session_id, thought_index, kind, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, rec.ThoughtIndex, string(rec.Kind), rec.Reason, rec.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record intervention: %w", err)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// QUERY METHODS
// ═══════════════════════════════════════════════════════════════════════════════

// Signals returns the signals of one session in thought order.
func (s *Store) Signals(ctx context.Context, sessionID string) ([]SignalRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, thought_index, phase, circular_score, relevance,
		       quality_score, quality_trend, distractor_alert, COALESCE(intervention, ''), created_at
		FROM signals
		WHERE session_id = ?
		ORDER BY thought_index, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRow
	for rows.Next() {
		var (
			r     SignalRow
			nanos int64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ThoughtIndex, &r.Phase, &r.CircularScore, &r.Relevance,
			&r.QualityScore, &r.QualityTrend, &r.DistractorAlert, &r.Intervention, &nanos); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		r.CreatedAt = time.Unix(0, nanos).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentInterventions returns the newest interventions, newest first. An
// empty sessionID matches every session.
func (s *Store) RecentInterventions(ctx context.Context, sessionID string, limit int) ([]InterventionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, thought_index, kind, reason, created_at
		FROM interventions
		WHERE ? = '' OR session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query interventions: %w", err)
	}
	defer rows.Close()

	var out []InterventionRow
	for rows.Next() {
		var (
			r     InterventionRow
			nanos int64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ThoughtIndex, &r.Kind, &r.Reason, &nanos); err != nil {
			return nil, fmt.Errorf("scan intervention: %w", err)
		}
		r.CreatedAt = time.Unix(0, nanos).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary aggregates counts across all sessions.
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		ByKind:  make(map[monitor.InterventionKind]int64),
		ByPhase: make(map[monitor.Phase]int64),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT session_id), COUNT(*) FROM signals
	`).Scan(&sum.Sessions, &sum.Thoughts)
	if err != nil {
		return nil, fmt.Errorf("count signals: %w", err)
	}

	if err := s.groupCount(ctx, `SELECT phase, COUNT(*) FROM signals GROUP BY phase`, func(key string, n int64) {
		sum.ByPhase[monitor.Phase(key)] = n
	}); err != nil {
		return nil, err
	}

	if err := s.groupCount(ctx, `SELECT kind, COUNT(*) FROM interventions GROUP BY kind`, func(key string, n int64) {
		sum.ByKind[monitor.InterventionKind(key)] = n
		sum.Interventions += n
	}); err != nil {
		return nil, err
	}

	return sum, nil
}

func (s *Store) groupCount(ctx context.Context, query string, fn func(string, int64)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("group count: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan group count: %w", err)
		}
		fn(key, n)
	}
	return rows.Err()
}

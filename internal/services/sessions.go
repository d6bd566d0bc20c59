package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"sales-kpi-dashboard/internal/models"
	"sales-kpi-dashboard/internal/observability"
)

// Session is the state owned by one browser session: its table and its
// current filter selection. Nothing is shared between sessions except the
// immutable sample table.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.RWMutex
	table     *models.SalesTable
	selection models.FilterSelection
}

// Snapshot returns the table and selection under one lock so a concurrent
// upload cannot pair a new table with an old selection.
func (s *Session) Snapshot() (*models.SalesTable, models.FilterSelection) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table, s.selection.Clone()
}

func (s *Session) Table() *models.SalesTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

func (s *Session) HasTable() bool {
	return s.Table() != nil
}

// SetTable replaces the table wholesale and resets the selection to every
// value present in it.
func (s *Session) SetTable(table *models.SalesTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	if table == nil {
		s.selection = models.FilterSelection{}
		return
	}
	s.selection = DefaultSelection(table)
}

// SetSelectionFor stores sel only while table is still the session's table.
// It reports false when an upload replaced the table in the meantime.
func (s *Session) SetSelectionFor(table *models.SalesTable, sel models.FilterSelection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table != table {
		return false
	}
	s.selection = sel.Clone()
	return true
}

// SessionStore keeps a bounded number of sessions in memory; the least
// recently used session is dropped when the store is full.
type SessionStore struct {
	cache   *lru.Cache
	seed    func() *models.SalesTable
	metrics *observability.Metrics
	newID   func() string
}

type SessionOption func(*SessionStore)

// WithSeed sets the table new sessions start with.
func WithSeed(seed func() *models.SalesTable) SessionOption {
	return func(s *SessionStore) { s.seed = seed }
}

func WithSessionMetrics(metrics *observability.Metrics) SessionOption {
	return func(s *SessionStore) { s.metrics = metrics }
}

func NewSessionStore(capacity int, opts ...SessionOption) (*SessionStore, error) {
	s := &SessionStore{
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}

	cache, err := lru.NewWithEvict(capacity, func(key, value interface{}) {
		s.metrics.SessionDelta(context.Background(), -1)
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

func (s *SessionStore) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

func (s *SessionStore) Create() *Session {
	sess := &Session{
		ID:        s.newID(),
		CreatedAt: time.Now(),
	}
	if s.seed != nil {
		if table := s.seed(); table != nil {
			sess.SetTable(table)
		}
	}
	s.cache.Add(sess.ID, sess)
	s.metrics.SessionDelta(context.Background(), 1)
	return sess
}

// GetOrCreate returns the session for id, creating a fresh one when id is
// unknown or evicted. The second result reports whether it was created.
func (s *SessionStore) GetOrCreate(id string) (*Session, bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(), true
}

func (s *SessionStore) Remove(id string) {
	s.cache.Remove(id)
}

func (s *SessionStore) Len() int {
	return s.cache.Len()
}

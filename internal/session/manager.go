package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"examcompress/internal/exam"
	"examcompress/internal/workflow"
)

// Manager keeps one workflow controller per browser session and persists
// their snapshots.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	catalog   exam.Catalog
	submitter workflow.Submitter
	ttl       time.Duration
	store     Store
	persistMu sync.Mutex
	now       func() time.Time
}

// NewManager creates a manager with the provided configuration.
func NewManager(opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	store := opts.Store
	if store == nil {
		store = NewFileStore(opts.DataDir)
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		catalog:   opts.Catalog,
		submitter: opts.Submitter,
		ttl:       opts.TTL,
		store:     store,
		now:       time.Now,
	}
}

// Catalog returns the exam catalog sessions are built with.
func (m *Manager) Catalog() exam.Catalog { return m.catalog }

// Create starts a fresh session.
func (m *Manager) Create() *Session {
	return m.add(uuid.NewString(), m.now())
}

// Get returns a session by ID and marks it as recently used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.lastSeen = m.now()
	}
	return s, ok
}

// GetOrCreate returns the session for id, creating a new one when id is
// empty or unknown. The boolean reports whether a session was created.
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}
	return m.Create(), true
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Prune drops sessions unused for longer than the TTL, skipping any with a
// submission in flight. It returns the number removed.
func (m *Manager) Prune() int {
	cutoff := m.now().Add(-m.ttl)
	var expired []string

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) && s.Controller.State().Phase != workflow.PhaseSubmitting {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		if err := m.store.DeleteSnapshot(context.Background(), id); err != nil {
			log.Warn().Str("session_id", id).Err(err).Msg("delete expired session failed")
		}
	}
	if len(expired) > 0 {
		log.Info().Int("expired", len(expired)).Msg("sessions pruned")
	}
	return len(expired)
}

// RunPruner prunes every interval until ctx is done.
func (m *Manager) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Prune()
		}
	}
}

// LoadFromDisk restores persisted sessions. Sessions that were mid-submit
// when the process stopped come back with the generic failure message,
// since their outcome is unknown.
func (m *Manager) LoadFromDisk() error {
	snaps, err := m.store.LoadSnapshots(context.Background())
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	for _, snap := range snaps {
		s := m.add(snap.ID, snap.CreatedAt)
		if snap.Stage != workflow.StageReady {
			continue
		}
		errMsg := snap.Error
		if snap.Phase == workflow.PhaseSubmitting {
			errMsg = workflow.MsgSubmitFailed
		}
		if err := s.Controller.Restore(snap.ExamID, snap.Results, errMsg); err != nil {
			log.Warn().Str("session_id", snap.ID).Str("exam", snap.ExamID).Err(err).Msg("restore session failed")
		}
	}
	log.Info().Int("sessions", len(snaps)).Msg("sessions loaded")
	return nil
}

func (m *Manager) add(id string, createdAt time.Time) *Session {
	s := &Session{ID: id, CreatedAt: createdAt, lastSeen: m.now()}
	s.Controller = workflow.New(workflow.Options{
		Catalog:   m.catalog,
		Submitter: m.submitter,
		OnChange:  func(st workflow.State) { m.persist(s, st) },
	})
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) persist(s *Session, st workflow.State) {
	snap := Snapshot{
		ID:        s.ID,
		ExamID:    st.ExamID,
		Stage:     st.Stage,
		Phase:     st.Phase,
		Error:     st.Error,
		Results:   st.Results,
		CreatedAt: s.CreatedAt,
		UpdatedAt: m.now(),
	}
	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	if st.Version <= s.persisted {
		log.Debug().Str("session_id", s.ID).Uint64("version", st.Version).Msg("stale snapshot dropped")
		return
	}
	s.persisted = st.Version
	if err := m.store.SaveSnapshot(context.Background(), snap); err != nil { // best-effort
		log.Warn().Str("session_id", s.ID).Err(err).Msg("persist session failed")
	}
}

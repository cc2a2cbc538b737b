package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/doc-chat/frontend/internal/models"
	"github.com/doc-chat/frontend/internal/staging"
)

// MaxSessions limits concurrent chat sessions to prevent memory exhaustion.
const MaxSessions = 200

// SessionMaxAge is how long idle sessions are kept before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively
// being used.
const SessionKeepAliveWindow = 5 * time.Minute

// ErrNotFound is returned when no session exists with the given ID.
var ErrNotFound = errors.New("session not found")

// ErrBusy is returned when an action of the same kind is already in flight
// for the session.
var ErrBusy = errors.New("request already in flight")

// State holds the transient view state of one chat session: the append-only
// transcript, the two independent busy flags and the last-access time.
type State struct {
	Session      *models.ChatSession
	Entries      []models.ChatEntry
	Thinking     bool
	Uploading    bool
	LastAccessed time.Time
}

// Status is a point-in-time snapshot of a session, as reported to the page.
type Status struct {
	Session       *models.ChatSession   `json:"session"`
	EntryCount    int                   `json:"entryCount"`
	Thinking      bool                  `json:"thinking"`
	Uploading     bool                  `json:"uploading"`
	PendingUpload *models.PendingUpload `json:"pendingUpload,omitempty"`
}

// Manager handles active chat sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*State
	spool    staging.Spool
}

// NewManager creates a new session manager. The spool is used to release a
// session's staged upload when the session is evicted.
func NewManager(spool staging.Spool) *Manager {
	return &Manager{
		sessions: make(map[string]*State),
		spool:    spool,
	}
}

// CreateSession registers a new chat session with an empty transcript.
func (m *Manager) CreateSession() *models.ChatSession {
	m.cleanupOldSessionsIfNeeded()

	sess := models.NewChatSession()

	m.mu.Lock()
	m.sessions[sess.ID] = &State{
		Session:      sess,
		Entries:      make([]models.ChatEntry, 0),
		LastAccessed: time.Now(),
	}
	m.mu.Unlock()

	return sess
}

// GetSession returns a session by ID.
func (m *Manager) GetSession(id string) (*models.ChatSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.Session, true
}

// Snapshot returns the session's current status, including the staged
// pending upload if one exists.
func (m *Manager) Snapshot(id string) (*Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}

	status := &Status{
		Session:    state.Session,
		EntryCount: len(state.Entries),
		Thinking:   state.Thinking,
		Uploading:  state.Uploading,
	}
	if pending, ok := m.spool.Pending(id); ok {
		status.PendingUpload = pending
	}
	return status, true
}

// TouchSession updates the LastAccessed timestamp for a session so cleanup
// spares it while the page is open.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// AppendEntry appends an entry to the session transcript. The transcript is
// append-only; there is no operation to edit or remove entries.
func (m *Manager) AppendEntry(id string, entry models.ChatEntry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.Entries = append(state.Entries, entry)
	state.LastAccessed = time.Now()
	return true
}

// Entries returns a copy of the session transcript in insertion order.
func (m *Manager) Entries(id string) ([]models.ChatEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}

	entries := make([]models.ChatEntry, len(state.Entries))
	copy(entries, state.Entries)
	return entries, true
}

// BeginAsk marks the session as thinking. It fails with ErrBusy if a
// question is already in flight, which keeps at most one outstanding ask
// per session. An in-flight upload does not block an ask.
func (m *Manager) BeginAsk(id string) error {
	return m.beginAction(id, func(s *State) *bool { return &s.Thinking })
}

// EndAsk clears the thinking flag. Callers must invoke it on every path
// out of an ask, success or failure.
func (m *Manager) EndAsk(id string) {
	m.endAction(id, func(s *State) *bool { return &s.Thinking })
}

// BeginUpload marks the session as uploading, failing with ErrBusy if an
// upload is already in flight. An in-flight ask does not block an upload.
func (m *Manager) BeginUpload(id string) error {
	return m.beginAction(id, func(s *State) *bool { return &s.Uploading })
}

// EndUpload clears the uploading flag.
func (m *Manager) EndUpload(id string) {
	m.endAction(id, func(s *State) *bool { return &s.Uploading })
}

func (m *Manager) beginAction(id string, flag func(*State) *bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	f := flag(state)
	if *f {
		return ErrBusy
	}
	*f = true
	state.LastAccessed = time.Now()
	return nil
}

func (m *Manager) endAction(id string, flag func(*State) *bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return
	}
	*flag(state) = false
	state.LastAccessed = time.Now()
}

// DeleteSession removes a session and releases its staged upload.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	m.evictLocked(id)
	return true
}

// cleanupOldSessionsIfNeeded evicts idle sessions when at capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}

	toFree := len(m.sessions) - MaxSessions + 1
	freed := 0
	for id, state := range m.sessions {
		if freed >= toFree {
			break
		}
		// Never evict a session with a request in flight.
		if state.Thinking || state.Uploading {
			continue
		}
		m.evictLocked(id)
		freed++
		slog.Info("evicted session to free capacity", "session", shortID(id))
	}
}

// CleanupOldSessions removes sessions idle for longer than maxAge, but
// keeps sessions accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	for id, state := range m.sessions {
		if state.Thinking || state.Uploading {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			idle := time.Since(state.LastAccessed).Round(time.Second)
			m.evictLocked(id)
			slog.Info("cleaned up idle session", "session", shortID(id), "idle", idle)
		}
	}
}

// evictLocked removes a session and its spooled upload. Caller holds mu.
func (m *Manager) evictLocked(id string) {
	delete(m.sessions, id)
	if err := m.spool.Clear(id); err != nil {
		slog.Warn("failed to clear spooled upload", "session", shortID(id), "error", err)
	}
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

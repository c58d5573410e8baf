// Package session owns process-wide conversation state: history, uploaded
// files, last activity, and the inferred lifecycle phase. State lives for
// the process lifetime only; there is no persistence contract.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn is one conversation entry.
type Turn struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Info is a read-only snapshot of a session's metadata.
type Info struct {
	ID           string    `json:"id"`
	Turns        int       `json:"turns"`
	Files        []string  `json:"files"`
	Phase        string    `json:"phase"`
	LastActivity time.Time `json:"last_activity"`
}

// state is the mutable per-session record. Each state carries its own
// mutex so a long generation call never blocks unrelated sessions.
type state struct {
	mu           sync.Mutex
	turns        []Turn
	files        []string
	phase        string
	lastActivity time.Time
}

// Store is a concurrent map of session ID to session state. Mutations to a
// given session are serialized per key; different keys never contend beyond
// the brief map lookup.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*state),
		now:      time.Now,
	}
}

// NewID mints a fresh opaque session token.
func NewID() string {
	return uuid.New().String()
}

// getOrCreate returns the state for id, creating it on first reference.
func (s *Store) getOrCreate(id string) *state {
	s.mu.RLock()
	st, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[id]; ok {
		return st
	}
	st = &state{lastActivity: s.now()}
	s.sessions[id] = st
	return st
}

// GetOrCreate ensures the session exists and returns its snapshot.
func (s *Store) GetOrCreate(id string) Info {
	st := s.getOrCreate(id)
	return s.snapshot(id, st)
}

// AppendTurn records a conversation turn and refreshes activity.
func (s *Store) AppendTurn(id, role, content string) {
	st := s.getOrCreate(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.turns = append(st.turns, Turn{Role: role, Content: content, At: s.now()})
	st.lastActivity = s.now()
}

// RecordUpload associates a filename with the session and refreshes activity.
func (s *Store) RecordUpload(id, filename string) {
	st := s.getOrCreate(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.files = append(st.files, filename)
	st.lastActivity = s.now()
}

// SetPhase assigns the session's current phase tag.
func (s *Store) SetPhase(id, phase string) {
	st := s.getOrCreate(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.phase = phase
	st.lastActivity = s.now()
}

// Touch refreshes the session's last-activity timestamp.
func (s *Store) Touch(id string) {
	st := s.getOrCreate(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.lastActivity = s.now()
}

// History returns the full turn list. Unknown IDs yield an empty slice
// without creating the session.
func (s *Store) History(id string) []Turn {
	s.mu.RLock()
	st, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Turn, len(st.turns))
	copy(out, st.turns)
	return out
}

// Recent returns at most n of the latest turns.
func (s *Store) Recent(id string, n int) []Turn {
	turns := s.History(id)
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// Files returns the uploaded-file names associated with the session.
func (s *Store) Files(id string) []string {
	s.mu.RLock()
	st, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]string, len(st.files))
	copy(out, st.files)
	return out
}

// Phase returns the session's current phase tag, or "" when unset/unknown.
func (s *Store) Phase(id string) string {
	s.mu.RLock()
	st, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return ""
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.phase
}

// Clear destroys the session. Clearing an unknown ID is a no-op.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sweep removes every session whose last activity is older than maxAge and
// reports the count removed. A session touched concurrently may still sweep
// out; that is acceptable lost work, not a correctness violation.
func (s *Store) Sweep(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, st := range s.sessions {
		st.mu.Lock()
		expired := st.lastActivity.Before(cutoff)
		st.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// List returns snapshots of all live sessions.
func (s *Store) List() []Info {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	states := make([]*state, 0, len(s.sessions))
	for id, st := range s.sessions {
		ids = append(ids, id)
		states = append(states, st)
	}
	s.mu.RUnlock()

	infos := make([]Info, len(ids))
	for i := range ids {
		infos[i] = s.snapshot(ids[i], states[i])
	}
	return infos
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) snapshot(id string, st *state) Info {
	st.mu.Lock()
	defer st.mu.Unlock()
	files := make([]string, len(st.files))
	copy(files, st.files)
	return Info{
		ID:           id,
		Turns:        len(st.turns),
		Files:        files,
		Phase:        st.phase,
		LastActivity: st.lastActivity,
	}
}

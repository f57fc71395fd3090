package agent

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/searchflow/types"
	"github.com/google/uuid"
)

// Transcript is the append-only message history of one session.
type Transcript struct {
	mu       sync.RWMutex
	messages []types.Message
	greeting string
}

// NewTranscript creates a transcript seeded with greeting (if non-empty).
func NewTranscript(greeting string) *Transcript {
	t := &Transcript{greeting: greeting}
	t.seed()
	return t
}

func (t *Transcript) seed() {
	t.messages = nil
	if strings.TrimSpace(t.greeting) != "" {
		t.messages = append(t.messages, types.NewAssistantMessage(t.greeting))
	}
}

// Append adds messages in order.
func (t *Transcript) Append(msgs ...types.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msgs...)
}

// Snapshot returns a copy of the messages.
func (t *Transcript) Snapshot() []types.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]types.Message(nil), t.messages...)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Reset clears the transcript back to its greeting.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seed()
}

// Session owns one transcript and the credential used for its turns.
// At most one run executes per session at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	transcript *Transcript
	running    sync.Mutex

	mu       sync.RWMutex
	apiKey   string
	lastUsed time.Time
}

// NewSession creates a session with a fresh transcript.
func NewSession(greeting string) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		transcript: NewTranscript(greeting),
		lastUsed:   now,
	}
}

// Transcript returns the session's transcript.
func (s *Session) Transcript() *Transcript { return s.transcript }

// SetAPIKey stores a per-session LLM credential. Blank clears it.
func (s *Session) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = strings.TrimSpace(key)
}

// APIKey returns the per-session credential, if any.
func (s *Session) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey
}

// HasAPIKey reports whether a per-session credential is set.
func (s *Session) HasAPIKey() bool { return s.APIKey() != "" }

// LastUsed returns when the session last started a turn.
func (s *Session) LastUsed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

// Reset clears the transcript back to its greeting. A session with a turn
// in flight yields ErrSessionBusy.
func (s *Session) Reset() error {
	if !s.running.TryLock() {
		return types.NewError(types.ErrSessionBusy, "a turn is already running for this session")
	}
	defer s.running.Unlock()
	s.transcript.Reset()
	return nil
}

// Busy reports whether a turn is running.
func (s *Session) Busy() bool {
	if s.running.TryLock() {
		s.running.Unlock()
		return false
	}
	return true
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// SessionStore keeps independent sessions in memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	greeting string
}

// NewSessionStore creates an empty store whose sessions open with greeting.
func NewSessionStore(greeting string) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		greeting: greeting,
	}
}

// Create opens a new session, optionally with its own API key.
func (s *SessionStore) Create(apiKey string) *Session {
	sess := NewSession(s.greeting)
	sess.SetAPIKey(apiKey)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session or ErrSessionNotFound.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, types.NewError(types.ErrSessionNotFound, "session not found: "+id)
	}
	return sess, nil
}

// Delete removes the session; unknown IDs yield ErrSessionNotFound.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return types.NewError(types.ErrSessionNotFound, "session not found: "+id)
	}
	delete(s.sessions, id)
	return nil
}

// List returns sessions ordered by creation time.
func (s *SessionStore) List() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune removes sessions idle for longer than ttl and returns how many.
// Sessions with a turn in flight are kept.
func (s *SessionStore) Prune(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.LastUsed().Before(cutoff) && !sess.Busy() {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

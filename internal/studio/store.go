package studio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store keeps the live sessions of one process. Sessions are not persisted.
type Store struct {
	editor  Editor
	opts    Options
	idleTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a registry whose sessions share editor and opts.
// Sessions idle for longer than idleTTL are removed by Sweep; zero disables
// eviction.
func NewStore(editor Editor, opts Options, idleTTL time.Duration) *Store {
	return &Store{
		editor:   editor,
		opts:     opts.withDefaults(),
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new empty session with a random UUID.
func (st *Store) Create() *Session {
	s := NewSession(uuid.NewString(), st.editor, st.opts)
	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	log.Debug().Str("session_id", s.id).Msg("Session created")
	return s
}

// Get looks up a session by id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return s, nil
}

// Delete drops a session, cancelling its in-flight work.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.close()
		log.Debug().Str("session_id", id).Msg("Session deleted")
	}
	return ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle past the TTL. Sessions with a generation in
// flight are kept. It returns the number removed.
func (st *Store) Sweep() int {
	if st.idleTTL <= 0 {
		return 0
	}
	cutoff := st.opts.Now().Add(-st.idleTTL)

	st.mu.Lock()
	var stale []*Session
	for id, s := range st.sessions {
		snap := s.Snapshot()
		if snap.Status == StatusProcessing || !snap.UpdatedAt.Before(cutoff) {
			continue
		}
		stale = append(stale, s)
		delete(st.sessions, id)
	}
	st.mu.Unlock()

	for _, s := range stale {
		s.close()
	}
	if len(stale) > 0 {
		log.Info().Int("evicted", len(stale)).Int("remaining", st.Len()).Msg("Evicted idle sessions")
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || st.idleTTL <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Close drops every session.
func (st *Store) Close() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}

package studio

import "github.com/rs/zerolog/log"

// eventBuffer is the per-subscriber backlog. Slow subscribers miss
// intermediate events but always see a later snapshot.
const eventBuffer = 16

// Event is published on every state transition.
type Event struct {
	Type     string   `json:"type"`
	Snapshot Snapshot `json:"snapshot"`
}

// Subscribe returns a channel of state events and a function that ends the
// subscription. The channel is closed when the session is dropped from its
// store or the subscription ends.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, eventBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	ch <- Event{Type: "state", Snapshot: s.snapshotLocked()}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	evt := Event{Type: "state", Snapshot: s.snapshotLocked()}
	for ch := range s.subs {
		select {
		case ch <- evt:
		default:
			log.Debug().Str("session_id", s.id).Msg("Dropping event for slow subscriber")
		}
	}
}

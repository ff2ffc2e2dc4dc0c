// Package memory provides an in-memory response store used for tests and
// ephemeral environments.
package memory

import (
	"context"
	"sync"

	"surveycore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.ResponseStore = (*Store)(nil)

type answerKey struct {
	participantID string
	pairID        int
}

// Store keeps responses in append order behind a mutex.
type Store struct {
	mu        sync.RWMutex
	responses []domain.Response
	seen      map[answerKey]struct{}
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{seen: make(map[answerKey]struct{})}
}

// Append records one response, rejecting duplicate (participant, pair) keys.
func (s *Store) Append(_ context.Context, r domain.Response) error {
	key := answerKey{participantID: r.Participant.ID, pairID: r.PairID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[key]; dup {
		return domain.DuplicateResponseError{ParticipantID: r.Participant.ID, PairID: r.PairID}
	}
	s.responses = append(s.responses, r)
	s.seen[key] = struct{}{}
	return nil
}

// ListByParticipant returns the participant's responses in append order.
func (s *Store) ListByParticipant(_ context.Context, participantID string) ([]domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Response
	for _, r := range s.responses {
		if r.Participant.ID == participantID {
			out = append(out, r)
		}
	}
	return out, nil
}

// List returns every recorded response in append order.
func (s *Store) List(_ context.Context) ([]domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Response, len(s.responses))
	copy(out, s.responses)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

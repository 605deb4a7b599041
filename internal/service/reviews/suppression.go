package reviews

import (
	"context"
	"sync"
)

// SuppressionStore remembers which obligations a user dismissed during a session.
type SuppressionStore interface {
	Suppress(ctx context.Context, sessionID, userID, planID string) error
	Suppressed(ctx context.Context, sessionID, userID string) (map[string]struct{}, error)
	EndSession(ctx context.Context, sessionID string) error
}

type MemorySuppressionStore struct {
	mu       sync.Mutex
	sessions map[string]map[string]map[string]struct{}
}

func NewMemorySuppressionStore() *MemorySuppressionStore {
	return &MemorySuppressionStore{sessions: map[string]map[string]map[string]struct{}{}}
}

func (s *MemorySuppressionStore) Suppress(_ context.Context, sessionID, userID, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, ok := s.sessions[sessionID]
	if !ok {
		users = map[string]map[string]struct{}{}
		s.sessions[sessionID] = users
	}
	plans, ok := users[userID]
	if !ok {
		plans = map[string]struct{}{}
		users[userID] = plans
	}
	plans[planID] = struct{}{}
	return nil
}

func (s *MemorySuppressionStore) Suppressed(_ context.Context, sessionID, userID string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]struct{}{}
	for planID := range s.sessions[sessionID][userID] {
		out[planID] = struct{}{}
	}
	return out, nil
}

func (s *MemorySuppressionStore) EndSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

var _ SuppressionStore = (*MemorySuppressionStore)(nil)

package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore mirrors RedisStore semantics for tests and local development,
// including TTL expiry checked lazily on access.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memorySession
}

type memorySession struct {
	state     State
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memorySession),
	}
}

// SetClock replaces the time source, for expiry tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// live returns the session if present and unexpired. Callers hold s.mu.
func (s *MemoryStore) live(callID string) (*memorySession, bool) {
	ms, ok := s.sessions[callID]
	if !ok {
		return nil, false
	}
	if s.now().After(ms.expiresAt) {
		delete(s.sessions, callID)
		return nil, false
	}
	return ms, true
}

func (s *MemoryStore) Create(ctx context.Context, st State) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(st.CallID); ok {
		return ErrExists
	}
	st.TurnCount = 0
	st.Turns = nil
	st.SilenceCount = 0
	st.ExitReason = ""
	s.sessions[st.CallID] = &memorySession{state: st, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, callID string) (State, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.live(callID)
	if !ok {
		return State{}, ErrNotFound
	}
	out := ms.state
	out.Turns = append([]Turn(nil), ms.state.Turns...)
	return out, nil
}

func (s *MemoryStore) AppendTurn(ctx context.Context, callID string, t Turn) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.live(callID)
	if !ok {
		return 0, ErrNotFound
	}
	if ms.state.TurnCount >= ms.state.MaxTurns {
		return 0, ErrLimitReached
	}
	ms.state.Turns = append(ms.state.Turns, t)
	ms.state.TurnCount++
	ms.state.SilenceCount = 0
	ms.expiresAt = s.now().Add(s.ttl)
	return ms.state.TurnCount, nil
}

func (s *MemoryStore) SetLanguage(ctx context.Context, callID, lang string, lock bool) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.live(callID)
	if !ok {
		return false, ErrNotFound
	}
	if ms.state.LanguageLocked {
		return false, nil
	}
	ms.state.DetectedLanguage = lang
	ms.state.SpeakingLanguage = lang
	if lock {
		ms.state.LanguageLocked = true
	}
	ms.expiresAt = s.now().Add(s.ttl)
	return true, nil
}

func (s *MemoryStore) RecordSilence(ctx context.Context, callID string) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.live(callID)
	if !ok {
		return 0, ErrNotFound
	}
	ms.state.SilenceCount++
	ms.expiresAt = s.now().Add(s.ttl)
	return ms.state.SilenceCount, nil
}

func (s *MemoryStore) Finish(ctx context.Context, callID string, reason ExitReason) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.live(callID)
	if !ok {
		return ErrNotFound
	}
	ms.state.ExitReason = reason
	ms.expiresAt = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Expire(ctx context.Context, callID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callID)
	return nil
}

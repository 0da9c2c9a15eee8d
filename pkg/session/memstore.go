package session

import (
	"context"
	"sync"
)

// MemStore is the in-process session store. Records survive only as long
// as the process; suitable for development and the one-shot CLI.
type MemStore struct {
	mu           sync.RWMutex
	sessions     map[string]Memory
	historyLimit int
}

// NewMemStore creates an in-process store keeping at most historyLimit
// turns per session (0 means DefaultHistoryLimit).
func NewMemStore(historyLimit int) *MemStore {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &MemStore{
		sessions:     make(map[string]Memory),
		historyLimit: historyLimit,
	}
}

// Get returns a copy of the session's memory, trimmed to the history
// limit. Unseen sessions get an empty memory and no record is created.
func (s *MemStore) Get(_ context.Context, sessionID string) Memory {
	s.mu.RLock()
	m, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Memory{}
	}
	out := copyMemory(m)
	out.History = trimHistory(out.History, s.historyLimit)
	return out
}

// Update replaces the session's record. The stored history is trimmed so
// the bound holds no matter what the caller accumulated.
func (s *MemStore) Update(_ context.Context, sessionID string, m Memory) bool {
	stored := copyMemory(m)
	stored.History = trimHistory(stored.History, s.historyLimit)
	s.mu.Lock()
	s.sessions[sessionID] = stored
	s.mu.Unlock()
	return true
}

// Clear removes the session's record. Clearing an unseen session succeeds.
func (s *MemStore) Clear(_ context.Context, sessionID string) bool {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return true
}

// Len reports the number of stored sessions.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }

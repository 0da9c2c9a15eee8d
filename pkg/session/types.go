// Package session provides per-session conversation memory: a bounded
// history of turns plus a single-slot snapshot of the last completed
// analysis. Stores never surface read errors to callers; a session that
// cannot be loaded behaves like a fresh one.
package session

import (
	"context"

	"github.com/fraud165/triage/pkg/oracle"
)

// DefaultHistoryLimit is the number of turns kept per session when the
// store is not told otherwise.
const DefaultHistoryLimit = 5

// LastResult is the single-slot memory written after a completed
// describe-event turn.
type LastResult struct {
	ScamType     string `json:"lastScamType"`
	EventSummary string `json:"lastEventSummary"`
	Response     string `json:"lastResponse"`
}

// Memory is one session's full record. History is chronological; the
// oldest turns are discarded first when the limit is exceeded.
type Memory struct {
	History []oracle.Turn `json:"history"`
	Last    *LastResult   `json:"memory,omitempty"`
}

// Append adds a turn, dropping the oldest entries beyond limit.
func (m *Memory) Append(turn oracle.Turn, limit int) {
	m.History = append(m.History, turn)
	m.History = trimHistory(m.History, limit)
}

// Store is the session memory boundary.
//
// Get returns the existing memory or an empty one, with history already
// trimmed; it never fails the caller. Update replaces the whole record for
// one session and reports success. Clear removes the record; clearing an
// unseen session is success and creates nothing.
type Store interface {
	Get(ctx context.Context, sessionID string) Memory
	Update(ctx context.Context, sessionID string, m Memory) bool
	Clear(ctx context.Context, sessionID string) bool
	Close() error
}

func trimHistory(history []oracle.Turn, limit int) []oracle.Turn {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}

func copyMemory(m Memory) Memory {
	out := Memory{}
	if len(m.History) > 0 {
		out.History = make([]oracle.Turn, len(m.History))
		copy(out.History, m.History)
	}
	if m.Last != nil {
		last := *m.Last
		out.Last = &last
	}
	return out
}

package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fraud165/triage/pkg/oracle"
)

func userTurn(s string) oracle.Turn {
	return oracle.Turn{Role: oracle.RoleUser, Content: s}
}

func TestMemStoreGetUnseenIsEmpty(t *testing.T) {
	s := NewMemStore(5)
	m := s.Get(context.Background(), "never-seen")
	if len(m.History) != 0 || m.Last != nil {
		t.Errorf("unseen session should be empty, got %+v", m)
	}
	if s.Len() != 0 {
		t.Error("Get must not create a record")
	}
}

func TestMemStoreHistoryBoundAndOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(5)

	m := Memory{}
	for i := 0; i < 12; i++ {
		m.Append(userTurn(fmt.Sprintf("turn-%d", i)), 5)
		if !s.Update(ctx, "sess", m) {
			t.Fatal("Update failed")
		}
	}

	got := s.Get(ctx, "sess")
	if len(got.History) != 5 {
		t.Fatalf("history length = %d, want 5", len(got.History))
	}
	// Most recent kept, chronological order, oldest truncated first.
	for i, turn := range got.History {
		want := fmt.Sprintf("turn-%d", 7+i)
		if turn.Content != want {
			t.Errorf("history[%d] = %q, want %q", i, turn.Content, want)
		}
	}
}

func TestMemStoreUpdateStoresLastResult(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(5)

	m := Memory{Last: &LastResult{ScamType: "假投資詐騙", EventSummary: "投資群組", Response: "回覆"}}
	s.Update(ctx, "a", m)

	got := s.Get(ctx, "a")
	if got.Last == nil || got.Last.ScamType != "假投資詐騙" {
		t.Errorf("last result not persisted: %+v", got.Last)
	}

	// Mutating the returned copy must not leak into the store.
	got.Last.ScamType = "mutated"
	again := s.Get(ctx, "a")
	if again.Last.ScamType != "假投資詐騙" {
		t.Error("Get must return an independent copy")
	}
}

func TestMemStoreClearUnseenSucceeds(t *testing.T) {
	s := NewMemStore(5)
	if !s.Clear(context.Background(), "ghost") {
		t.Error("clearing an unseen session must succeed")
	}
	if s.Len() != 0 {
		t.Error("Clear must not create a record")
	}
}

func TestMemStoreClearRemovesRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(5)
	s.Update(ctx, "a", Memory{Last: &LastResult{ScamType: "x"}})
	if !s.Clear(ctx, "a") {
		t.Fatal("Clear failed")
	}
	if got := s.Get(ctx, "a"); got.Last != nil {
		t.Error("record should be gone after Clear")
	}
}

func TestMemStoreConcurrentSessionsIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore(5)
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("sess-%d", id)
			for j := 0; j < 50; j++ {
				m := s.Get(ctx, key)
				m.Append(userTurn(fmt.Sprintf("%d-%d", id, j)), 5)
				s.Update(ctx, key, m)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		m := s.Get(ctx, fmt.Sprintf("sess-%d", i))
		if len(m.History) != 5 {
			t.Errorf("sess-%d history = %d, want 5", i, len(m.History))
		}
	}
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()
	var counter int
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("same-key")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100 (lost update)", counter)
	}
	km.mu.Lock()
	if len(km.locks) != 0 {
		t.Errorf("idle lock entries leaked: %d", len(km.locks))
	}
	km.mu.Unlock()
}

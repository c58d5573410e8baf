package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAppendTurn_ImplicitCreate(t *testing.T) {
	s := NewStore()
	s.AppendTurn("fresh", "user", "hello")

	turns := s.History("fresh")
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].Role != "user" || turns[0].Content != "hello" {
		t.Errorf("unexpected turn %+v", turns[0])
	}
}

func TestReads_UnknownIDReturnEmpty(t *testing.T) {
	s := NewStore()

	if turns := s.History("nobody"); len(turns) != 0 {
		t.Errorf("expected empty history, got %d turns", len(turns))
	}
	if files := s.Files("nobody"); len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}
	if phase := s.Phase("nobody"); phase != "" {
		t.Errorf("expected empty phase, got %q", phase)
	}
	// Read-style operations must not create the session.
	if s.Len() != 0 {
		t.Errorf("reads created sessions: %d live", s.Len())
	}
}

func TestSessionIsolation(t *testing.T) {
	s := NewStore()

	s.AppendTurn("a", "user", "question from a")
	s.RecordUpload("a", "a.txt")
	s.SetPhase("a", "design")

	s.AppendTurn("b", "user", "question from b")

	if len(s.History("b")) != 1 {
		t.Errorf("session b history polluted: %v", s.History("b"))
	}
	if len(s.Files("b")) != 0 {
		t.Errorf("session b files polluted: %v", s.Files("b"))
	}
	if s.Phase("b") != "" {
		t.Errorf("session b phase polluted: %q", s.Phase("b"))
	}

	s.Clear("a")
	if len(s.History("b")) != 1 {
		t.Errorf("clearing a destroyed b's history")
	}
	if len(s.History("a")) != 0 {
		t.Errorf("cleared session still has history")
	}
}

func TestRecent_TruncatesWindow(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		s.AppendTurn("x", "user", fmt.Sprintf("q%d", i))
	}

	recent := s.Recent("x", 6)
	if len(recent) != 6 {
		t.Fatalf("expected 6 turns, got %d", len(recent))
	}
	if recent[0].Content != "q4" || recent[5].Content != "q9" {
		t.Errorf("wrong window: first=%q last=%q", recent[0].Content, recent[5].Content)
	}

	// Full history remains stored verbatim.
	if len(s.History("x")) != 10 {
		t.Errorf("truncation leaked into storage: %d turns", len(s.History("x")))
	}
}

func TestSweep_RemovesAgedSessions(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	s.AppendTurn("old", "user", "hi")

	// One second passes; sweep with maxAge=0 removes everything older than now.
	now = now.Add(time.Second)
	removed := s.Sweep(0)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if len(s.History("old")) != 0 {
		t.Errorf("swept session still readable")
	}
}

func TestSweep_KeepsFreshSessions(t *testing.T) {
	s := NewStore()
	s.AppendTurn("fresh", "user", "hi")

	if removed := s.Sweep(time.Hour); removed != 0 {
		t.Errorf("fresh session swept: %d removed", removed)
	}
	if len(s.History("fresh")) != 1 {
		t.Errorf("fresh session lost its history")
	}
}

func TestConcurrentAccessAcrossSessions(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("sess-%d", n)
			for j := 0; j < 50; j++ {
				s.AppendTurn(id, "user", "q")
				s.Touch(id)
				s.History(id)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("sess-%d", i)
		if got := len(s.History(id)); got != 50 {
			t.Errorf("%s: expected 50 turns, got %d", id, got)
		}
	}
}

func TestNewID_Unique(t *testing.T) {
	if NewID() == NewID() {
		t.Error("generated session IDs must be unique")
	}
}

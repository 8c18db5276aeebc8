package workflow

import "sync"

// CaseStore holds the orchestrator's view of the authoritative case record.
// It is an explicit, injectable object rather than an ambient query-cache
// singleton, so subscribers see every server re-read and nothing else.
type CaseStore struct {
	mu   sync.RWMutex
	c    *Case
	subs map[int]func(*Case)
	next int
}

func NewCaseStore(initial *Case) *CaseStore {
	return &CaseStore{
		c:    initial,
		subs: make(map[int]func(*Case)),
	}
}

// Get returns the current case snapshot.
func (s *CaseStore) Get() *Case {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c
}

// Set replaces the snapshot and notifies subscribers. The server-reported
// value always wins over any client-held previous value.
func (s *CaseStore) Set(c *Case) {
	s.mu.Lock()
	s.c = c
	subs := make([]func(*Case), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(c)
	}
}

// Subscribe registers a listener for snapshot replacements and returns an
// unsubscribe function.
func (s *CaseStore) Subscribe(fn func(*Case)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

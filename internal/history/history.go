// Package history is the undo stack of a review session.
package history

import (
	"sync"

	"github.com/joescharf/swipe/internal/models"
)

// Stack is a last-in first-out record of decisions. It never looks inside the
// entries it holds.
type Stack struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
}

// New creates an empty stack.
func New() *Stack {
	return &Stack{}
}

// Push records an entry on top of the stack.
func (s *Stack) Push(e models.HistoryEntry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

// PopLast removes and returns the newest entry. It returns false when there is
// nothing to undo.
func (s *Stack) PopLast() (models.HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return models.HistoryEntry{}, false
	}
	last := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return last, true
}

// IsEmpty reports whether there is nothing to undo.
func (s *Stack) IsEmpty() bool {
	return s.Len() == 0
}

// Len returns the number of entries.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops every entry.
func (s *Stack) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}

// Entries returns a copy of the entries, oldest first.
func (s *Stack) Entries() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.HistoryEntry, len(s.entries))
	copy(cp, s.entries)
	return cp
}

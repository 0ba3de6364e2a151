// Package queue holds the ordered posts of a review session and the cursor
// pointing at the one on top.
package queue

import (
	"sync"

	"github.com/joescharf/swipe/internal/models"
)

// Queue is an ordered, cursor-addressed list of posts. Items are never removed;
// exhaustion is the cursor reaching the end, so moving the cursor back always
// re-reveals the same post. The cursor stays within [0, Len()].
type Queue struct {
	mu     sync.RWMutex
	items  []*models.Post
	cursor int
}

// New creates a queue over items in review order.
func New(items []*models.Post) *Queue {
	q := &Queue{}
	q.Replace(items)
	return q
}

// Replace swaps in a fresh sequence and resets the cursor to the start.
func (q *Queue) Replace(items []*models.Post) {
	cp := make([]*models.Post, len(items))
	copy(cp, items)

	q.mu.Lock()
	q.items = cp
	q.cursor = 0
	q.mu.Unlock()
}

// Current returns the post on top, or nil when the queue is exhausted.
func (q *Queue) Current() *models.Post {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.at(q.cursor)
}

// PeekNext returns the post under the current one, or nil.
func (q *Queue) PeekNext() *models.Post {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.at(q.cursor + 1)
}

// Advance moves past the current post. It saturates at the end.
func (q *Queue) Advance() {
	q.mu.Lock()
	if q.cursor < len(q.items) {
		q.cursor++
	}
	q.mu.Unlock()
}

// Retreat moves back one post. It saturates at zero.
func (q *Queue) Retreat() {
	q.mu.Lock()
	if q.cursor > 0 {
		q.cursor--
	}
	q.mu.Unlock()
}

// SetCursor moves the cursor to n, clamped to [0, Len()].
func (q *Queue) SetCursor(n int) {
	q.mu.Lock()
	q.cursor = max(0, min(n, len(q.items)))
	q.mu.Unlock()
}

// Cursor returns the index of the current post.
func (q *Queue) Cursor() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.cursor
}

// Len returns the total number of posts in the session.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// Remaining returns how many posts are left, including the current one.
func (q *Queue) Remaining() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items) - q.cursor
}

// IsExhausted reports whether every post has been reviewed.
func (q *Queue) IsExhausted() bool {
	return q.Remaining() == 0
}

// Items returns a copy of the posts in review order.
func (q *Queue) Items() []*models.Post {
	q.mu.RLock()
	defer q.mu.RUnlock()
	cp := make([]*models.Post, len(q.items))
	copy(cp, q.items)
	return cp
}

func (q *Queue) at(i int) *models.Post {
	if i < 0 || i >= len(q.items) {
		return nil
	}
	return q.items[i]
}

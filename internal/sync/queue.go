package sync

import (
	syncpkg "sync"

	"github.com/linkstash/linkstash/internal/store"
)

// Queue is a goroutine-safe FIFO queue of pending remote mutations.
//
// The queue is in-memory only: mutations queued when the process exits
// are lost and never retried.
type Queue struct {
	mu    syncpkg.Mutex
	items []store.Mutation
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a mutation to the tail of the queue.
func (q *Queue) Push(m store.Mutation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, m)
}

// Pop removes and returns the mutation at the head of the queue.
// The second return is false when the queue is empty.
func (q *Queue) Pop() (store.Mutation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return store.Mutation{}, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}

// Len returns the number of queued mutations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops all queued mutations.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

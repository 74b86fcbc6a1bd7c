// Package keyqueue provides the output key-event queue that receives key
// indices decoded by macro playback.
//
// The queue is a bounded FIFO ring buffer. Pushes never block: when the
// buffer is full the new key is dropped and counted, the same way the
// firmware's macro buffer behaves.
package keyqueue

import "sync"

// DefaultCapacity holds a full slot's worth of events with room to spare.
const DefaultCapacity = 256

// Queue is a bounded FIFO of key indices. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	buf     []uint8
	head    int
	size    int
	dropped uint64
	pushed  uint64
}

// New creates a queue holding at most capacity keys.
// A capacity below 1 uses DefaultCapacity.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Queue{buf: make([]uint8, capacity)}
}

// Push appends key. It reports false if the queue was full and the key
// was dropped.
func (q *Queue) Push(key uint8) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.buf) {
		q.dropped++
		return false
	}
	q.buf[(q.head+q.size)%len(q.buf)] = key
	q.size++
	q.pushed++
	return true
}

// Pop removes and returns the oldest key.
func (q *Queue) Pop() (uint8, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return 0, false
	}
	key := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return key, true
}

// Drain removes and returns all queued keys in order.
func (q *Queue) Drain() []uint8 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return nil
	}
	out := make([]uint8, q.size)
	for i := range out {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.head = 0
	q.size = 0
	return out
}

// Len returns the number of queued keys.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return len(q.buf)
}

// Stats reports lifetime counters.
type Stats struct {
	Pushed  uint64
	Dropped uint64
	Pending int
}

// Stats returns the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{Pushed: q.pushed, Dropped: q.dropped, Pending: q.size}
}

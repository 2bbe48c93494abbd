package mcp

import (
	"sync"
	"time"
)

// workItem is a decoded message paired with the outbox its response goes
// to. Items built by the reader for undecodable input carry a ready reply
// instead of a message.
type workItem struct {
	msg      message
	reply    []byte
	out      chan<- []byte
	received time.Time
}

// queue is an unbounded FIFO shared by one producer and many consumers.
// push never blocks, so the reader is never held up by slow handlers.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []workItem
	head   int
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends item and reports the resulting depth. Pushing to a closed
// queue drops the item and returns -1.
func (q *queue) push(item workItem) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return -1
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return len(q.items) - q.head
}

// pop blocks until an item is available or the queue is closed and
// drained.
func (q *queue) pop() (workItem, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head == len(q.items) && !q.closed {
		q.cond.Wait()
	}
	if q.head == len(q.items) {
		return workItem{}, 0, false
	}
	item := q.items[q.head]
	q.items[q.head] = workItem{}
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return item, len(q.items) - q.head, true
}

// close stops accepting items. Queued items are still handed out.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

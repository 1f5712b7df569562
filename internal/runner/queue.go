package runner

import (
	"sync"
	"sync/atomic"
)

// WorkUnit is one request to perform. It carries only its sequence number;
// the target is shared by the run.
type WorkUnit struct {
	Seq int64
}

// WorkQueue is a fixed backlog of work units numbered 1 through n. Units are
// all identical, so the queue is a single atomic cursor rather than a
// materialized list, and Dequeue is lock-free.
type WorkQueue struct {
	total    int64
	next     atomic.Int64 // sequence numbers handed out or abandoned so far
	taken    atomic.Int64
	inFlight sync.WaitGroup
}

// NewWorkQueue returns a queue holding exactly n units.
func NewWorkQueue(n int) *WorkQueue {
	if n < 0 {
		n = 0
	}
	return &WorkQueue{total: int64(n)}
}

// TryDequeue hands out the next unit without blocking. The second result is
// false once the queue is empty. Every unit handed out must be released with
// Done.
func (q *WorkQueue) TryDequeue() (WorkUnit, bool) {
	// Register before claiming so AwaitDrained never observes a unit that
	// has been claimed but is not yet counted.
	q.inFlight.Add(1)
	for {
		cur := q.next.Load()
		if cur >= q.total {
			q.inFlight.Done()
			return WorkUnit{}, false
		}
		if q.next.CompareAndSwap(cur, cur+1) {
			q.taken.Add(1)
			return WorkUnit{Seq: cur + 1}, true
		}
	}
}

// Done marks a dequeued unit as finished and recorded.
func (q *WorkQueue) Done() {
	q.inFlight.Done()
}

// IsDrained reports whether every unit has been handed out.
func (q *WorkQueue) IsDrained() bool {
	return q.next.Load() >= q.total
}

// AwaitDrained blocks until the queue is empty and every dequeued unit has
// been released with Done. Call it only after the consumers have stopped
// dequeuing.
func (q *WorkQueue) AwaitDrained() {
	q.inFlight.Wait()
}

// Abandon empties the queue and returns how many units were never handed
// out. The run driver uses it after cancellation.
func (q *WorkQueue) Abandon() int {
	return int(q.total - q.next.Swap(q.total))
}

// Len returns the number of units still waiting.
func (q *WorkQueue) Len() int { return int(q.total - q.next.Load()) }

// Total returns the number of units the queue was filled with.
func (q *WorkQueue) Total() int { return int(q.total) }

// Taken returns the number of units handed out so far.
func (q *WorkQueue) Taken() int64 { return q.taken.Load() }

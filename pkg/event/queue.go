package event

import "sync"

// Queue runs posted functions one at a time, in posting order, on a
// background goroutine. A goroutine is started when the queue becomes
// non-empty and exits once it has drained it.
//
// Post never blocks, so it may be called while holding a lock that the
// posted functions themselves acquire. The zero value is ready to use.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	active  bool
}

// Post appends fn to the queue.
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, fn)
	if !q.active {
		q.active = true
		go q.drain()
	}
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.active = false
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		fn()
	}
}

// Wait blocks until every function posted before the call has run.
// Calling Wait from a posted function deadlocks.
func (q *Queue) Wait() {
	done := make(chan struct{})
	q.Post(func() { close(done) })
	<-done
}

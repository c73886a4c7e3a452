// Package event provides a small typed observer registry.
//
// A [Signal] carries one payload type. Components expose one signal per
// event name (progress, update, stopped, ...) so subscribers get typed
// payloads without a shared event interface:
//
//	var progress event.Signal[Progress]
//	unsubscribe := progress.Subscribe(func(p Progress) { ... })
//	defer unsubscribe()
//	progress.Emit(Progress{Iterations: 100})
//
// Handlers run synchronously on the emitting goroutine, in subscription
// order. Emit never holds the registry lock while a handler runs, so a
// handler may subscribe, unsubscribe or emit again.
//
// The zero value is ready to use and safe for concurrent use.
package event

import "sync"

// Signal is a typed observer registry for a single event.
type Signal[T any] struct {
	mu       sync.RWMutex
	next     int
	order    []int
	handlers map[int]func(T)
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (s *Signal[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[int]func(T))
	}
	id := s.next
	s.next++
	s.handlers[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *Signal[T]) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Emit delivers v to every handler subscribed at the time of the call.
func (s *Signal[T]) Emit(v T) {
	s.mu.RLock()
	fns := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.handlers[id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of subscribed handlers.
func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Clear removes every handler.
func (s *Signal[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = nil
	s.order = nil
}

package chat

import "sync"

// Emitter is an explicit event source. Listeners are invoked in subscription order
// on the goroutine that emits.
type Emitter[T any] struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(T)
	order     []int
}

// Subscribe registers fn and returns its disposer. Calling the disposer more than once is a no-op.
func (e *Emitter[T]) Subscribe(fn func(T)) (dispose func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[int]func(T))
	}
	id := e.next
	e.next++
	e.listeners[id] = fn
	e.order = append(e.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

// Emit delivers v to every current listener.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	fns := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		fns = append(fns, e.listeners[id])
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Close drops every listener.
func (e *Emitter[T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = nil
	e.order = nil
}

// Len returns the number of subscribed listeners.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}

func (e *Emitter[T]) remove(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}

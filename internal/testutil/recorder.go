package testutil

import "sync"

// Recorder collects values delivered from any goroutine, typically change
// events handed to a callback.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder[E any] struct {
	mu     sync.Mutex
	events []E
}

// NewRecorder creates an empty recorder.
func NewRecorder[E any]() *Recorder[E] {
	return &Recorder[E]{}
}

// Record appends one value. Its signature fits callback setters directly.
func (r *Recorder[E]) Record(e E) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded, in order.
func (r *Recorder[E]) Events() []E {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]E, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded values.
func (r *Recorder[E]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset forgets everything recorded.
func (r *Recorder[E]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Since returns the values recorded after the first n.
func (r *Recorder[E]) Since(n int) []E {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n >= len(r.events) {
		return nil
	}
	out := make([]E, len(r.events)-n)
	copy(out, r.events[n:])
	return out
}

// Package state is a path-addressed application state store. UI surfaces
// and the engine share one tree of values ("picker.active",
// "session.open", "selection.count") and subscribe to the paths they
// render. Writes notify path subscribers unless flagged silent.
package state

import (
	"sync"
)

// Listener observes value changes at one path.
type Listener func(value any)

// Store holds the state tree. Safe for concurrent use; listeners run
// synchronously under the caller's goroutine, outside the lock.
type Store struct {
	mu        sync.RWMutex
	values    map[string]any
	listeners map[string]map[int]Listener
	nextID    int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		values:    make(map[string]any),
		listeners: make(map[string]map[int]Listener),
	}
}

// Get returns the value at path, or nil when unset.
func (s *Store) Get(path string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[path]
}

// GetBool returns the value at path as a bool, false when unset or not a
// bool.
func (s *Store) GetBool(path string) bool {
	v, _ := s.Get(path).(bool)
	return v
}

// Set writes a value and notifies the path's subscribers. Writing an equal
// comparable value is a no-op. silent suppresses notification for writes
// that merely mirror state a subscriber already acted on.
func (s *Store) Set(path string, value any, silent bool) {
	s.mu.Lock()
	if prev, ok := s.values[path]; ok && equal(prev, value) {
		s.mu.Unlock()
		return
	}
	s.values[path] = value
	subs := s.subscribersLocked(path)
	s.mu.Unlock()

	if silent {
		return
	}
	for _, l := range subs {
		l(value)
	}
}

// Batch applies several writes and then notifies each touched path once,
// with its final value.
func (s *Store) Batch(values map[string]any, silent bool) {
	s.mu.Lock()
	type pending struct {
		subs  []Listener
		value any
	}
	var notify []pending
	for path, value := range values {
		if prev, ok := s.values[path]; ok && equal(prev, value) {
			continue
		}
		s.values[path] = value
		notify = append(notify, pending{subs: s.subscribersLocked(path), value: value})
	}
	s.mu.Unlock()

	if silent {
		return
	}
	for _, p := range notify {
		for _, l := range p.subs {
			l(p.value)
		}
	}
}

// Subscribe registers a listener for one path and returns an unsubscribe
// function.
func (s *Store) Subscribe(path string, l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners[path] == nil {
		s.listeners[path] = make(map[int]Listener)
	}
	id := s.nextID
	s.nextID++
	s.listeners[path][id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners[path], id)
	}
}

// Snapshot returns a copy of the whole tree.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Store) subscribersLocked(path string) []Listener {
	out := make([]Listener, 0, len(s.listeners[path]))
	ids := make([]int, 0, len(s.listeners[path]))
	for id := range s.listeners[path] {
		ids = append(ids, id)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	for _, id := range ids {
		out = append(out, s.listeners[path][id])
	}
	return out
}

// equal compares comparable values without panicking on uncomparable ones.
func equal(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

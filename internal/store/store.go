// Package store holds client-side cached copies of API resources.
//
// A Store caches one resource (a list or a single item) together with its
// loading and error state. Refetch replaces the value atomically. Only the
// newest refetch may land: a response that belongs to an older generation
// than the latest one issued is dropped.
//
// Writes go through Update or Set, which are meant to be called only by the
// mutation coordinator and the view that owns the store. Any number of
// readers may Subscribe.
package store

import (
	"context"
	"sync"

	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
)

// Fetcher loads the authoritative value of a resource.
type Fetcher[T any] func(ctx context.Context) envelope.Result[T]

// State is a snapshot of a Store.
type State[T any] struct {
	Value   T
	Present bool
	Loading bool
	Err     *envelope.Error
}

// Store caches one resource. The zero value is not usable; call New.
type Store[T any] struct {
	mu         sync.Mutex
	fetch      Fetcher[T]
	state      State[T]
	generation uint64

	pending   map[string]int
	outOfSync map[string]bool

	subs    map[int]func(State[T])
	nextSub int
}

// New creates an empty store backed by fetch.
func New[T any](fetch Fetcher[T]) *Store[T] {
	return &Store[T]{
		fetch:     fetch,
		pending:   make(map[string]int),
		outOfSync: make(map[string]bool),
		subs:      make(map[int]func(State[T])),
	}
}

// Snapshot returns the current state.
func (s *Store[T]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Value returns the cached value and whether one is present.
func (s *Store[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Value, s.state.Present
}

// Refetch loads the resource and replaces the cached value on success. On
// failure the previous value is kept and the error recorded. A successful
// refetch clears every out-of-sync marker. It returns the failure, if any,
// or nil when the response was superseded by a newer refetch.
func (s *Store[T]) Refetch(ctx context.Context) *envelope.Error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state.Loading = true
	s.notifyLocked()
	s.mu.Unlock()

	res := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}
	s.state.Loading = false
	if res.Err != nil {
		s.state.Err = res.Err
		s.notifyLocked()
		return res.Err
	}
	s.state.Value = res.Value
	s.state.Present = true
	s.state.Err = nil
	clear(s.outOfSync)
	s.notifyLocked()
	return nil
}

// Update applies fn to the cached value. It reports false and does nothing
// when no value has been loaded yet.
func (s *Store[T]) Update(fn func(T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Present {
		return false
	}
	s.state.Value = fn(s.state.Value)
	s.notifyLocked()
	return true
}

// Set replaces the cached value outright.
func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Value = v
	s.state.Present = true
	s.notifyLocked()
}

// Subscribe registers fn to be called with every new state. fn runs with
// the store locked and must not call back into the store.
func (s *Store[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// BeginWrite marks key as having a write in flight.
func (s *Store[T]) BeginWrite(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key]++
}

// Outcome is how a write for one key settled.
type Outcome int

const (
	// Synced means the server accepted the write.
	Synced Outcome = iota
	// Failed means the write was rejected; the local edit is kept.
	Failed
	// Stale means a newer write for the key was issued meanwhile, so this
	// response is ignored.
	Stale
)

// EndWrite settles one in-flight write for key. A failed write leaves key
// out of sync until the next successful Refetch or write.
func (s *Store[T]) EndWrite(key string, outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[key] > 1 {
		s.pending[key]--
	} else {
		delete(s.pending, key)
	}
	switch outcome {
	case Synced:
		delete(s.outOfSync, key)
	case Failed:
		s.outOfSync[key] = true
	}
	s.notifyLocked()
}

// Pending reports whether key has a write in flight.
func (s *Store[T]) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[key] > 0
}

// OutOfSync reports whether the last write for key failed.
func (s *Store[T]) OutOfSync(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outOfSync[key]
}

func (s *Store[T]) notifyLocked() {
	for _, fn := range s.subs {
		fn(s.state)
	}
}

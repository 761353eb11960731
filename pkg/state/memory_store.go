package state

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryOption configures a MemoryStore.
type MemoryOption[T any] func(*MemoryStore[T])

// WithMemoryClock overrides the clock used to stamp saved records.
func WithMemoryClock[T any](now func() time.Time) MemoryOption[T] {
	return func(s *MemoryStore[T]) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMemoryCopy copies snapshots on the way in and out so callers never
// share state with the store.
func WithMemoryCopy[T any](copyFn func(T) T) MemoryOption[T] {
	return func(s *MemoryStore[T]) {
		s.copy = copyFn
	}
}

// MemoryStore keeps option records in a map named by Ref.Identifier. The
// default store of a registry; records vanish with the process.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry[T]
	now     func() time.Time
	copy    func(T) T
}

type memoryEntry[T any] struct {
	value T
	meta  Meta
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore[T any](opts ...MemoryOption[T]) *MemoryStore[T] {
	s := &MemoryStore[T]{entries: map[string]memoryEntry[T]{}, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore[T]) Load(_ context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	name, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}
	s.mu.RLock()
	entry, found := s.entries[name]
	s.mu.RUnlock()
	if !found {
		return zero, Meta{}, false, nil
	}
	return s.copied(entry.value), entry.meta.Clone(), true, nil
}

func (s *MemoryStore[T]) Save(_ context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	name, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	entry := memoryEntry[T]{value: s.copied(snapshot), meta: Stamp(meta, s.now())}
	s.mu.Lock()
	s.entries[name] = entry
	s.mu.Unlock()
	return entry.meta.Clone(), nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, ref Ref) error {
	name, err := ref.Identifier()
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, name)
	s.mu.Unlock()
	return nil
}

// Names lists the stored record names, sorted.
func (s *MemoryStore[T]) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (s *MemoryStore[T]) copied(value T) T {
	if s.copy == nil {
		return value
	}
	return s.copy(value)
}

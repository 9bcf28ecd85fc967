// Package ordered provides a capacity-bounded, deduplicating collection that
// keeps the most recently inserted entry at the front.
package ordered

import "sync"

// KeyFunc returns the identity of an item. Two items with the same key are
// the same entry as far as the store is concerned.
type KeyFunc[T any] func(T) string

// Store is a most-recent-first sequence of unique-by-key items, holding at
// most Capacity entries.
type Store[T any] struct {
	mu       sync.Mutex
	key      KeyFunc[T]
	capacity int
	items    []T
}

// New creates an empty store. A non-positive capacity means unbounded.
func New[T any](capacity int, key KeyFunc[T]) *Store[T] {
	return &Store[T]{key: key, capacity: capacity}
}

// Capacity returns the maximum number of retained entries.
func (s *Store[T]) Capacity() int {
	return s.capacity
}

// Insert moves item to the front, replacing any entry with the same key and
// evicting entries that fall outside the capacity.
func (s *Store[T]) Insert(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(item)
	next := make([]T, 0, len(s.items)+1)
	next = append(next, item)
	for _, existing := range s.items {
		if s.key(existing) == k {
			continue
		}
		next = append(next, existing)
	}
	s.items = s.truncate(next)
}

// List returns a copy of the sequence, front to back.
func (s *Store[T]) List() []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of entries.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Replace swaps the whole sequence, typically with a persisted snapshot.
// The first occurrence of a key wins and the result is capped.
func (s *Store[T]) Replace(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.truncate(Dedup(items, s.key))
}

// Clear empties the store.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

func (s *Store[T]) truncate(items []T) []T {
	if s.capacity > 0 && len(items) > s.capacity {
		return items[:s.capacity]
	}
	return items
}

// Dedup keeps the first occurrence of every key, preserving order.
func Dedup[T any](items []T, key KeyFunc[T]) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Cap returns at most limit items from the front of items.
func Cap[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

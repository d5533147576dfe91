package taskstore

import (
	"iter"

	"github.com/drpcorg/taskstore/records"
)

// DefaultIndexThreshold is the record count at which an InnerStorage
// switches from the flat to the indexed representation.
const DefaultIndexThreshold = 1024

// InnerStorage holds every record of one task. While small it
// is a single flat map from full key to value; once the record count
// reaches the threshold it is rebuilt into a two-level map, outer keyed by
// each record's grouping index. The transition is monotonic: an indexed
// store never reverts to flat.
//
// InnerStorage is not safe for concurrent use on its own. Within a Storage
// it is mutated only through an acquired WriteGuard.
type InnerStorage[I comparable, K records.IndexedKey[I], V any] struct {
	flat      map[K]V
	indexed   map[I]map[K]V
	size      int
	threshold int
}

func NewInnerStorage[I comparable, K records.IndexedKey[I], V any]() *InnerStorage[I, K, V] {
	return &InnerStorage[I, K, V]{threshold: DefaultIndexThreshold}
}

func (s *InnerStorage[I, K, V]) Len() int {
	return s.size
}

func (s *InnerStorage[I, K, V]) IsIndexed() bool {
	return s.indexed != nil
}

// checkThreshold converts flat to indexed once the size crosses the
// threshold. It runs lazily, right before the next mutation, and preserves
// every record exactly once: grouping only depends on each key's pure
// Index derivation.
func (s *InnerStorage[I, K, V]) checkThreshold() {
	if s.indexed != nil {
		return
	}
	threshold := s.threshold
	if threshold == 0 {
		threshold = DefaultIndexThreshold
	}
	if len(s.flat) < threshold {
		return
	}
	indexed := make(map[I]map[K]V)
	for k, v := range s.flat {
		i := k.Index()
		m := indexed[i]
		if m == nil {
			m = make(map[K]V)
			indexed[i] = m
		}
		m[k] = v
	}
	s.indexed = indexed
	s.flat = nil
	IndexConversionCount.Inc()
}

// mutMap returns the map the key lives in, for mutation. Converts the
// representation first if the threshold was crossed.
func (s *InnerStorage[I, K, V]) mutMap(key K) map[K]V {
	s.checkThreshold()
	if s.indexed == nil {
		if s.flat == nil {
			s.flat = make(map[K]V)
		}
		return s.flat
	}
	i := key.Index()
	m := s.indexed[i]
	if m == nil {
		m = make(map[K]V)
		s.indexed[i] = m
	}
	return m
}

func (s *InnerStorage[I, K, V]) readMap(key K) map[K]V {
	if s.indexed == nil {
		return s.flat
	}
	return s.indexed[key.Index()]
}

// Add inserts the record only if the key is absent. Returns whether it was
// inserted.
func (s *InnerStorage[I, K, V]) Add(key K, value V) bool {
	m := s.mutMap(key)
	if _, ok := m[key]; ok {
		return false
	}
	m[key] = value
	s.size++
	return true
}

// Insert inserts or replaces, returning the previous value if any.
func (s *InnerStorage[I, K, V]) Insert(key K, value V) (prev V, replaced bool) {
	m := s.mutMap(key)
	prev, replaced = m[key]
	m[key] = value
	if !replaced {
		s.size++
	}
	return
}

// Remove removes and returns the previous value if present.
func (s *InnerStorage[I, K, V]) Remove(key K) (prev V, removed bool) {
	m := s.mutMap(key)
	prev, removed = m[key]
	if removed {
		delete(m, key)
		s.size--
		if s.indexed != nil && len(m) == 0 {
			delete(s.indexed, key.Index())
		}
	}
	return
}

func (s *InnerStorage[I, K, V]) Get(key K) (V, bool) {
	m := s.readMap(key)
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m[key]
	return v, ok
}

func (s *InnerStorage[I, K, V]) HasKey(key K) bool {
	_, ok := s.Get(key)
	return ok
}

// Update reads the current value, calls f exactly once to compute the new
// value or its absence, and applies the result: insert, replace or remove.
func (s *InnerStorage[I, K, V]) Update(key K, f func(old V, exists bool) (V, bool)) {
	m := s.mutMap(key)
	old, exists := m[key]
	value, keep := f(old, exists)
	switch {
	case keep:
		m[key] = value
		if !exists {
			s.size++
		}
	case exists:
		delete(m, key)
		s.size--
		if s.indexed != nil && len(m) == 0 {
			delete(s.indexed, key.Index())
		}
	}
}

// Iter yields the records grouped under the given index. While the store
// is still flat it yields every record; callers must not assume the
// grouping was applied and have to filter by key. The sequence is fresh on
// every call and only valid while no concurrent mutation happens.
func (s *InnerStorage[I, K, V]) Iter(index I) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if s.indexed == nil {
			for k, v := range s.flat {
				if !yield(k, v) {
					return
				}
			}
			return
		}
		for k, v := range s.indexed[index] {
			if !yield(k, v) {
				return
			}
		}
	}
}

// IterAll yields every record regardless of representation.
func (s *InnerStorage[I, K, V]) IterAll() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if s.indexed == nil {
			for k, v := range s.flat {
				if !yield(k, v) {
					return
				}
			}
			return
		}
		for _, m := range s.indexed {
			for k, v := range m {
				if !yield(k, v) {
					return
				}
			}
		}
	}
}

// Has reports whether the store currently holds exactly this key with
// exactly this value. Used for change detection without allocating when
// the values differ.
func Has[I comparable, K records.IndexedKey[I], V comparable](s *InnerStorage[I, K, V], key K, value V) bool {
	got, ok := s.Get(key)
	return ok && got == value
}

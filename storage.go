package taskstore

import (
	"iter"
	"sync"

	"github.com/drpcorg/taskstore/records"
	"github.com/drpcorg/taskstore/taskstore_errors"
	"github.com/drpcorg/taskstore/utils"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

type storageSlot[I comparable, K records.IndexedKey[I], V any] struct {
	mu    sync.Mutex
	store InnerStorage[I, K, V]
}

// Storage is the sharded global store: a concurrent mapping from task id
// to that task's record store. Slots are created lazily on first
// access and never destroyed implicitly; eviction is the caller's call.
// Concurrency comes from the underlying sharded map plus one mutex per
// task slot, so acquiring one task's guard never blocks on unrelated
// tasks.
type Storage[I comparable, K records.IndexedKey[I], V any] struct {
	id    string
	slots *xsync.MapOf[records.TaskID, *storageSlot[I, K, V]]
	log   utils.Logger
}

func NewStorage[I comparable, K records.IndexedKey[I], V any](log utils.Logger) *Storage[I, K, V] {
	return &Storage[I, K, V]{
		id:    uuid.NewString(),
		slots: xsync.NewMapOf[records.TaskID, *storageSlot[I, K, V]](),
		log:   log,
	}
}

// ID is a unique instance identifier, used to label diagnostics and
// metrics when several stores live in one process.
func (st *Storage[I, K, V]) ID() string {
	return st.id
}

func (st *Storage[I, K, V]) slot(task records.TaskID) *storageSlot[I, K, V] {
	s, loaded := st.slots.LoadOrCompute(task, func() *storageSlot[I, K, V] {
		return &storageSlot[I, K, V]{
			store: InnerStorage[I, K, V]{threshold: DefaultIndexThreshold},
		}
	})
	if !loaded {
		st.log.Debug("record store allocated", "store", st.id, "task", task)
	}
	return s
}

// AccessMut acquires exclusive mutation rights to one task's records,
// blocking until the current holder (if any) releases. The returned guard
// must be released on every exit path; defer guard.Release() right after
// acquisition, or use With.
func (st *Storage[I, K, V]) AccessMut(task records.TaskID) *WriteGuard[I, K, V] {
	s := st.slot(task)
	s.mu.Lock()
	return &WriteGuard[I, K, V]{task: task, slot: s, owns: true}
}

// AccessPairMut acquires guards for two tasks at once. Locks are taken in
// ascending task id order, so two threads requesting the same pair in
// opposite order cannot deadlock. When both ids are equal the second guard
// aliases the first: it reads and writes the same store and its Release is
// a no-op, so the single lock is taken and dropped exactly once.
func (st *Storage[I, K, V]) AccessPairMut(a, b records.TaskID) (*WriteGuard[I, K, V], *WriteGuard[I, K, V]) {
	if a == b {
		ga := st.AccessMut(a)
		return ga, &WriteGuard[I, K, V]{task: b, slot: ga.slot, owns: false}
	}
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	glo := st.AccessMut(lo)
	ghi := st.AccessMut(hi)
	if lo == a {
		return glo, ghi
	}
	return ghi, glo
}

// With runs f under the task's write guard and releases it on every exit
// path, including panics.
func (st *Storage[I, K, V]) With(task records.TaskID, f func(s *InnerStorage[I, K, V])) {
	guard := st.AccessMut(task)
	defer guard.Release()
	f(guard.inner())
}

// StorageStats is an advisory snapshot of the store, gathered slot by slot.
type StorageStats struct {
	Tasks        int
	Records      int
	IndexedTasks int
}

func (st *Storage[I, K, V]) Stats() StorageStats {
	var stats StorageStats
	st.slots.Range(func(_ records.TaskID, s *storageSlot[I, K, V]) bool {
		s.mu.Lock()
		stats.Tasks++
		stats.Records += s.store.Len()
		if s.store.IsIndexed() {
			stats.IndexedTasks++
		}
		s.mu.Unlock()
		return true
	})
	return stats
}

// WriteGuard grants exclusive access to one task's records.
// At most one owning guard exists per task at a time; all
// correctness-sensitive reads go through a guard. Using a guard after
// Release is an invariant violation and panics.
type WriteGuard[I comparable, K records.IndexedKey[I], V any] struct {
	task     records.TaskID
	slot     *storageSlot[I, K, V]
	owns     bool
	released bool
}

func (g *WriteGuard[I, K, V]) inner() *InnerStorage[I, K, V] {
	if g.released {
		panic(taskstore_errors.ErrReleasedGuard)
	}
	return &g.slot.store
}

func (g *WriteGuard[I, K, V]) Task() records.TaskID {
	return g.task
}

// Release drops the guard. Releasing twice panics; the aliasing second
// guard of an equal pair releases without unlocking.
func (g *WriteGuard[I, K, V]) Release() {
	if g.released {
		panic(taskstore_errors.ErrReleasedGuard)
	}
	g.released = true
	if g.owns {
		g.slot.mu.Unlock()
	}
}

func (g *WriteGuard[I, K, V]) Add(key K, value V) bool {
	return g.inner().Add(key, value)
}

func (g *WriteGuard[I, K, V]) Insert(key K, value V) (V, bool) {
	return g.inner().Insert(key, value)
}

func (g *WriteGuard[I, K, V]) Remove(key K) (V, bool) {
	return g.inner().Remove(key)
}

func (g *WriteGuard[I, K, V]) Get(key K) (V, bool) {
	return g.inner().Get(key)
}

func (g *WriteGuard[I, K, V]) HasKey(key K) bool {
	return g.inner().HasKey(key)
}

func (g *WriteGuard[I, K, V]) Update(key K, f func(old V, exists bool) (V, bool)) {
	g.inner().Update(key, f)
}

// Iter and IterAll sequences are only valid while the guard is held.
func (g *WriteGuard[I, K, V]) Iter(index I) iter.Seq2[K, V] {
	return g.inner().Iter(index)
}

func (g *WriteGuard[I, K, V]) IterAll() iter.Seq2[K, V] {
	return g.inner().IterAll()
}

func (g *WriteGuard[I, K, V]) Len() int {
	return g.inner().Len()
}

func (g *WriteGuard[I, K, V]) IsIndexed() bool {
	return g.inner().IsIndexed()
}

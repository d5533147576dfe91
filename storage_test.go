package taskstore

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/drpcorg/taskstore/records"
	"github.com/drpcorg/taskstore/taskstore_errors"
	"github.com/drpcorg/taskstore/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() utils.Logger {
	return utils.NewDefaultLogger(slog.LevelError)
}

func TestStorageConcurrentUpdateCounts(t *testing.T) {
	const N = 16
	const M = 1000

	st := NewStorage[int, pairKey, int](testLogger())
	task := records.TaskID(7)
	key := pairKey{bucket: 1, n: 1}

	var wg sync.WaitGroup
	for i := 0; i < N; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < M; j++ {
				guard := st.AccessMut(task)
				guard.Update(key, func(old int, exists bool) (int, bool) {
					return old + 1, true
				})
				guard.Release()
			}
		}()
	}
	wg.Wait()

	guard := st.AccessMut(task)
	defer guard.Release()
	total, ok := guard.Get(key)
	require.True(t, ok)
	assert.Equal(t, N*M, total)
}

func TestStoragePairAccessNoDeadlock(t *testing.T) {
	const M = 1000

	st := NewStorage[int, pairKey, int](testLogger())
	a, b := records.TaskID(1), records.TaskID(2)
	key := pairKey{bucket: 0, n: 0}
	bump := func(g *WriteGuard[int, pairKey, int]) {
		g.Update(key, func(old int, exists bool) (int, bool) {
			return old + 1, true
		})
	}

	var wg sync.WaitGroup
	for _, pair := range [][2]records.TaskID{{a, b}, {b, a}} {
		wg.Add(1)
		go func(first, second records.TaskID) {
			defer wg.Done()
			for j := 0; j < M; j++ {
				gf, gs := st.AccessPairMut(first, second)
				bump(gf)
				bump(gs)
				gs.Release()
				gf.Release()
			}
		}(pair[0], pair[1])
	}
	wg.Wait()

	for _, task := range []records.TaskID{a, b} {
		guard := st.AccessMut(task)
		total, _ := guard.Get(key)
		guard.Release()
		assert.Equal(t, 2*M, total)
	}
}

func TestStoragePairAccessAliased(t *testing.T) {
	st := NewStorage[int, pairKey, int](testLogger())
	task := records.TaskID(5)
	key := pairKey{bucket: 1, n: 1}

	g1, g2 := st.AccessPairMut(task, task)
	g1.Insert(key, 11)
	// the second guard aliases the same store
	got, ok := g2.Get(key)
	require.True(t, ok)
	assert.Equal(t, 11, got)
	g2.Release()
	g1.Release()

	// the lock was taken and dropped exactly once
	guard := st.AccessMut(task)
	guard.Release()
}

func TestWriteGuardDoubleReleasePanics(t *testing.T) {
	st := NewStorage[int, pairKey, int](testLogger())
	guard := st.AccessMut(1)
	guard.Release()
	assert.PanicsWithValue(t, taskstore_errors.ErrReleasedGuard, func() {
		guard.Release()
	})
	assert.PanicsWithValue(t, taskstore_errors.ErrReleasedGuard, func() {
		guard.Get(pairKey{})
	})
}

func TestStorageWith(t *testing.T) {
	st := NewStorage[int, pairKey, int](testLogger())
	st.With(3, func(s *InnerStorage[int, pairKey, int]) {
		s.Add(pairKey{bucket: 1, n: 1}, 1)
	})
	st.With(3, func(s *InnerStorage[int, pairKey, int]) {
		assert.Equal(t, 1, s.Len())
	})
}

func TestStorageStats(t *testing.T) {
	st := NewStorage[int, pairKey, int](testLogger())
	for task := records.TaskID(1); task <= 3; task++ {
		st.With(task, func(s *InnerStorage[int, pairKey, int]) {
			s.threshold = 2
			for i := 0; i < int(task); i++ {
				s.Add(pairKey{bucket: i, n: i}, i)
			}
		})
	}
	stats := st.Stats()
	assert.Equal(t, 3, stats.Tasks)
	assert.Equal(t, 6, stats.Records)
	assert.Equal(t, 1, stats.IndexedTasks)
}

package taskstore

import (
	"testing"

	"github.com/drpcorg/taskstore/records"
	"github.com/drpcorg/taskstore/taskstore_errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskStorage() *Storage[records.Index, records.Key, records.Value[string]] {
	return NewStorage[records.Index, records.Key, records.Value[string]](testLogger())
}

func TestContentHelpers(t *testing.T) {
	st := taskStorage()
	cell := records.CellID{Type: 1, Index: 0}

	guard := st.AccessMut(1)
	defer guard.Release()

	_, ok := GetCellContent(guard, cell)
	assert.False(t, ok)

	prev, replaced := InsertCellContent(guard, cell, "a")
	assert.False(t, replaced)
	assert.Empty(t, prev)

	prev, replaced = InsertCellContent(guard, cell, "b")
	assert.True(t, replaced)
	assert.Equal(t, "a", prev)

	got, ok := GetCellContent(guard, cell)
	require.True(t, ok)
	assert.Equal(t, "b", got)

	prev, removed := RemoveCellContent[string](guard, cell)
	assert.True(t, removed)
	assert.Equal(t, "b", prev)
	assert.False(t, guard.HasKey(records.CellContentKey(cell)))
}

func TestInProgressHelpers(t *testing.T) {
	st := taskStorage()
	cell := records.CellID{Type: 1, Index: 2}

	guard := st.AccessMut(1)
	defer guard.Release()

	ev := StartInProgress[string](guard, cell)
	require.NotNil(t, ev)
	// at most one marker per cell: a second start returns the same handle
	assert.Same(t, ev, StartInProgress[string](guard, cell))

	got, ok := TakeInProgress[string](guard, cell)
	require.True(t, ok)
	assert.Same(t, ev, got)
	_, ok = TakeInProgress[string](guard, cell)
	assert.False(t, ok)
}

func TestDependentHelpers(t *testing.T) {
	st := taskStorage()
	cell := records.CellID{Type: 1, Index: 0}
	other := records.CellID{Type: 1, Index: 1}

	guard := st.AccessMut(1)
	defer guard.Release()

	added, err := AddCellDependent(guard, cell, 10)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = AddCellDependent(guard, cell, 10)
	require.NoError(t, err)
	assert.False(t, added)
	_, err = AddCellDependent(guard, cell, 0)
	assert.ErrorIs(t, err, taskstore_errors.ErrBadRecordKey)

	_, err = AddCellDependent(guard, cell, 11)
	require.NoError(t, err)
	_, err = AddCellDependent(guard, other, 12)
	require.NoError(t, err)

	assert.ElementsMatch(t, []records.TaskID{10, 11}, CellDependents[string](guard, cell))
	assert.ElementsMatch(t, []records.TaskID{12}, CellDependents[string](guard, other))

	assert.True(t, RemoveCellDependent[string](guard, cell, 10))
	assert.False(t, RemoveCellDependent[string](guard, cell, 10))
	assert.ElementsMatch(t, []records.TaskID{11}, CellDependents[string](guard, cell))
}

func TestDirtyHelpers(t *testing.T) {
	st := taskStorage()
	guard := st.AccessMut(1)
	defer guard.Release()

	assert.False(t, IsDirty[string](guard))
	assert.True(t, MarkDirty[string](guard))
	assert.False(t, MarkDirty[string](guard))
	assert.True(t, IsDirty[string](guard))
	assert.True(t, ClearDirty[string](guard))
	assert.False(t, ClearDirty[string](guard))
	assert.False(t, IsDirty[string](guard))
}

func TestUpdateCountSignChanges(t *testing.T) {
	st := taskStorage()
	key := records.AggregatedDirtyCountKey()

	cases := []struct {
		deltas []int32
		change []bool
		final  int32
	}{
		{deltas: []int32{1}, change: []bool{true}, final: 1},
		{deltas: []int32{1, 1}, change: []bool{true, false}, final: 2},
		{deltas: []int32{2, -2}, change: []bool{true, true}, final: 0},
		{deltas: []int32{-1}, change: []bool{false}, final: -1},
		{deltas: []int32{-1, 2}, change: []bool{false, true}, final: 1},
		{deltas: []int32{0}, change: []bool{false}, final: 0},
	}
	for i, c := range cases {
		task := records.TaskID(i + 1)
		guard := st.AccessMut(task)
		for j, delta := range c.deltas {
			got := UpdateCount[string](guard, key, delta)
			assert.Equal(t, c.change[j], got, "case %d step %d", i, j)
		}
		assert.Equal(t, c.final, GetCount[string](guard, key), "case %d", i)
		// a zero counter is removed, not stored
		if c.final == 0 {
			assert.False(t, guard.HasKey(key), "case %d", i)
		}
		guard.Release()
	}
}

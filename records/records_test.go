package records

import (
	"testing"

	"github.com/drpcorg/taskstore/taskstore_errors"
	"github.com/stretchr/testify/assert"
)

func TestKeyValidate(t *testing.T) {
	cell := CellID{Type: 1, Index: 2}

	assert.NoError(t, CellContentKey(cell).Validate())
	assert.NoError(t, InProgressCellKey(cell).Validate())
	assert.NoError(t, CellDependentKey(cell, 7).Validate())
	assert.NoError(t, DirtyKey().Validate())
	assert.NoError(t, AggregatedDirtyCountKey().Validate())

	bad := []Key{
		{Kind: KindCellContent, Cell: cell, Task: 7},
		{Kind: KindInProgressCell, Cell: cell, Task: 7},
		{Kind: KindCellDependent, Cell: cell, Task: 0},
		{Kind: KindDirty, Cell: cell},
		{Kind: KindDirty, Task: 7},
		{Kind: KindAggregatedDirtyCount, Cell: cell},
		{Kind: 0},
		{Kind: 200},
	}
	for _, k := range bad {
		assert.ErrorIs(t, k.Validate(), taskstore_errors.ErrBadRecordKey, "%+v", k)
	}
}

func TestKeyIndexGrouping(t *testing.T) {
	cell := CellID{Type: 1, Index: 2}

	// dependents of the same cell share a bucket regardless of reader
	assert.Equal(t,
		CellDependentKey(cell, 7).Index(),
		CellDependentKey(cell, 8).Index())
	assert.NotEqual(t,
		CellDependentKey(cell, 7).Index(),
		CellDependentKey(CellID{Type: 1, Index: 3}, 7).Index())

	// kinds never share a bucket
	assert.NotEqual(t, CellContentKey(cell).Index(), InProgressCellKey(cell).Index())
	assert.NotEqual(t, DirtyKey().Index(), AggregatedDirtyCountKey().Index())

	// derivation is stable
	k := CellDependentKey(cell, 7)
	assert.Equal(t, k.Index(), k.Index())
}

package taskstore

import (
	"github.com/drpcorg/taskstore/records"
	"github.com/drpcorg/taskstore/utils"
)

// Typed accessors over a guard-held record store. Each record kind stores
// its payload in one field of records.Value; these helpers keep the
// packing and unpacking in one place so the operations above read like the
// protocol they implement.

func GetCellContent[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]], cell records.CellID) (C, bool) {
	v, ok := g.Get(records.CellContentKey(cell))
	return v.Content, ok
}

func InsertCellContent[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]], cell records.CellID, content C) (prev C, replaced bool) {
	v, replaced := g.Insert(records.CellContentKey(cell), records.Value[C]{Content: content})
	return v.Content, replaced
}

func RemoveCellContent[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]], cell records.CellID) (prev C, removed bool) {
	v, removed := g.Remove(records.CellContentKey(cell))
	return v.Content, removed
}

// StartInProgress installs an in-progress marker for the cell, or returns
// the existing one. At most one marker per (task, cell) exists at any
// instant.
func StartInProgress[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]], cell records.CellID) *utils.Event {
	key := records.InProgressCellKey(cell)
	if v, ok := g.Get(key); ok {
		return v.Waiters
	}
	ev := utils.NewEvent()
	g.Insert(key, records.Value[C]{Waiters: ev})
	return ev
}

func GetInProgress[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]], cell records.CellID) (*utils.Event, bool) {
	v, ok := g.Get(records.InProgressCellKey(cell))
	return v.Waiters, ok
}

// TakeInProgress removes the marker, handing its waiter set to the caller
// for notification.
func TakeInProgress[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]], cell records.CellID) (*utils.Event, bool) {
	v, ok := g.Remove(records.InProgressCellKey(cell))
	return v.Waiters, ok
}

func AddCellDependent[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]], cell records.CellID, reader records.TaskID) (bool, error) {
	key := records.CellDependentKey(cell, reader)
	if err := key.Validate(); err != nil {
		return false, err
	}
	return g.Add(key, records.Value[C]{}), nil
}

func RemoveCellDependent[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]], cell records.CellID, reader records.TaskID) bool {
	_, removed := g.Remove(records.CellDependentKey(cell, reader))
	return removed
}

// CellDependents collects the set of tasks that read the given cell.
// Records of this kind group by cell id, so once the store is indexed this
// is a single bucket scan; while still flat the iteration covers all
// records and the kind/cell filter below does the narrowing.
func CellDependents[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]], cell records.CellID) []records.TaskID {
	var dependent []records.TaskID
	for key := range g.Iter(records.Index{Kind: records.KindCellDependent, Cell: cell}) {
		if key.Kind == records.KindCellDependent && key.Cell == cell {
			dependent = append(dependent, key.Task)
		}
	}
	return dependent
}

func MarkDirty[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]]) bool {
	return g.Add(records.DirtyKey(), records.Value[C]{})
}

func ClearDirty[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]]) bool {
	_, removed := g.Remove(records.DirtyKey())
	return removed
}

func IsDirty[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]]) bool {
	return g.HasKey(records.DirtyKey())
}

// UpdateCount adds delta to a counter record, removing it when it reaches
// zero, and reports whether the counter changed sign (crossed between
// non-positive and positive). Sign changes are what callers act on; the
// exact value is bookkeeping.
func UpdateCount[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]], key records.Key, delta int32) bool {
	var stateChange bool
	g.Update(key, func(old records.Value[C], exists bool) (records.Value[C], bool) {
		if exists {
			count := old.Count + delta
			stateChange = old.Count <= 0 && count > 0 || old.Count > 0 && count <= 0
			return records.Value[C]{Count: count}, count != 0
		}
		stateChange = delta > 0
		return records.Value[C]{Count: delta}, delta != 0
	})
	return stateChange
}

// GetCount returns the counter value, zero when absent.
func GetCount[C comparable](g *WriteGuard[records.Index, records.Key, records.Value[C]], key records.Key) int32 {
	v, _ := g.Get(key)
	return v.Count
}

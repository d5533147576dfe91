// Package records defines the typed facts the store keeps per task: cell
// contents, in-progress markers, dependency edges, dirty flags and dirty
// counters. Every key kind derives a grouping index used by the storage
// layer once a task accumulates many records.
package records

import (
	"github.com/drpcorg/taskstore/taskstore_errors"
	"github.com/drpcorg/taskstore/utils"
)

// TaskID identifies one unit of incremental computation. IDs are totally
// ordered, which the storage layer relies on for deadlock-safe pairwise
// locking. Zero is never a valid task id.
type TaskID uint64

// CellID addresses one value slot within a task's output.
type CellID struct {
	Type  uint32
	Index uint32
}

type Kind uint8

const (
	KindCellContent Kind = iota + 1
	KindInProgressCell
	KindCellDependent
	KindDirty
	KindAggregatedDirtyCount
)

func (k Kind) String() string {
	switch k {
	case KindCellContent:
		return "cell_content"
	case KindInProgressCell:
		return "in_progress_cell"
	case KindCellDependent:
		return "cell_dependent"
	case KindDirty:
		return "dirty"
	case KindAggregatedDirtyCount:
		return "aggregated_dirty_count"
	}
	return "unknown"
}

// Key is the full key of one record. The owning task is implied by the
// storage location; Cell and Task carry the kind-specific sub-key. Unused
// fields stay zero so keys of the same kind compare naturally.
type Key struct {
	Kind Kind
	Cell CellID
	Task TaskID
}

// Index is the grouping key derived from a full key. Grouping is by kind
// plus cell: in particular CellDependent records group by the cell that was
// read, not by the reading task, so "all dependents of cell C" is one
// bucket scan.
type Index struct {
	Kind Kind
	Cell CellID
}

// Index derivation is a pure function of the key. The flat-to-indexed
// conversion recomputes it once per record and relies on stability.
func (k Key) Index() Index {
	return Index{Kind: k.Kind, Cell: k.Cell}
}

// Validate rejects malformed keys before any mutation happens.
func (k Key) Validate() error {
	switch k.Kind {
	case KindCellContent, KindInProgressCell:
		if k.Task != 0 {
			return taskstore_errors.ErrBadRecordKey
		}
	case KindCellDependent:
		if k.Task == 0 {
			return taskstore_errors.ErrBadRecordKey
		}
	case KindDirty, KindAggregatedDirtyCount:
		if k.Task != 0 || (k.Cell != CellID{}) {
			return taskstore_errors.ErrBadRecordKey
		}
	default:
		return taskstore_errors.ErrBadRecordKey
	}
	return nil
}

func CellContentKey(cell CellID) Key {
	return Key{Kind: KindCellContent, Cell: cell}
}

func InProgressCellKey(cell CellID) Key {
	return Key{Kind: KindInProgressCell, Cell: cell}
}

func CellDependentKey(cell CellID, reader TaskID) Key {
	return Key{Kind: KindCellDependent, Cell: cell, Task: reader}
}

func DirtyKey() Key {
	return Key{Kind: KindDirty}
}

func AggregatedDirtyCountKey() Key {
	return Key{Kind: KindAggregatedDirtyCount}
}

// Value is the payload union over all record kinds. Content is set for
// KindCellContent, Waiters for KindInProgressCell, Count for
// KindAggregatedDirtyCount. Dirty and CellDependent records carry no
// payload; their existence is the fact.
type Value[C any] struct {
	Content C
	Waiters *utils.Event
	Count   int32
}

// IndexedKey is the contract the adaptive store requires of its keys:
// usable as a map key and able to derive a stable grouping index.
type IndexedKey[I comparable] interface {
	comparable
	Index() I
}

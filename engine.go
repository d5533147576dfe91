package taskstore

import (
	"context"
	"log/slog"

	"github.com/drpcorg/taskstore/records"
	"github.com/drpcorg/taskstore/taskstore_errors"
	"github.com/drpcorg/taskstore/utils"
)

type Options struct {
	Logger      utils.Logger
	Invalidator Invalidator
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
}

// Engine bundles the sharded store with the cell-update protocol and the
// read-side accessors the execution and scheduling collaborators consume.
// C is the cell content type.
type Engine[C comparable] struct {
	store  *Storage[records.Index, records.Key, records.Value[C]]
	update *UpdateCellOperation[C]
	inval  Invalidator
	log    utils.Logger
}

func NewEngine[C comparable](opts Options) *Engine[C] {
	opts.SetDefaults()
	store := NewStorage[records.Index, records.Key, records.Value[C]](opts.Logger)
	inval := opts.Invalidator
	if inval == nil {
		inval = NewDirtyInvalidator[C](store, opts.Logger)
	}
	return &Engine[C]{
		store:  store,
		update: NewUpdateCellOperation[C](store, inval, opts.Logger),
		inval:  inval,
		log:    opts.Logger,
	}
}

// Store exposes the underlying sharded store, e.g. for registering a
// StorageCollector or for collaborators that need raw guard access.
func (e *Engine[C]) Store() *Storage[records.Index, records.Key, records.Value[C]] {
	return e.store
}

func (e *Engine[C]) Invalidator() Invalidator {
	return e.inval
}

// UpdateCell stores new content for the cell and propagates invalidation
// to its dependents when the write observably changed anything.
func (e *Engine[C]) UpdateCell(ctx context.Context, task records.TaskID, cell records.CellID, content C) {
	e.update.Run(ctx, task, cell, content, true)
}

// ClearCell removes the cell's content. Waiters are still released and
// dependents still invalidated when previous content existed.
func (e *Engine[C]) ClearCell(ctx context.Context, task records.TaskID, cell records.CellID) {
	var zero C
	e.update.Run(ctx, task, cell, zero, false)
}

// ReadCell returns the cell's content. When a computation is in flight it
// blocks on the cell's waiter handle until the computation completes or
// the context is canceled, then retries. With neither content nor an
// in-progress marker it returns ErrCellEmpty.
func (e *Engine[C]) ReadCell(ctx context.Context, task records.TaskID, cell records.CellID) (C, error) {
	for {
		guard := e.store.AccessMut(task)
		content, ok := GetCellContent(guard, cell)
		if ok {
			guard.Release()
			return content, nil
		}
		waiters, inFlight := GetInProgress[C](guard, cell)
		guard.Release()
		if !inFlight {
			var zero C
			return zero, taskstore_errors.ErrCellEmpty
		}
		if err := waiters.Wait(ctx); err != nil {
			var zero C
			return zero, err
		}
	}
}

// StartCell marks a computation for the cell as in flight and returns the
// waiter handle readers will block on until the next UpdateCell or
// ClearCell for this cell.
func (e *Engine[C]) StartCell(task records.TaskID, cell records.CellID) *utils.Event {
	guard := e.store.AccessMut(task)
	defer guard.Release()
	return StartInProgress[C](guard, cell)
}

// AddDependent records that reader consumed this cell and must be
// invalidated when its value changes.
func (e *Engine[C]) AddDependent(task records.TaskID, cell records.CellID, reader records.TaskID) (bool, error) {
	guard := e.store.AccessMut(task)
	defer guard.Release()
	return AddCellDependent(guard, cell, reader)
}

func (e *Engine[C]) RemoveDependent(task records.TaskID, cell records.CellID, reader records.TaskID) bool {
	guard := e.store.AccessMut(task)
	defer guard.Release()
	return RemoveCellDependent[C](guard, cell, reader)
}

// Dependents returns the set of tasks that read the cell.
func (e *Engine[C]) Dependents(task records.TaskID, cell records.CellID) []records.TaskID {
	guard := e.store.AccessMut(task)
	defer guard.Release()
	return CellDependents[C](guard, cell)
}

// TransferDependents moves every dependency edge recorded for (from, cell)
// onto (to, cell), e.g. when a cell's producer is replaced, and returns the
// number of edges that actually moved. Both tasks are guarded at once
// through the ordered pair acquisition, so concurrent transfers in
// opposite directions cannot deadlock. Transferring a task onto itself
// moves nothing.
func (e *Engine[C]) TransferDependents(from, to records.TaskID, cell records.CellID) int {
	if from == to {
		return 0
	}
	gf, gt := e.store.AccessPairMut(from, to)
	defer gf.Release()
	defer gt.Release()
	readers := CellDependents[C](gf, cell)
	moved := 0
	for _, reader := range readers {
		if _, removed := gf.Remove(records.CellDependentKey(cell, reader)); !removed {
			continue
		}
		if gt.Add(records.CellDependentKey(cell, reader), records.Value[C]{}) {
			moved++
		}
	}
	return moved
}

// MarkDirty flags the task's output as known stale. Returns false when it
// already was.
func (e *Engine[C]) MarkDirty(task records.TaskID) bool {
	guard := e.store.AccessMut(task)
	defer guard.Release()
	if !MarkDirty[C](guard) {
		return false
	}
	UpdateCount[C](guard, records.AggregatedDirtyCountKey(), 1)
	return true
}

// ClearDirty removes the dirty flag, typically after the scheduler
// re-executed the task.
func (e *Engine[C]) ClearDirty(task records.TaskID) bool {
	guard := e.store.AccessMut(task)
	defer guard.Release()
	if !ClearDirty[C](guard) {
		return false
	}
	UpdateCount[C](guard, records.AggregatedDirtyCountKey(), -1)
	return true
}

func (e *Engine[C]) IsDirty(task records.TaskID) bool {
	guard := e.store.AccessMut(task)
	defer guard.Release()
	return IsDirty[C](guard)
}

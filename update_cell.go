package taskstore

import (
	"context"

	"github.com/drpcorg/taskstore/records"
	"github.com/drpcorg/taskstore/utils"
)

// UpdateCellOperation applies a new (possibly absent) value to a task's
// cell and decides whether dependents must be invalidated. It is the sole
// mutating entry point of the invalidation protocol.
type UpdateCellOperation[C comparable] struct {
	store *Storage[records.Index, records.Key, records.Value[C]]
	inval Invalidator
	log   utils.Logger
}

func NewUpdateCellOperation[C comparable](store *Storage[records.Index, records.Key, records.Value[C]], inval Invalidator, log utils.Logger) *UpdateCellOperation[C] {
	return &UpdateCellOperation[C]{store: store, inval: inval, log: log}
}

// Run writes content into the cell (or clears it when present is false),
// wakes every reader blocked on the cell's in-progress marker, and hands
// the dependent set to the invalidator. The write guard is released before
// invalidation so this task's lock is never held while other tasks get
// marked.
//
// A write into a cell that had no previous content, on a task that is not
// dirty, is a deterministic first computation: nothing observable changed,
// so invalidation is skipped entirely.
func (op *UpdateCellOperation[C]) Run(ctx context.Context, task records.TaskID, cell records.CellID, content C, present bool) {
	dependent, recomputed := func() ([]records.TaskID, bool) {
		guard := op.store.AccessMut(task)
		defer guard.Release()

		var hadContent bool
		if present {
			_, hadContent = InsertCellContent(guard, cell, content)
		} else {
			_, hadContent = RemoveCellContent[C](guard, cell)
		}

		if waiters, ok := TakeInProgress[C](guard, cell); ok {
			waiters.NotifyAll()
		}

		if !hadContent && !IsDirty[C](guard) {
			// Task wasn't invalidated, so this is a plain recompute:
			// assuming tasks are deterministic and pure, the content
			// cannot actually have changed.
			return nil, true
		}

		return CellDependents[C](guard, cell), false
	}()

	if recomputed {
		CellUpdateCount.WithLabelValues("recomputed").Inc()
		return
	}

	InvalidationFanout.Observe(float64(len(dependent)))
	if len(dependent) == 0 {
		CellUpdateCount.WithLabelValues("clean").Inc()
		return
	}
	CellUpdateCount.WithLabelValues("invalidated").Inc()
	op.log.DebugCtx(ctx, "cell update invalidates dependents",
		"task", task, "cell_type", cell.Type, "cell_index", cell.Index, "dependents", len(dependent))
	op.inval.Invalidate(ctx, dependent)
}

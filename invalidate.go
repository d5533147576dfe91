package taskstore

import (
	"context"

	"github.com/drpcorg/taskstore/records"
	"github.com/drpcorg/taskstore/utils"
)

// Invalidator marks a set of tasks stale so the external scheduler will
// re-execute them. The cell-update operation only ever calls it after
// releasing the updated task's write guard.
type Invalidator interface {
	Invalidate(ctx context.Context, tasks []records.TaskID)
}

// InvalidateHook is called once per task transitioning from clean to
// dirty, outside any write guard.
type InvalidateHook func(ctx context.Context, task records.TaskID)

// DirtyInvalidator is the in-storage invalidator: it marks each task with
// a dirty flag, maintains the task's aggregated dirty counter, and fires
// any hooks a scheduler registered for the task. Tasks are drained in
// ascending id order, duplicates collapse to one invalidation.
type DirtyInvalidator[C comparable] struct {
	store *Storage[records.Index, records.Key, records.Value[C]]
	hooks utils.CMap[records.TaskID, []InvalidateHook]
	log   utils.Logger
}

func NewDirtyInvalidator[C comparable](store *Storage[records.Index, records.Key, records.Value[C]], log utils.Logger) *DirtyInvalidator[C] {
	return &DirtyInvalidator[C]{store: store, log: log}
}

// AddHook registers a callback fired when the task goes dirty. Hooks for
// one task must be registered from one goroutine; firing is concurrent-safe.
func (di *DirtyInvalidator[C]) AddHook(task records.TaskID, hook InvalidateHook) {
	list, _ := di.hooks.Load(task)
	di.hooks.Store(task, append(list, hook))
}

func (di *DirtyInvalidator[C]) DropHooks(task records.TaskID) {
	di.hooks.Delete(task)
}

func (di *DirtyInvalidator[C]) Invalidate(ctx context.Context, tasks []records.TaskID) {
	var heap utils.Heap[records.TaskID]
	for _, t := range tasks {
		heap.Push(t)
	}
	var last records.TaskID
	for heap.Len() > 0 {
		t := heap.Pop()
		if t == last {
			continue
		}
		last = t
		di.invalidateOne(ctx, t)
	}
}

func (di *DirtyInvalidator[C]) invalidateOne(ctx context.Context, task records.TaskID) {
	marked := func() bool {
		guard := di.store.AccessMut(task)
		defer guard.Release()
		if !MarkDirty[C](guard) {
			// already dirty, nothing new to schedule
			return false
		}
		UpdateCount[C](guard, records.AggregatedDirtyCountKey(), 1)
		return true
	}()
	if !marked {
		return
	}
	InvalidatedTaskCount.Inc()
	di.log.DebugCtx(ctx, "task invalidated", "task", task)
	if list, ok := di.hooks.Load(task); ok {
		for _, hook := range list {
			hook(ctx, task)
		}
	}
}

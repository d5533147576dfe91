// Package taskstore is the storage and invalidation core of an incremental
// computation cache: tasks produce values into addressable cells, and a
// later change to a cell propagates invalidation to every task that read
// it.
//
// # Layout
//
// Each task owns one adaptive record store (InnerStorage) holding all of
// its records, held inside a sharded concurrent map (Storage). A store starts as a flat
// key-value map and switches, once and irreversibly, to a two-level map
// grouped by each key's index when it accumulates 1024 records. The switch
// keeps per-cell scans cheap for tasks with large fan-out, e.g. listing
// every dependent of one cell.
//
// All mutation goes through a scoped WriteGuard acquired per task.
// AccessPairMut acquires two tasks' guards in ascending id order, so
// operations touching two tasks (dependency edge moves) cannot deadlock.
//
// # Invalidation protocol
//
// UpdateCellOperation is the single mutating entry point the execution
// layer calls when a task produced (or dropped) a cell value:
//
//  1. Insert or remove the cell content, capturing the previous value.
//  2. Remove the cell's in-progress marker, waking every blocked reader.
//  3. If there was no previous content and the task is not dirty, the
//     write is a deterministic first computation: skip invalidation.
//  4. Otherwise collect the cell's dependents and, after releasing the
//     task's guard, hand them to the Invalidator.
//
// The scheduler that re-executes invalidated tasks is an external
// collaborator; DirtyInvalidator is the built-in implementation that
// marks dependents with dirty flags inside the same storage and fires
// registered hooks.
package taskstore

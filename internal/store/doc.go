// Package store provides a SQLite-backed observable record collection.
//
// The store keeps records of named collections, each record an id, a
// logical seq and tagged-JSON attributes, and serves ordered, filtered live
// queries over them:
//   - Fetch runs a queryir.Select once
//   - Observe registers a live query; a notifier goroutine re-runs it after
//     every committed write to its collection and reports flat deletions,
//     insertions and modifications to an ir.Observer
//
// # Critical Patterns
//
// Logical time:
//   - Every write is stamped with seq from a monotonic clock, NEVER a timestamp
//   - A record kept in place whose seq changed is reported as modified
//
// Deterministic results:
//   - Every query ends with ORDER BY ..., id ASC COLLATE BINARY
//   - Identical data always yields the identical sequence
//
// Ordered delivery:
//   - One notifier goroutine drains a FIFO queue of changes
//   - Observers are called one at a time, in write order
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store

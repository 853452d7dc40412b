// Package controller provides the results controller: a live, sectioned view
// over an ordered provider query.
//
// A Controller subscribes to a Provider, partitions every result into
// sections by a section key attribute, diffs each new partition against the
// previous one and reports the difference as events ready for incremental
// list rendering:
//
//	c, err := controller.New(ctx, st, controller.RecordAccessor("tasks"),
//	    "priority", ir.KindString,
//	    []queryir.SortTerm{{KeyPath: "priority", Ascending: true}})
//	c.SetChangeHandler(func(ev controller.Event) { ... })
//	err = c.Start(ctx)
//
// # Events
//
//   - Reload: the first result, and every transition from or to zero
//     sections. Re-read everything.
//   - SectionChange: section insertions (new indices) and deletions (old
//     indices).
//   - RowChange: item insertions and updates (new index paths) and
//     deletions (old index paths).
//
// An update yields zero, one or two events; SectionChange comes first.
//
// # Concurrency
//
// Building and diffing run on the provider's notification goroutine, one
// notification at a time. The snapshot swap and the change handler run
// inside the Dispatcher: Inline for callers that synchronize themselves, or
// a Loop goroutine standing in for a UI event loop. Reads load one
// immutable snapshot and are safe from any goroutine.
//
// Every Start, Reload and Change bumps a generation counter. Notifications
// and diffs carrying an older generation are dropped.
//
// # Errors
//
// Configuration problems are returned synchronously as *ConfigError. A
// provider error halts the subscription and freezes the view on its last
// good snapshot until the next reload.
package controller

package controller

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/roach88/liveresults/internal/diff"
	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/metrics"
	"github.com/roach88/liveresults/internal/partition"
)

// observer binds provider notifications to the generation that subscribed.
type observer[R any, ID comparable] struct {
	c          *Controller[R, ID]
	generation uint64
	cfg        config
	halted     atomic.Bool
}

// OnInitial implements ir.Observer.
func (o *observer[R, ID]) OnInitial(records []R) {
	o.c.process(o, records, nil)
}

// OnUpdate implements ir.Observer.
func (o *observer[R, ID]) OnUpdate(records []R, changes ir.Changes) {
	o.c.process(o, records, &changes)
}

// OnError implements ir.Observer.
func (o *observer[R, ID]) OnError(err error) {
	if o.halted.Swap(true) {
		return
	}
	o.c.fail(o.generation, err)
}

// process builds the new snapshot of one notification, diffs it against the
// current one and installs it on the consumer context. A nil changes is an
// initial result.
func (c *Controller[R, ID]) process(o *observer[R, ID], records []R, changes *ir.Changes) {
	gen := o.generation
	if o.halted.Load() {
		return
	}
	if c.generation.Load() != gen {
		c.dropStale(gen, "notification")
		return
	}

	c.processMu.Lock()
	defer c.processMu.Unlock()

	if c.generation.Load() != gen {
		c.dropStale(gen, "notification")
		return
	}

	result, err := c.build(o.cfg, records)
	if err != nil {
		o.halted.Store(true)
		c.fail(gen, fmt.Errorf("build sections: %w", err))
		return
	}

	prev := c.snap.Load()
	next := &snapshot[ID]{
		partition:  result.Partition,
		titles:     result.Titles,
		pairs:      result.TitlePairs,
		generation: gen,
		loaded:     true,
	}

	var events []Event
	if c.shouldReload(prev, next, changes) {
		events = []Event{{Kind: EventReload, Generation: gen}}
	} else {
		events = c.diff(prev, next, *changes)
	}

	applied := c.opts.dispatcher.Sync(func() {
		c.mu.Lock()
		if c.generation.Load() != gen || c.state == StateClosed {
			c.mu.Unlock()
			c.dropStale(gen, "diff")
			return
		}
		c.snap.Store(next)
		c.state = StateReady
		handler := c.handler
		c.mu.Unlock()

		for _, ev := range events {
			if c.opts.metrics {
				metrics.ControllerEvents.WithLabelValues(c.access.Collection, ev.Kind.String()).Inc()
			}
			if handler != nil {
				handler(ev)
			}
		}
	})
	if !applied {
		c.opts.logger.Warn("consumer context gone; snapshot not installed",
			"collection", c.access.Collection,
			"generation", gen,
		)
		return
	}

	c.opts.logger.Debug("snapshot installed",
		"collection", c.access.Collection,
		"generation", gen,
		"sections", next.partition.Len(),
		"items", next.partition.Total(),
		"events", len(events),
	)
}

// shouldReload reports whether a notification must be delivered as a
// Reload: initial results, updates before the first snapshot, and every
// transition from or to zero sections.
func (c *Controller[R, ID]) shouldReload(prev, next *snapshot[ID], changes *ir.Changes) bool {
	if changes == nil || prev == nil || !prev.loaded || prev.generation != next.generation {
		return true
	}
	return prev.partition.IsEmpty() || next.partition.IsEmpty()
}

// diff computes the events between two loaded, non-empty snapshots.
func (c *Controller[R, ID]) diff(prev, next *snapshot[ID], changes ir.Changes) []Event {
	updated := make([]ir.IndexPath, 0, len(changes.Modifications))
	for _, pos := range changes.Modifications {
		if path, ok := next.partition.PathOf(pos); ok {
			updated = append(updated, path)
		}
	}

	start := time.Now()
	script := diff.Nested(prev.partition.Sections(), next.partition.Sections(), diff.Options{
		IncludeMoves: c.opts.includeMoves,
		Updated:      updated,
	})
	if c.opts.metrics {
		metrics.ControllerDiffDuration.WithLabelValues(c.access.Collection).Observe(time.Since(start).Seconds())
	}

	c.opts.logger.Debug("nested diff",
		"collection", c.access.Collection,
		"generation", next.generation,
		"flat_deletions", len(changes.Deletions),
		"flat_insertions", len(changes.Insertions),
		"flat_modifications", len(changes.Modifications),
		"section_inserts", len(script.SectionInserts),
		"section_deletes", len(script.SectionDeletes),
		"item_inserts", len(script.ItemInserts),
		"item_deletes", len(script.ItemDeletes),
		"item_updates", len(script.ItemUpdates),
	)
	return eventsFor(script, next.generation)
}

// build partitions one result with the builder of a configuration.
func (c *Controller[R, ID]) build(cfg config, records []R) (partition.Result[ID], error) {
	attr := c.access.Attr
	b := partition.Builder[R, ID]{
		Kind: cfg.kind,
		Key: func(r R) (ir.Value, bool) {
			v, ok := attr(r, cfg.keyPath)
			if !ok {
				return nil, false
			}
			return ir.Coerce(v, cfg.kind)
		},
		Identity:    c.access.Identity,
		FormatTitle: c.opts.formatTitle,
		SortTitles:  c.opts.sortTitles,
		Policy:      c.opts.keyPolicy,
		Logger:      c.opts.logger,
	}

	result, err := b.Build(records)
	if err != nil {
		return result, err
	}
	if c.opts.metrics {
		metrics.ControllerBuilds.WithLabelValues(c.access.Collection).Inc()
		if result.Skipped > 0 {
			metrics.ControllerSkippedRecords.WithLabelValues(c.access.Collection).Add(float64(result.Skipped))
		}
	}
	return result, nil
}

// fail halts the subscription of a generation and reports err. The current
// snapshot stays in place.
func (c *Controller[R, ID]) fail(gen uint64, err error) {
	c.mu.Lock()
	if c.generation.Load() != gen || c.state == StateClosed {
		c.mu.Unlock()
		c.dropStale(gen, "error")
		return
	}
	c.err = err
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Stop()
	}

	c.opts.logger.Error("subscription halted; view frozen until reload",
		"collection", c.access.Collection,
		"generation", gen,
		"error", err,
	)

	if c.opts.onError == nil {
		return
	}
	c.opts.dispatcher.Sync(func() {
		if c.generation.Load() == gen {
			c.opts.onError(err)
		}
	})
}

// dropStale records a notification of a superseded generation.
func (c *Controller[R, ID]) dropStale(gen uint64, what string) {
	if c.opts.metrics {
		metrics.ControllerStaleDrops.WithLabelValues(c.access.Collection).Inc()
	}
	c.opts.logger.Debug("dropped stale "+what,
		"collection", c.access.Collection,
		"generation", gen,
		"current", c.generation.Load(),
	)
}

package store

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/liveresults/internal/diff"
	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/metrics"
	"github.com/roach88/liveresults/internal/queryir"
)

// subscription is one live query registered with the notifier.
type subscription struct {
	token    string
	query    queryir.Select
	observer ir.Observer[ir.Record]
	store    *Store
	stopped  atomic.Bool

	// Notifier-owned: only the run loop reads or writes these.
	delivered bool
	last      []entry
}

// entry is the part of a delivered record the notifier diffs on.
type entry struct {
	id  string
	seq int64
}

// Token returns the subscription's UUIDv7 token.
func (sub *subscription) Token() string {
	return sub.token
}

// Stop discards the subscription. Safe to call more than once and from
// inside an observer callback.
func (sub *subscription) Stop() {
	if sub.stopped.Swap(true) {
		return
	}
	if _, ok := sub.store.subs.LoadAndDelete(sub.token); ok {
		metrics.StoreSubscriptions.Dec()
	}
	sub.store.logger.Debug("subscription stopped", "token", sub.token, "collection", sub.query.From)
}

// Observe registers a live query. The observer first receives OnInitial with
// the current result, then OnUpdate after every committed write that changes
// the result, with flat deletions (old positions), insertions and
// modifications (new positions). A failed re-query delivers OnError and
// halts the subscription.
//
// Callbacks run on the store's notifier goroutine, one at a time, in write
// order. The query is compiled before Observe returns, so malformed queries
// fail synchronously.
func (s *Store) Observe(ctx context.Context, q queryir.Select, obs ir.Observer[ir.Record]) (ir.Subscription, error) {
	if obs == nil {
		return nil, fmt.Errorf("observe: nil observer")
	}
	if _, _, err := s.compiler.Compile(q); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}

	sub := &subscription{
		token:    uuid.Must(uuid.NewV7()).String(),
		query:    q,
		observer: obs,
		store:    s,
	}
	s.subs.Store(sub.token, sub)
	metrics.StoreSubscriptions.Inc()

	if !s.queue.Enqueue(change{kind: changeSubscribe, token: sub.token}) {
		sub.Stop()
		return nil, fmt.Errorf("observe: store closed")
	}

	s.logger.Debug("subscription registered", "token", sub.token, "collection", q.From)
	return sub, nil
}

// Barrier blocks until every change queued before the call has been
// delivered to observers. Tests and the CLI use it to make notifications
// deterministic.
//
// Do not call Barrier from inside an observer callback.
func (s *Store) Barrier(ctx context.Context) error {
	ch := make(chan struct{})
	if !s.queue.Enqueue(change{kind: changeBarrier, barrier: ch}) {
		return fmt.Errorf("barrier: store closed")
	}
	select {
	case <-ch:
		return nil
	case <-s.done:
		return fmt.Errorf("barrier: store closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the notifier loop. It is the only goroutine that calls observers.
func (s *Store) run(ctx context.Context) {
	defer close(s.done)

	for {
		for {
			if ctx.Err() != nil {
				return
			}
			c, ok := s.queue.TryDequeue()
			if !ok {
				break
			}
			s.process(ctx, c)
		}

		if s.queue.Closed() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-s.queue.Wait():
		}
	}
}

// process handles one queued change.
func (s *Store) process(ctx context.Context, c change) {
	switch c.kind {
	case changeBarrier:
		close(c.barrier)

	case changeSubscribe:
		sub, ok := s.subs.Load(c.token)
		if !ok || sub.stopped.Load() {
			return
		}
		s.deliver(ctx, sub)

	case changeCollection:
		// Collect first so that observers may stop or add subscriptions.
		var affected []*subscription
		s.subs.Range(func(_ string, sub *subscription) bool {
			if sub.query.From == c.collection && sub.delivered {
				affected = append(affected, sub)
			}
			return true
		})
		for _, sub := range affected {
			if sub.stopped.Load() {
				continue
			}
			s.deliver(ctx, sub)
		}
	}
}

// deliver re-runs a subscription's query and notifies its observer.
func (s *Store) deliver(ctx context.Context, sub *subscription) {
	records, err := s.Fetch(ctx, sub.query)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("subscription query failed; halting subscription",
			"token", sub.token,
			"collection", sub.query.From,
			"error", err,
		)
		metrics.StoreNotifications.WithLabelValues(sub.query.From, "error").Inc()
		sub.Stop()
		sub.observer.OnError(fmt.Errorf("subscription %s: %w", sub.token, err))
		return
	}

	next := make([]entry, len(records))
	for i, rec := range records {
		next[i] = entry{id: rec.ID, seq: rec.Seq}
	}

	if !sub.delivered {
		sub.delivered = true
		sub.last = next
		metrics.StoreNotifications.WithLabelValues(sub.query.From, "initial").Inc()
		sub.observer.OnInitial(records)
		return
	}

	changes := flatChanges(sub.last, next)
	sub.last = next
	if changes.IsEmpty() {
		return
	}

	s.logger.Debug("subscription update",
		"token", sub.token,
		"collection", sub.query.From,
		"deletions", len(changes.Deletions),
		"insertions", len(changes.Insertions),
		"modifications", len(changes.Modifications),
	)
	metrics.StoreNotifications.WithLabelValues(sub.query.From, "update").Inc()
	sub.observer.OnUpdate(records, changes)
}

// flatChanges diffs two delivered results by record id. Records kept in
// place whose seq moved are modifications, reported at their new position.
func flatChanges(old, next []entry) ir.Changes {
	oldIDs := make([]string, len(old))
	for i, e := range old {
		oldIDs[i] = e.id
	}
	nextIDs := make([]string, len(next))
	for i, e := range next {
		nextIDs[i] = e.id
	}

	edits := diff.Flat(oldIDs, nextIDs)

	var changes ir.Changes
	changes.Deletions = diff.Deletions(edits)
	changes.Insertions = diff.Insertions(edits)
	for _, m := range diff.Matches(edits) {
		if old[m[0]].seq != next[m[1]].seq {
			changes.Modifications = append(changes.Modifications, m[1])
		}
	}
	return changes
}

package controller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/queryir"
	"github.com/roach88/liveresults/internal/testutil"
)

// fakeProvider hands every observer to the test, which drives notifications
// by hand.
type fakeProvider struct {
	mu         sync.Mutex
	schema     ir.Schema
	schemaErr  error
	observeErr error
	records    []ir.Record // served by Fetch, filtered but not re-sorted
	subs       []*fakeSub
}

type fakeSub struct {
	token   string
	query   queryir.Select
	obs     ir.Observer[ir.Record]
	stopped atomic.Bool
}

func (s *fakeSub) Token() string { return s.token }
func (s *fakeSub) Stop()         { s.stopped.Store(true) }

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		schema: ir.Schema{
			Collection: "tasks",
			Fields: map[string]ir.Kind{
				"priority": ir.KindString,
				"title":    ir.KindString,
				"rank":     ir.KindInt,
			},
		},
	}
}

func (p *fakeProvider) Schema(_ context.Context, collection string) (ir.Schema, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.schemaErr != nil {
		return ir.Schema{}, p.schemaErr
	}
	return p.schema, nil
}

func (p *fakeProvider) Fetch(_ context.Context, q queryir.Select) ([]ir.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []ir.Record{}
	for _, rec := range p.records {
		if q.Filter == nil || queryir.Match(q.Filter, rec.Attr) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (p *fakeProvider) Observe(_ context.Context, q queryir.Select, obs ir.Observer[ir.Record]) (ir.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.observeErr != nil {
		return nil, p.observeErr
	}
	sub := &fakeSub{token: fmt.Sprintf("sub-%d", len(p.subs)+1), query: q, obs: obs}
	p.subs = append(p.subs, sub)
	return sub, nil
}

func (p *fakeProvider) last(t *testing.T) *fakeSub {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.subs, "no subscription")
	return p.subs[len(p.subs)-1]
}

func (p *fakeProvider) observeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// task builds a record in the "tasks" collection.
func task(id, priority string) ir.Record {
	return ir.Record{ID: id, Attrs: ir.Object{
		"priority": ir.String(priority),
		"title":    ir.String("task " + id),
	}}
}

var byPriority = []queryir.SortTerm{
	{KeyPath: "priority", Ascending: true},
	{KeyPath: "title", Ascending: true},
}

// highLow is [(high,1),(high,2),(low,3)].
func highLow() []ir.Record {
	return []ir.Record{task("1", "high"), task("2", "high"), task("3", "low")}
}

func newTestController(t *testing.T, p Provider[ir.Record], opts ...Option) (*Controller[ir.Record, string], *testutil.Recorder[Event]) {
	t.Helper()
	c, err := New(context.Background(), p, RecordAccessor("tasks"), "priority", ir.KindString, byPriority, opts...)
	require.NoError(t, err)
	events := testutil.NewRecorder[Event]()
	c.SetChangeHandler(events.Record)
	t.Cleanup(func() { c.Close() })
	return c, events
}

// startWith starts c and delivers records as the initial result.
func startWith(t *testing.T, c *Controller[ir.Record, string], p *fakeProvider, records []ir.Record) {
	t.Helper()
	require.NoError(t, c.Start(context.Background()))
	p.last(t).obs.OnInitial(records)
}

// sectionsOf renders the current snapshot as key -> ids.
func sectionsOf(c *Controller[ir.Record, string]) [][]string {
	var out [][]string
	for s := 0; s < c.NumberOfSections(); s++ {
		var ids []string
		for i := 0; i < c.NumberOfItems(s); i++ {
			id, _ := c.ItemID(ir.IndexPath{Section: s, Item: i})
			ids = append(ids, id)
		}
		out = append(out, ids)
	}
	return out
}

package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/liveresults/internal/controller"
	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/queryir"
	"github.com/roach88/liveresults/internal/store"
	"github.com/roach88/liveresults/internal/testutil"
	"github.com/roach88/liveresults/internal/views"
)

// Harness is the test execution engine.
// It runs scenarios with a manual debounce clock and sequential record ids.
type Harness struct {
	store  *store.Store
	ctrl   *views.Controller
	schema ir.Schema
	view   ir.ViewSpec
	clock  *testutil.ManualClock
	ids    *testutil.SequentialIDs
	events *testutil.Recorder[controller.Event]
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database and define the schema
// 2. Apply setup writes
// 3. Start the view and wait for its first result
// 4. Execute flow steps, tracing events and sections after each
// 5. Evaluate assertions and return the result
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	// Create fresh in-memory SQLite database
	st, err := store.Open(":memory:", store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	schema, err := scenario.Schema.toSchema()
	if err != nil {
		return nil, err
	}
	if err := st.DefineSchema(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to define schema: %w", err)
	}
	view, err := scenario.View.toSpec(scenario.Name, schema)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:  st,
		schema: schema,
		view:   view,
		clock:  testutil.NewManualClock(),
		ids:    testutil.NewSequentialIDs(scenario.IDPrefix),
		events: testutil.NewRecorder[controller.Event](),
		logger: logger,
	}

	for i, step := range scenario.Setup {
		if _, err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("setup step %d: %w", i, err)
		}
	}

	c, err := views.New(ctx, st, view,
		controller.WithLogger(logger),
		controller.WithMetrics(false),
		controller.WithAfterFunc(func(d time.Duration, fn func()) controller.Timer {
			return h.clock.AfterFunc(d, fn)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create view: %w", err)
	}
	defer c.Close()
	h.ctrl = c
	c.SetChangeHandler(h.events.Record)

	result := NewResult()

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start view: %w", err)
	}
	if err := st.Barrier(ctx); err != nil {
		return nil, err
	}
	result.AddTrace(h.trace("start", "start", 0, ""))

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	result.State = FinalState{
		State:    c.State().String(),
		Sections: h.sections(),
		Titles:   c.IndexTitles(),
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeFlow runs all flow steps and validates expect clauses.
//
// Each step:
// 1. Applies its write or reconfiguration
// 2. Waits until the store has delivered every resulting notification
// 3. Traces the events recorded since the step began and the sections left
// 4. Checks the expect clause against what actually happened
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		before := h.events.Len()

		op, stepErr := h.execute(ctx, step)
		if stepErr != nil && (step.Expect == nil || step.Expect.Error == "") {
			return fmt.Errorf("flow step %d (%s): %w", i, op, stepErr)
		}
		if err := h.store.Barrier(ctx); err != nil {
			return err
		}

		errMsg := ""
		if stepErr != nil {
			errMsg = stepErr.Error()
		}
		ev := h.trace(fmt.Sprintf("flow[%d]", i), op, before, errMsg)
		result.AddTrace(ev)

		if step.Expect != nil {
			for _, msg := range checkExpect(i, step.Expect, ev) {
				result.AddError(msg)
			}
		}

		h.logger.Info("flow step completed",
			"step", i,
			"op", op,
			"events", len(ev.Events),
		)
	}
	return nil
}

// execute applies one step and describes it.
func (h *Harness) execute(ctx context.Context, step Step) (string, error) {
	switch {
	case step.Put != nil:
		rec, err := h.record(*step.Put)
		if err != nil {
			return "put", err
		}
		_, err = h.store.Put(ctx, h.schema.Collection, rec)
		return "put " + rec.ID, err

	case len(step.Batch) > 0:
		recs := make([]ir.Record, 0, len(step.Batch))
		ids := make([]string, 0, len(step.Batch))
		for _, p := range step.Batch {
			rec, err := h.record(p)
			if err != nil {
				return "batch", err
			}
			recs = append(recs, rec)
			ids = append(ids, rec.ID)
		}
		_, err := h.store.PutBatch(ctx, h.schema.Collection, recs)
		return "batch " + strings.Join(ids, ","), err

	case step.Delete != "":
		deleted, err := h.store.Delete(ctx, h.schema.Collection, step.Delete)
		if err == nil && !deleted {
			err = fmt.Errorf("no record %q", step.Delete)
		}
		return "delete " + step.Delete, err

	case step.Search != nil:
		where, err := h.object(step.Search)
		if err != nil {
			return "search", err
		}
		h.ctrl.SetSearchPredicate(queryir.Conjoin(views.Predicates(where)...))
		return "search " + describe(where), nil

	case step.Advance > 0:
		h.clock.Advance(step.Advance)
		return "advance " + step.Advance.String(), nil

	case step.Change != nil:
		req, op, err := h.changeRequest(*step.Change)
		if err != nil {
			return op, err
		}
		return op, h.ctrl.Change(ctx, req)

	case step.Reload:
		return "reload", h.ctrl.Reload(ctx)

	default:
		return "", fmt.Errorf("step has no operation")
	}
}

// record builds a record from a put step, generating an id if needed.
func (h *Harness) record(p PutStep) (ir.Record, error) {
	id := p.ID
	if id == "" {
		id = h.ids.Generate()
	}
	attrs, err := h.object(p.Attrs)
	if err != nil {
		return ir.Record{}, fmt.Errorf("record %s: %w", id, err)
	}
	return ir.Record{ID: id, Attrs: attrs}, nil
}

// object converts YAML attributes using the scenario schema.
func (h *Harness) object(raw map[string]interface{}) (ir.Object, error) {
	return ir.ObjectFromNative(raw, h.schema)
}

// changeRequest translates a change step.
func (h *Harness) changeRequest(cs ChangeStep) (controller.ChangeRequest, string, error) {
	var req controller.ChangeRequest
	var parts []string

	if cs.Where != nil {
		where, err := h.object(cs.Where)
		if err != nil {
			return req, "change", err
		}
		req.Predicates = views.Predicates(where)
		if req.Predicates == nil {
			req.Predicates = []queryir.Predicate{}
		}
		parts = append(parts, "where="+describe(where))
	}
	if len(cs.Sort) > 0 {
		req.SortTerms = views.SortTerms(sortSpecs(cs.Sort))
		keys := make([]string, len(cs.Sort))
		for i, s := range cs.Sort {
			keys[i] = s.Key
		}
		parts = append(parts, "sort="+strings.Join(keys, ","))
	}
	if cs.SectionKey != "" {
		key := cs.SectionKey
		req.SectionKeyPath = &key
		if kind, ok := h.schema.Field(key); ok {
			req.Kind = &kind
		}
		parts = append(parts, "section_key="+key)
	}
	return req, "change " + strings.Join(parts, " "), nil
}

// trace captures the events recorded after index since and the current
// sections.
func (h *Harness) trace(step, op string, since int, errMsg string) TraceEvent {
	ev := TraceEvent{
		Step:     step,
		Op:       op,
		Events:   []string{},
		Sections: h.sections(),
		Error:    errMsg,
	}
	for _, e := range h.events.Since(since) {
		ev.Events = append(ev.Events, e.String())
	}
	return ev
}

// sections reads the current snapshot of the view.
func (h *Harness) sections() []SectionState {
	titles := make(map[string]string)
	for _, pair := range h.ctrl.IndexTitlePairs() {
		titles[ir.Format(pair.Key)] = pair.Title
	}

	out := []SectionState{}
	for s := 0; s < h.ctrl.NumberOfSections(); s++ {
		key, _ := h.ctrl.Section(s)
		state := SectionState{
			Key:   ir.Format(key),
			Title: titles[ir.Format(key)],
			Items: []string{},
		}
		for i := 0; i < h.ctrl.NumberOfItems(s); i++ {
			id, _ := h.ctrl.ItemID(ir.IndexPath{Section: s, Item: i})
			state.Items = append(state.Items, id)
		}
		out = append(out, state)
	}
	return out
}

// toSchema resolves the declared kind names.
func (d SchemaDef) toSchema() (ir.Schema, error) {
	fields := make(map[string]ir.Kind, len(d.Fields))
	for name, kindName := range d.Fields {
		kind, err := ir.ParseKind(kindName)
		if err != nil {
			return ir.Schema{}, fmt.Errorf("schema field %q: %w", name, err)
		}
		fields[name] = kind
	}
	return ir.Schema{Collection: d.Collection, Fields: fields}, nil
}

// toSpec builds the view definition. Without sort terms the view sorts by
// its section key.
func (d ViewDef) toSpec(name string, schema ir.Schema) (ir.ViewSpec, error) {
	spec := ir.ViewSpec{
		Name:       name,
		Collection: schema.Collection,
		SectionKey: d.SectionKey,
		Sort:       sortSpecs(d.Sort),
		Titles:     d.Titles,
		TitleOrder: d.TitleOrder,
		Locale:     d.Locale,
		KeyPolicy:  d.KeyPolicy,
		Moves:      d.Moves,
	}
	if len(spec.Sort) == 0 {
		spec.Sort = []ir.SortSpec{{Key: d.SectionKey, Ascending: true}}
	}
	if d.Kind != "" {
		kind, err := ir.ParseKind(d.Kind)
		if err != nil {
			return ir.ViewSpec{}, fmt.Errorf("view kind: %w", err)
		}
		spec.Kind = kind
	}
	if d.Where != nil {
		where, err := ir.ObjectFromNative(d.Where, schema)
		if err != nil {
			return ir.ViewSpec{}, fmt.Errorf("view where: %w", err)
		}
		spec.Where = where
	}
	return spec, nil
}

func sortSpecs(defs []SortDef) []ir.SortSpec {
	specs := make([]ir.SortSpec, len(defs))
	for i, d := range defs {
		specs[i] = ir.SortSpec{Key: d.Key, Ascending: !d.Descending}
	}
	return specs
}

// describe renders filters as "a=1,b=x" in attribute order.
func describe(where ir.Object) string {
	keys := where.SortedKeys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + ir.Format(where[k])
	}
	return strings.Join(parts, ",")
}

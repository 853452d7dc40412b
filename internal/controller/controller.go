package controller

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/partition"
	"github.com/roach88/liveresults/internal/queryir"
)

// State is the lifecycle state of a Controller.
type State int

const (
	// StateUninitialized is the state between New and the first Start.
	StateUninitialized State = iota
	// StateLoading waits for the provider's initial result.
	StateLoading
	// StateReady holds a snapshot and applies updates as they arrive.
	StateReady
	// StateClosed is terminal.
	StateClosed
)

var stateNames = map[State]string{
	StateUninitialized: "uninitialized",
	StateLoading:       "loading",
	StateReady:         "ready",
	StateClosed:        "closed",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// config is the query-shaping part of the controller configuration.
type config struct {
	predicates []queryir.Predicate
	sortTerms  []queryir.SortTerm
	keyPath    string
	kind       ir.Kind
}

// ChangeRequest reconfigures a Controller. Nil fields keep their current
// value; a request with every field nil is a Reload.
type ChangeRequest struct {
	// Predicates replaces the filter predicates. Use an empty, non-nil
	// slice to remove every predicate.
	Predicates []queryir.Predicate

	// SortTerms replaces the sort terms.
	SortTerms []queryir.SortTerm

	// SectionKeyPath replaces the section key path.
	SectionKeyPath *string

	// Kind replaces the declared section key kind.
	Kind *ir.Kind
}

// apply returns cfg with the request's non-nil fields substituted.
func (cfg config) apply(req ChangeRequest) config {
	next := cfg
	if req.Predicates != nil {
		next.predicates = slices.Clone(req.Predicates)
	}
	if req.SortTerms != nil {
		next.sortTerms = slices.Clone(req.SortTerms)
	}
	if req.SectionKeyPath != nil {
		next.keyPath = *req.SectionKeyPath
	}
	if req.Kind != nil {
		next.kind = *req.Kind
	}
	return next
}

// snapshot is an immutable sectioned view. Readers load it atomically.
type snapshot[ID comparable] struct {
	partition  *partition.Partition[ID]
	titles     []string
	pairs      []partition.SectionTitle
	generation uint64
	loaded     bool
}

func emptySnapshot[ID comparable](generation uint64) *snapshot[ID] {
	return &snapshot[ID]{partition: partition.New[ID](), generation: generation}
}

// Controller sections the live result of a provider query and reports
// every change as nested edit events.
//
// Thread-safety model:
//   - Configuration (Start, Reload, Change, SetSearchPredicate, Close) and
//     Item/Objects are meant for the consumer context
//   - Read operations (NumberOfSections, Section, IndexTitles...) are safe
//     from any goroutine; they read one immutable snapshot
//   - Building and diffing run on the provider's notification goroutine,
//     serialized per controller; the snapshot swap and the change handler
//     run inside the Dispatcher
//
// INVARIANTS:
//   - Every configuration change bumps the generation; notifications and
//     diffs of an older generation are dropped, never applied
//   - Events are emitted in notification order
//   - A config error leaves configuration and state untouched
type Controller[R any, ID comparable] struct {
	provider Provider[R]
	access   Accessor[R, ID]
	opts     settings

	mu          sync.Mutex
	cfg         config
	search      queryir.Predicate
	searchDelay time.Duration
	searchTimer Timer
	searchSeq   uint64
	sub         ir.Subscription
	state       State
	err         error
	handler     func(Event)

	generation atomic.Uint64
	processMu  sync.Mutex // build + diff + swap, one notification at a time
	snap       atomic.Pointer[snapshot[ID]]
}

// New creates a Controller for the records of access.Collection, sectioned
// by the attribute at sectionKeyPath, which must hold values of kind.
//
// The configuration is validated against the provider's schema and a
// *ConfigError is returned if it cannot work. The controller does nothing
// until Start is called.
func New[R any, ID comparable](
	ctx context.Context,
	provider Provider[R],
	access Accessor[R, ID],
	sectionKeyPath string,
	kind ir.Kind,
	sortTerms []queryir.SortTerm,
	opts ...Option,
) (*Controller[R, ID], error) {
	if provider == nil {
		return nil, fmt.Errorf("controller: nil provider")
	}
	if access.Collection == "" || access.Identity == nil || access.Attr == nil {
		return nil, fmt.Errorf("controller: accessor requires Collection, Identity and Attr")
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	c := &Controller[R, ID]{
		provider: provider,
		access:   access,
		opts:     s,
		cfg: config{
			predicates: slices.Clone(s.predicates),
			sortTerms:  slices.Clone(sortTerms),
			keyPath:    sectionKeyPath,
			kind:       kind,
		},
		searchDelay: s.searchDelay,
	}
	c.snap.Store(emptySnapshot[ID](0))

	if err := c.validate(ctx, c.cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Start subscribes to the provider. The first result arrives as a Reload
// event.
func (c *Controller[R, ID]) Start(ctx context.Context) error {
	return c.setup(ctx, nil)
}

// Reload discards the current snapshot and subscribes again with the
// current configuration.
func (c *Controller[R, ID]) Reload(ctx context.Context) error {
	return c.setup(ctx, nil)
}

// Change reconfigures the controller and reloads. On a config error the
// previous configuration stays in effect.
func (c *Controller[R, ID]) Change(ctx context.Context, req ChangeRequest) error {
	c.mu.Lock()
	next := c.cfg.apply(req)
	c.mu.Unlock()
	return c.setup(ctx, &next)
}

// SetChangeHandler sets the function that receives change events on the
// consumer context. A nil handler discards events.
func (c *Controller[R, ID]) SetChangeHandler(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// State returns the lifecycle state.
func (c *Controller[R, ID]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that halted the current subscription, or nil.
// After an error the snapshot stays frozen until the next reload.
func (c *Controller[R, ID]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Generation returns the current configuration generation.
func (c *Controller[R, ID]) Generation() uint64 {
	return c.generation.Load()
}

// Collection returns the observed collection.
func (c *Controller[R, ID]) Collection() string {
	return c.access.Collection
}

// SectionKeyPath returns the current section key path.
func (c *Controller[R, ID]) SectionKeyPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.keyPath
}

// SortTerms returns a copy of the current sort terms.
func (c *Controller[R, ID]) SortTerms() []queryir.SortTerm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cfg.sortTerms)
}

// Predicates returns a copy of the configured predicates, without the
// search predicate.
func (c *Controller[R, ID]) Predicates() []queryir.Predicate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cfg.predicates)
}

// Close stops the subscription and the search timer. Events already being
// delivered may still arrive; nothing is emitted afterwards.
func (c *Controller[R, ID]) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	c.generation.Add(1)
	sub := c.sub
	c.sub = nil
	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}
	c.searchSeq++
	c.mu.Unlock()

	if sub != nil {
		sub.Stop()
	}
	c.opts.logger.Debug("controller closed", "collection", c.access.Collection)
	return nil
}

// setup validates a configuration, resets the snapshot and resubscribes.
// next nil means the current configuration.
func (c *Controller[R, ID]) setup(ctx context.Context, next *config) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	cfg := c.cfg
	if next != nil {
		cfg = *next
	}
	c.mu.Unlock()

	if err := c.validate(ctx, cfg); err != nil {
		c.opts.logger.Warn("configuration rejected",
			"collection", c.access.Collection,
			"error", err,
		)
		return err
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.cfg = cfg
	gen := c.generation.Add(1)
	old := c.sub
	c.sub = nil
	c.err = nil
	c.state = StateLoading
	c.snap.Store(emptySnapshot[ID](gen))
	q := c.query(cfg, c.search)
	c.mu.Unlock()

	if old != nil {
		old.Stop()
	}

	obs := &observer[R, ID]{c: c, generation: gen, cfg: cfg}
	sub, err := c.provider.Observe(ctx, q, obs)
	if err != nil {
		err = fmt.Errorf("observe %s: %w", c.access.Collection, err)
		c.mu.Lock()
		if c.generation.Load() == gen {
			c.err = err
		}
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.generation.Load() != gen {
		c.mu.Unlock()
		sub.Stop()
		return nil
	}
	c.sub = sub
	c.mu.Unlock()

	c.opts.logger.Debug("subscribed",
		"collection", c.access.Collection,
		"generation", gen,
		"token", sub.Token(),
		"key_path", cfg.keyPath,
	)
	return nil
}

// query builds the provider query of a configuration.
func (c *Controller[R, ID]) query(cfg config, search queryir.Predicate) queryir.Select {
	preds := slices.Clone(cfg.predicates)
	if search != nil {
		preds = append(preds, search)
	}
	return queryir.Select{
		From:    c.access.Collection,
		Filter:  queryir.Conjoin(preds...),
		OrderBy: slices.Clone(cfg.sortTerms),
	}
}

// currentQuery is the provider query of the configuration in effect.
func (c *Controller[R, ID]) currentQuery() (queryir.Select, config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query(c.cfg, c.search), c.cfg
}

package controller

import (
	"log/slog"
	"time"

	"github.com/roach88/liveresults/internal/partition"
	"github.com/roach88/liveresults/internal/queryir"
)

// DefaultSearchDelay is how long a search predicate waits before it reloads.
const DefaultSearchDelay = 400 * time.Millisecond

// Option configures a Controller.
type Option func(*settings)

// settings holds the option values shared by every Controller instantiation.
type settings struct {
	predicates   []queryir.Predicate
	searchDelay  time.Duration
	dispatcher   Dispatcher
	formatTitle  partition.TitleFormatter
	sortTitles   partition.TitleSorter
	keyPolicy    partition.KeyPolicy
	includeMoves bool
	logger       *slog.Logger
	onError      func(error)
	metrics      bool
	afterFunc    AfterFunc
}

// Timer is a pending debounce timer.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func defaultSettings() settings {
	return settings{
		searchDelay: DefaultSearchDelay,
		dispatcher:  Inline{},
		logger:      slog.Default(),
		metrics:     true,
		afterFunc:   realAfterFunc,
	}
}

// WithPredicates sets the filter predicates. They are combined with And.
func WithPredicates(preds ...queryir.Predicate) Option {
	return func(s *settings) {
		s.predicates = append([]queryir.Predicate(nil), preds...)
	}
}

// WithSearchDelay sets the search predicate debounce interval.
//
// Default: 400ms (DefaultSearchDelay)
func WithSearchDelay(d time.Duration) Option {
	return func(s *settings) {
		s.searchDelay = d
	}
}

// WithDispatcher sets the consumer context. Default: Inline.
func WithDispatcher(d Dispatcher) Option {
	return func(s *settings) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithTitleFormatter enables section index titles.
func WithTitleFormatter(f partition.TitleFormatter) Option {
	return func(s *settings) {
		s.formatTitle = f
	}
}

// WithTitleSorter reorders section index titles after formatting.
func WithTitleSorter(f partition.TitleSorter) Option {
	return func(s *settings) {
		s.sortTitles = f
	}
}

// WithKeyPolicy selects what happens to records without a usable section
// key. Default: partition.SkipInvalid.
func WithKeyPolicy(p partition.KeyPolicy) Option {
	return func(s *settings) {
		s.keyPolicy = p
	}
}

// WithMoves reports moves instead of delete+insert pairs.
func WithMoves(include bool) Option {
	return func(s *settings) {
		s.includeMoves = include
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithErrorHandler receives subscription and build errors on the consumer
// context. The view stays frozen on its last good snapshot afterwards.
func WithErrorHandler(fn func(error)) Option {
	return func(s *settings) {
		s.onError = fn
	}
}

// WithMetrics turns Prometheus instrumentation on or off. Default: on.
func WithMetrics(enabled bool) Option {
	return func(s *settings) {
		s.metrics = enabled
	}
}

// WithAfterFunc replaces the timer source of the search debounce.
// Default: time.AfterFunc.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *settings) {
		if fn != nil {
			s.afterFunc = fn
		}
	}
}

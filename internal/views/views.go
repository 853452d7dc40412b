// Package views turns compiled view definitions into results controllers.
package views

import (
	"context"
	"fmt"

	"golang.org/x/text/language"

	"github.com/roach88/liveresults/internal/compiler"
	"github.com/roach88/liveresults/internal/controller"
	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/partition"
	"github.com/roach88/liveresults/internal/queryir"
)

// Controller is a results controller over store records.
type Controller = controller.Controller[ir.Record, string]

// Options translates a view definition into controller options.
func Options(view ir.ViewSpec) ([]controller.Option, error) {
	locale := view.Locale
	if locale == "" {
		locale = "en"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("view %s: locale: %w", view.Name, err)
	}
	policy, err := partition.ParseKeyPolicy(view.KeyPolicy)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", view.Name, err)
	}

	opts := []controller.Option{
		controller.WithPredicates(Predicates(view.Where)...),
		controller.WithKeyPolicy(policy),
		controller.WithMoves(view.Moves),
	}

	switch view.Titles {
	case "", compiler.TitlesNone:
	case compiler.TitlesKey:
		opts = append(opts, controller.WithTitleFormatter(partition.KeyTitles()))
	case compiler.TitlesInitial:
		opts = append(opts, controller.WithTitleFormatter(partition.InitialTitles(tag)))
	default:
		return nil, fmt.Errorf("view %s: unknown titles %q", view.Name, view.Titles)
	}

	switch view.TitleOrder {
	case "", compiler.TitleOrderNone:
	case compiler.TitleOrderAlphabetical:
		opts = append(opts, controller.WithTitleSorter(partition.AlphabeticalTitles(tag)))
	default:
		return nil, fmt.Errorf("view %s: unknown title_order %q", view.Name, view.TitleOrder)
	}
	return opts, nil
}

// Predicates turns equality filters into predicates, in attribute order so
// queries are deterministic.
func Predicates(where ir.Object) []queryir.Predicate {
	var preds []queryir.Predicate
	for _, name := range where.SortedKeys() {
		preds = append(preds, queryir.Equals{Field: name, Value: where[name]})
	}
	return preds
}

// SortTerms converts view sort specs into query sort terms.
func SortTerms(specs []ir.SortSpec) []queryir.SortTerm {
	terms := make([]queryir.SortTerm, len(specs))
	for i, s := range specs {
		terms[i] = queryir.SortTerm{KeyPath: s.Key, Ascending: s.Ascending}
	}
	return terms
}

// ResolveKind returns the section key kind of a view. A view without a
// declared kind takes the kind the collection schema declares for its
// section key; KindInvalid is returned when there is none, which New then
// reports as a config error.
func ResolveKind(ctx context.Context, provider controller.Provider[ir.Record], view ir.ViewSpec) ir.Kind {
	if view.Kind != ir.KindInvalid {
		return view.Kind
	}
	schema, err := provider.Schema(ctx, view.Collection)
	if err != nil {
		return ir.KindInvalid
	}
	kind, _ := schema.Field(view.SectionKey)
	return kind
}

// New builds a controller for a view over provider. Extra options are
// applied after the view's own. Config errors are returned unwrapped as
// *controller.ConfigError.
func New(ctx context.Context, provider controller.Provider[ir.Record], view ir.ViewSpec, extra ...controller.Option) (*Controller, error) {
	opts, err := Options(view)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	return controller.New(ctx, provider,
		controller.RecordAccessor(view.Collection),
		view.SectionKey,
		ResolveKind(ctx, provider, view),
		SortTerms(view.Sort),
		opts...,
	)
}

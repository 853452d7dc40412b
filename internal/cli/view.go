package cli

import (
	"context"
	"fmt"

	"github.com/roach88/liveresults/internal/controller"
	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/store"
	"github.com/roach88/liveresults/internal/views"
)

// RecordController is a controller over store records.
type RecordController = views.Controller

// openStore opens the configured database.
func openStore(opts *RootOptions) (*store.Store, error) {
	st, err := store.Open(opts.Config.DB, store.WithLogger(opts.Logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// loadView compiles the configured specs and returns one view.
func loadView(opts *RootOptions, name string) (ir.ViewSpec, error) {
	result, errs := LoadSpecs(opts.Config.Specs, LoadModeFailFast)
	if len(errs) > 0 {
		return ir.ViewSpec{}, WrapExitError(ExitCommandError, "failed to load specs", errs[0])
	}
	view, ok := result.View(name)
	if !ok {
		return ir.ViewSpec{}, NewExitError(ExitCommandError,
			fmt.Sprintf("%s: unknown view %q (have %v)", ErrCodeNoView, name, result.ViewNames()))
	}
	return view, nil
}

// newViewController builds a controller for a view over st, logging
// through the root logger with the configured search delay.
func newViewController(ctx context.Context, st *store.Store, view ir.ViewSpec, root *RootOptions, extra ...controller.Option) (*RecordController, error) {
	opts := []controller.Option{
		controller.WithLogger(root.Logger),
		controller.WithSearchDelay(root.Config.SearchDelay),
	}
	opts = append(opts, extra...)

	c, err := views.New(ctx, st, view, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s: view %s rejected", ErrCodeViewConfig, view.Name), err)
	}
	return c, nil
}

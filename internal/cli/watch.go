package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/liveresults/internal/controller"
	"github.com/roach88/liveresults/internal/metrics"
	"github.com/roach88/liveresults/internal/queryir"
	"github.com/roach88/liveresults/internal/views"
)

// DefaultPollInterval is how often watch checks for writes by other
// processes.
const DefaultPollInterval = 250 * time.Millisecond

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	PollInterval time.Duration
	Count        int
	NoColor      bool
	Show         bool
	Columns      []string
	Search       []string
	Metrics      bool
}

// WatchEvent is one line of JSON watch output.
type WatchEvent struct {
	View string `json:"view"`
	controller.Event
	Sections int `json:"sections"`
	Items    int `json:"items"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <view>",
		Short: "Follow the changes of a view",
		Long: `Follow the changes of a view.

Prints one line per change event: reload, section_change or row_change.
Writes by other liveresults processes sharing the database are picked up
every --poll interval. With --format json every event is one JSON object
per line.

Examples:
  liveresults watch by_priority --show --columns title
  liveresults watch by_priority --search title="Write docs"
  liveresults watch by_priority --count 3 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.PollInterval, "poll", DefaultPollInterval, "interval between checks for foreign writes")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "exit after this many events (0 = run until interrupted)")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&opts.Show, "show", false, "print the sections after every reload")
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "attributes to show with --show")
	cmd.Flags().StringArrayVar(&opts.Search, "search", nil, "debounced search filter attr=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "serve Prometheus metrics (overrides metrics.enabled)")

	return cmd
}

func runWatch(opts *WatchOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger

	if opts.PollInterval <= 0 {
		return NewExitError(ExitCommandError, "--poll must be positive")
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	view, err := loadView(opts.RootOptions, name)
	if err != nil {
		_ = formatter.Error(ErrCodeNoView, err.Error(), nil)
		return err
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	search, err := parseWhere(ctx, st, view.Collection, opts.Search)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --search", err)
	}

	if opts.Metrics || opts.Config.Metrics.Enabled {
		stop, err := serveMetrics(opts.Config.Metrics.Addr, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to serve metrics", err)
		}
		defer stop()
	}

	loop := controller.NewLoop()
	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("consumer loop stopped", "error", err)
		}
	}()
	defer func() {
		loop.Stop()
		<-loop.Done()
	}()

	failed := make(chan error, 1)
	c, err := newViewController(ctx, st, view, opts.RootOptions,
		controller.WithDispatcher(loop),
		controller.WithErrorHandler(func(err error) {
			select {
			case failed <- err:
			default:
			}
		}),
	)
	if err != nil {
		_ = formatter.Error(ErrCodeViewConfig, err.Error(), nil)
		return err
	}
	defer c.Close()

	printer := newEventPrinter(formatter.Writer, view.Name, formatter.Format == "json", opts.NoColor)
	var seen atomic.Int64
	c.SetChangeHandler(func(ev controller.Event) {
		printer.print(ev, c.NumberOfSections(), itemCount(c))
		if opts.Show && ev.Kind == controller.EventReload && formatter.Format != "json" {
			if snap, err := snapshotView(ctx, c, view.Name, opts.Columns); err == nil {
				fmt.Fprintln(formatter.Writer, renderSnapshot(snap, opts.Columns))
			}
		}
		if n := seen.Add(1); opts.Count > 0 && n >= int64(opts.Count) {
			cancel()
		}
	})

	logger.Info("watching view", "view", view.Name, "collection", view.Collection, "db", opts.Config.DB)
	if err := c.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start view", err)
	}
	if len(search) > 0 {
		c.SetSearchPredicate(queryir.Conjoin(views.Predicates(search)...))
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped", "view", view.Name, "events", seen.Load())
			return nil
		case err := <-failed:
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitFailure, "view failed", err)
		case <-ticker.C:
			if _, err := st.Poll(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("poll failed", "error", err)
			}
		}
	}
}

// eventPrinter writes change events as colored text or JSON lines. It is
// only called from the consumer loop.
type eventPrinter struct {
	w    io.Writer
	view string
	json bool

	reload  *color.Color
	section *color.Color
	row     *color.Color
}

func newEventPrinter(w io.Writer, view string, asJSON, noColor bool) *eventPrinter {
	p := &eventPrinter{
		w:       w,
		view:    view,
		json:    asJSON,
		reload:  color.New(color.FgCyan, color.Bold),
		section: color.New(color.FgYellow),
		row:     color.New(color.FgGreen),
	}
	if noColor || asJSON {
		p.reload.DisableColor()
		p.section.DisableColor()
		p.row.DisableColor()
	}
	return p
}

func (p *eventPrinter) print(ev controller.Event, sections, items int) {
	if p.json {
		_ = json.NewEncoder(p.w).Encode(WatchEvent{View: p.view, Event: ev, Sections: sections, Items: items})
		return
	}

	c := p.row
	switch ev.Kind {
	case controller.EventReload:
		c = p.reload
	case controller.EventSectionChange:
		c = p.section
	}
	label := c.Sprintf("%-14s", ev.Kind.String())
	detail := ev.String()[len(ev.Kind.String()):]
	fmt.Fprintf(p.w, "[%d] %s%s (%d section(s), %d item(s))\n", ev.Generation, label, detail, sections, items)
}

// serveMetrics serves /metrics on addr until the returned stop is called.
func serveMetrics(addr string, logger *slog.Logger) (func(), error) {
	handler, err := metrics.Handler()
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

// itemCount is the item total of the current snapshot.
func itemCount(c *RecordController) int {
	total := 0
	for s := 0; s < c.NumberOfSections(); s++ {
		total += c.NumberOfItems(s)
	}
	return total
}

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/store"
)

// SectionsOptions holds flags for the sections command.
type SectionsOptions struct {
	*RootOptions
	Columns []string
	Where   []string
}

// ViewSnapshot is one rendering of a sectioned view.
type ViewSnapshot struct {
	View        string            `json:"view"`
	Generation  uint64            `json:"generation"`
	IndexTitles []string          `json:"index_titles,omitempty"`
	Sections    []SectionSnapshot `json:"sections"`
}

// SectionSnapshot is one section of a ViewSnapshot.
type SectionSnapshot struct {
	Key   string         `json:"key"`
	Title string         `json:"title,omitempty"`
	Items []ItemSnapshot `json:"items"`
}

// ItemSnapshot is one row of a SectionSnapshot.
type ItemSnapshot struct {
	ID    string            `json:"id"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// NewSectionsCommand creates the sections command.
func NewSectionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SectionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sections <view>",
		Short: "Print the current sections of a view",
		Long: `Print the current sections of a view.

The view is read from the configured specs and evaluated once against the
database.

Examples:
  liveresults sections by_priority --specs ./specs
  liveresults sections by_priority --columns title --where done=false`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSections(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "attributes to show for each row")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "extra equality filter attr=value (repeatable)")

	return cmd
}

func runSections(opts *SectionsOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	view, err := loadView(opts.RootOptions, name)
	if err != nil {
		_ = formatter.Error(ErrCodeNoView, err.Error(), nil)
		return err
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	extra, err := parseWhere(ctx, st, view.Collection, opts.Where)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --where", err)
	}
	view.Where = mergeWhere(view.Where, extra)

	c, err := newViewController(ctx, st, view, opts.RootOptions)
	if err != nil {
		_ = formatter.Error(ErrCodeViewConfig, err.Error(), nil)
		return err
	}
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start view", err)
	}
	if err := st.Barrier(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to load view", err)
	}
	if err := c.Err(); err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "view failed", err)
	}

	snap, err := snapshotView(ctx, c, view.Name, opts.Columns)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read view", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(snap)
	}
	fmt.Fprintln(formatter.Writer, renderSnapshot(snap, opts.Columns))
	return nil
}

// snapshotView reads the current sections of c. Attributes named by columns
// are fetched with one provider query.
func snapshotView(ctx context.Context, c *RecordController, name string, columns []string) (ViewSnapshot, error) {
	snap := ViewSnapshot{
		View:        name,
		Generation:  c.Generation(),
		IndexTitles: c.IndexTitles(),
		Sections:    []SectionSnapshot{},
	}

	var byID map[string]ir.Record
	if len(columns) > 0 {
		records, err := c.Objects(ctx)
		if err != nil {
			return ViewSnapshot{}, err
		}
		byID = make(map[string]ir.Record, len(records))
		for _, rec := range records {
			byID[rec.ID] = rec
		}
	}

	titles := make(map[string]string)
	for _, pair := range c.IndexTitlePairs() {
		titles[ir.Format(pair.Key)] = pair.Title
	}

	for s := 0; s < c.NumberOfSections(); s++ {
		key, _ := c.Section(s)
		section := SectionSnapshot{
			Key:   ir.Format(key),
			Title: titles[ir.Format(key)],
			Items: []ItemSnapshot{},
		}
		for i := 0; i < c.NumberOfItems(s); i++ {
			id, _ := c.ItemID(ir.IndexPath{Section: s, Item: i})
			item := ItemSnapshot{ID: id}
			if rec, ok := byID[id]; ok {
				item.Attrs = make(map[string]string, len(columns))
				for _, col := range columns {
					item.Attrs[col] = ir.Format(rec.Attrs[col])
				}
			}
			section.Items = append(section.Items, item)
		}
		snap.Sections = append(snap.Sections, section)
	}
	return snap, nil
}

// renderSnapshot renders a snapshot as a table, one row per item.
func renderSnapshot(snap ViewSnapshot, columns []string) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(fmt.Sprintf("%s (generation %d)", snap.View, snap.Generation))

	header := table.Row{"Section", "Title", "#", "ID"}
	for _, col := range columns {
		header = append(header, col)
	}
	tbl.AppendHeader(header)

	for _, section := range snap.Sections {
		for i, item := range section.Items {
			row := table.Row{section.Key, section.Title, i, item.ID}
			for _, col := range columns {
				row = append(row, item.Attrs[col])
			}
			tbl.AppendRow(row)
		}
		tbl.AppendSeparator()
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d section(s)", len(snap.Sections))})
	if len(snap.IndexTitles) > 0 {
		tbl.AppendFooter(table.Row{"Index", strings.Join(snap.IndexTitles, " ")})
	}
	return tbl.Render()
}

// parseWhere parses attr=value filters. Values are coerced into the kind
// the schema declares for the attribute, or kept as strings.
func parseWhere(ctx context.Context, st *store.Store, collection string, filters []string) (ir.Object, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	schema, err := schemaOrEmpty(ctx, st, collection)
	if err != nil {
		return nil, err
	}

	where := make(ir.Object, len(filters))
	for _, f := range filters {
		attr, raw, ok := strings.Cut(f, "=")
		if !ok || attr == "" {
			return nil, fmt.Errorf("filter %q: want attr=value", f)
		}
		kind, declared := schema.Field(attr)
		if !declared {
			where[attr] = ir.String(raw)
			continue
		}
		val, err := parseScalar(raw, kind)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", f, err)
		}
		where[attr] = val
	}
	return where, nil
}

// parseScalar converts a command-line value into a value of kind. Numbers
// and booleans use YAML scalar syntax.
func parseScalar(raw string, kind ir.Kind) (ir.Value, error) {
	var native interface{} = raw
	switch kind {
	case ir.KindBool, ir.KindInt, ir.KindUint, ir.KindFloat:
		var decoded interface{}
		if err := yaml.Unmarshal([]byte(raw), &decoded); err != nil {
			return nil, fmt.Errorf("%q: %w", raw, err)
		}
		native = decoded
		if n, ok := decoded.(int); ok && kind == ir.KindFloat {
			native = float64(n)
		}
	case ir.KindBytes:
		native = []byte(raw)
	}
	val, ok := ir.Coerce(native, kind)
	if !ok {
		return nil, fmt.Errorf("%q is not a %s", raw, kind)
	}
	return val, nil
}

// mergeWhere returns base with extra's filters added; extra wins on
// conflicts.
func mergeWhere(base, extra ir.Object) ir.Object {
	if len(extra) == 0 {
		return base
	}
	out := make(ir.Object, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}


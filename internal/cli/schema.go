package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/store"
)

// NewSchemaCommand creates the schema command and its subcommands.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage collection schemas",
		Long: `Manage collection schemas.

Views are checked against the schema of their collection: the section key
must be a declared attribute of the declared kind.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "apply [specs]",
		Short: "Store the schemas declared in CUE specs",
		Long: `Store the schemas declared in CUE specs.

Example:
  liveresults schema apply ./specs --db ./tasks.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaApply(rootOpts, specsArg(rootOpts, args), cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "show [collection]",
		Short:         "Show stored schemas",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := ""
			if len(args) > 0 {
				collection = args[0]
			}
			return runSchemaShow(rootOpts, collection, cmd)
		},
	})

	return cmd
}

func runSchemaApply(opts *RootOptions, specs string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result, errs := LoadSpecs(specs, LoadModeCollectAll)
	if result == nil || len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}
	if len(result.Schemas) == 0 {
		return outputCompileError(formatter, ErrCodeGeneric, "no schemas found in specs", nil)
	}

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	applied := make([]string, 0, len(result.Schemas))
	for _, schema := range result.Schemas {
		if err := st.DefineSchema(cmd.Context(), schema); err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to define schema", err)
		}
		formatter.VerboseLog("Defined schema: %s", schema.Collection)
		applied = append(applied, schema.Collection)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]interface{}{"applied": applied})
	}
	fmt.Fprintf(formatter.Writer, "✓ Applied %d schema(s): %v\n", len(applied), applied)
	return nil
}

func runSchemaShow(opts *RootOptions, collection string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	names := []string{collection}
	if collection == "" {
		if names, err = st.Collections(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to list collections", err)
		}
	}

	schemas := make([]ir.Schema, 0, len(names))
	for _, name := range names {
		schema, err := st.Schema(ctx, name)
		if errors.Is(err, store.ErrNoSchema) {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "schema not found", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read schema", err)
		}
		schemas = append(schemas, schema)
	}

	if formatter.Format == "json" {
		return formatter.Success(schemas)
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Collection", "Attribute", "Kind"})
	for _, schema := range schemas {
		attrs := make([]string, 0, len(schema.Fields))
		for name := range schema.Fields {
			attrs = append(attrs, name)
		}
		sort.Strings(attrs)
		for _, name := range attrs {
			tbl.AppendRow(table.Row{schema.Collection, name, schema.Fields[name].String()})
		}
	}
	fmt.Fprintln(formatter.Writer, tbl.Render())
	return nil
}

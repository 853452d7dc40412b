package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/liveresults/internal/controller"
	"github.com/roach88/liveresults/internal/store"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Offline bool
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool        `json:"valid"`
	Views []ViewCheck `json:"views"`
}

// ViewCheck is the validation outcome of one view.
type ViewCheck struct {
	View    string `json:"view"`
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [specs]",
		Short: "Check views against collection schemas",
		Long: `Check every view against the schema of its collection.

A view is valid when its sort terms start with the section key, and the
section key is a declared attribute of the declared kind. Schemas are read
from the database, or from the specs themselves with --offline.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, specsArg(rootOpts, args), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "validate against the schemas declared in the specs, not the database")

	return cmd
}

func runValidate(opts *ValidateOptions, specs string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	loadResult, loadErrors := LoadSpecs(specs, LoadModeCollectAll)
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	dbPath := opts.Config.DB
	if opts.Offline {
		dbPath = ":memory:"
	}
	st, err := store.Open(dbPath, store.WithLogger(opts.Logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Offline {
		for _, schema := range loadResult.Schemas {
			if err := st.DefineSchema(ctx, schema); err != nil {
				return WrapExitError(ExitCommandError, "failed to define schema", err)
			}
		}
	}

	result := ValidationResult{Valid: true, Views: []ViewCheck{}}
	for _, view := range loadResult.Views {
		check := ViewCheck{View: view.Name, Valid: true}
		c, err := newViewController(ctx, st, view, opts.RootOptions)
		if err != nil {
			check.Valid = false
			check.Code, check.Message = viewErrorCode(err)
			result.Valid = false
		} else {
			_ = c.Close()
		}
		formatter.VerboseLog("Checked view %s: valid=%t", view.Name, check.Valid)
		result.Views = append(result.Views, check)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// viewErrorCode extracts the controller error code of a rejected view.
func viewErrorCode(err error) (string, string) {
	var ce *controller.ConfigError
	if errors.As(err, &ce) {
		return string(ce.Code), ce.Message
	}
	return ErrCodeViewConfig, err.Error()
}

func outputValidateText(formatter *OutputFormatter, result ValidationResult) {
	if result.Valid {
		fmt.Fprintf(formatter.Writer, "✓ %d view(s) valid\n", len(result.Views))
		return
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, check := range result.Views {
		if check.Valid {
			fmt.Fprintf(formatter.Writer, "  ✓ %s\n", check.View)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  ✗ %s: %s: %s\n", check.View, check.Code, check.Message)
	}
}

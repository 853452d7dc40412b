package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record",
		Long: `Delete a record from a collection.

Deleting a record that does not exist is an error (exit code 1).`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runDelete(opts *RootOptions, collection, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	deleted, err := st.Delete(cmd.Context(), collection, id)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "delete failed", err)
	}
	if !deleted {
		msg := fmt.Sprintf("no record %s/%s", collection, id)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitFailure, msg)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"collection": collection, "id": id})
	}
	fmt.Fprintf(formatter.Writer, "✓ Deleted %s/%s\n", collection, id)
	return nil
}

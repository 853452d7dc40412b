package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/liveresults/internal/ir"
)

// LoadFile is the YAML document read by the load command: collection name
// to records. The "id" attribute of a record is its id.
type LoadFile map[string][]map[string]interface{}

// LoadSummary reports what the load command wrote.
type LoadSummary struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
	LastSeq    int64  `json:"last_seq"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.yaml>",
		Short: "Bulk-load records from a YAML file",
		Long: `Bulk-load records from a YAML file.

The file maps collection names to lists of records. Each collection is
written in one transaction. Records without an "id" get a new UUIDv7.

Example file:
  tasks:
    - id: t1
      title: Write docs
      priority: 2
    - id: t2
      title: Ship
      priority: 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], cmd)
		},
	}
}

func runLoad(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	data, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("reading %s: %v", path, err), nil)
		return WrapExitError(ExitCommandError, "failed to read records file", err)
	}
	var file LoadFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		_ = formatter.Error(ErrCodeInvalidInput, fmt.Sprintf("parsing %s: %v", path, err), nil)
		return WrapExitError(ExitCommandError, "failed to parse records file", err)
	}

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	collections := make([]string, 0, len(file))
	for name := range file {
		collections = append(collections, name)
	}
	sort.Strings(collections)

	summaries := make([]LoadSummary, 0, len(collections))
	for _, collection := range collections {
		schema, err := schemaOrEmpty(ctx, st, collection)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read schema", err)
		}

		recs := make([]ir.Record, 0, len(file[collection]))
		for i, raw := range file[collection] {
			rec, err := loadRecord(raw, schema)
			if err != nil {
				msg := fmt.Sprintf("%s[%d]: %v", collection, i, err)
				_ = formatter.Error(ErrCodeInvalidInput, msg, nil)
				return WrapExitError(ExitCommandError, "invalid record", err)
			}
			recs = append(recs, rec)
		}

		written, err := st.PutBatch(ctx, collection, recs)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "load failed", err)
		}
		summary := LoadSummary{Collection: collection, Records: len(written)}
		if len(written) > 0 {
			summary.LastSeq = written[len(written)-1].Seq
		}
		formatter.VerboseLog("Loaded %d record(s) into %s", summary.Records, collection)
		summaries = append(summaries, summary)
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "✓ Loaded %d record(s) into %s\n", s.Records, s.Collection)
	}
	return nil
}

// loadRecord splits the id from the attributes of one YAML record.
func loadRecord(raw map[string]interface{}, schema ir.Schema) (ir.Record, error) {
	id := ""
	if v, ok := raw["id"]; ok {
		id = fmt.Sprint(v)
	}
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}

	attrs := make(map[string]interface{}, len(raw))
	for name, v := range raw {
		if name != "id" {
			attrs[name] = v
		}
	}
	obj, err := ir.ObjectFromNative(attrs, schema)
	if err != nil {
		return ir.Record{}, err
	}
	return ir.Record{ID: id, Attrs: obj}, nil
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/xqdb/internal/table"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	From  int
	Count int // 0 dumps to the end
}

// DumpRecord is one table record in JSON output.
type DumpRecord struct {
	Pre     int    `json:"pre"`
	Kind    string `json:"kind"`
	Size    int32  `json:"size"`
	AttSize int32  `json:"att_size"`
	Name    string `json:"name,omitempty"`
	Text    string `json:"text,omitempty"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <name>",
		Short: "Print the node table of a document",
		Long: `Print the encoded node records of a stored document in pre order.

Example:
  xqdb dump --db ./lib.db library
  xqdb dump --db ./lib.db library --from 10 --count 5 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.From, "from", 0, "first pre value")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "number of records (0 for all)")

	return cmd
}

func runDump(opts *DumpOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if opts.From < 0 || opts.Count < 0 {
		_ = formatter.Error(ErrCodeGeneric, "--from and --count must not be negative", nil)
		return NewExitError(ExitCommandError, "--from and --count must not be negative")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	sess, err := openSession(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer closeSession(opts.RootOptions, sess)

	var records []DumpRecord
	err = sess.Table(name, func(t *table.Table) error {
		to := t.Len()
		if opts.Count > 0 && opts.From+opts.Count < to {
			to = opts.From + opts.Count
		}
		if formatter.Format != "json" {
			return t.Dump(formatter.Writer, opts.From, to)
		}
		records = dumpRecords(t, opts.From, to)
		return nil
	})
	if err != nil {
		return formatter.Fail("dump failed", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(records)
	}
	return nil
}

func dumpRecords(t *table.Table, from, to int) []DumpRecord {
	recs := t.Records(from, to)
	out := make([]DumpRecord, len(recs))
	for i, r := range recs {
		pre := from + i
		out[i] = DumpRecord{
			Pre:     pre,
			Kind:    r.Kind.String(),
			Size:    r.Size,
			AttSize: r.AttSize,
			Name:    t.NodeName(pre),
			Text:    t.Text(pre),
		}
	}
	return out
}

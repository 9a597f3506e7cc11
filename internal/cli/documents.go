package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/xqdb/internal/store"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	URI string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <name> <file>",
		Short: "Import an XML document",
		Long: `Parse an XML file and store it as a new database.

Use "-" as file to read from standard input. The document URI defaults
to the database name.

Example:
  xqdb create --db ./lib.db library ./library.xml
  cat doc.xml | xqdb create --db ./lib.db --uri urn:doc doc -`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.URI, "uri", "", "document URI (default: name)")

	return cmd
}

func runCreate(opts *CreateOptions, name, file string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var r io.Reader = cmd.InOrStdin()
	if file != "-" {
		fh, err := os.Open(file)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "cannot read document", err)
		}
		defer fh.Close()
		r = fh
	}

	sess, err := openSession(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer closeSession(opts.RootOptions, sess)

	info, err := sess.Create(ctx, name, r, opts.URI)
	if err != nil {
		return formatter.Fail("create failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(info)
	}
	fmt.Fprintf(formatter.Writer, "✓ Created %s (%d nodes)\n", info.Name, info.Nodes)
	formatter.VerboseLog("hash %s", info.Hash)
	return nil
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored documents",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx, cancel := commandContext(cmd)
	defer cancel()

	sess, err := openSession(ctx, opts, formatter)
	if err != nil {
		return err
	}
	defer closeSession(opts, sess)

	docs, err := sess.Documents(ctx)
	if err != nil {
		return formatter.Fail("list failed", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(docs)
	}
	return writeDocuments(formatter.Writer, docs)
}

func writeDocuments(w io.Writer, docs []store.DocumentInfo) error {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tNODES\tCREATED\tUPDATED\tHASH")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.12s\n", d.Name, d.Nodes, d.Created, d.Updated, d.Hash)
	}
	return tw.Flush()
}

// NewDropCommand creates the drop command.
func NewDropCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "drop <name>",
		Short:         "Delete a stored document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrop(rootOpts, args[0], cmd)
		},
	}
}

func runDrop(opts *RootOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx, cancel := commandContext(cmd)
	defer cancel()

	sess, err := openSession(ctx, opts, formatter)
	if err != nil {
		return err
	}
	defer closeSession(opts, sess)

	if err := sess.Drop(ctx, name); err != nil {
		return formatter.Fail("drop failed", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"dropped": name})
	}
	fmt.Fprintf(formatter.Writer, "✓ Dropped %s\n", name)
	return nil
}

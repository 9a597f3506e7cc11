package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/xqdb/internal/store"
)

// InsertOptions holds flags for the insert command.
type InsertOptions struct {
	*RootOptions
	Attribute string // name=value; insert an attribute instead of a fragment
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "insert <name> <pre> [<fragment>]",
		Short: "Insert nodes into a document",
		Long: `Append an XML fragment as the last children of the node at pre, or
add an attribute to the element at pre with --attr.

Positions are pre values as printed by dump.

Example:
  xqdb insert --db ./lib.db library 1 '<book id="b3"><title>Go</title></book>'
  xqdb insert --db ./lib.db library 2 --attr lang=en`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Attribute, "attr", "", "insert an attribute (name=value)")

	return cmd
}

func runInsert(opts *InsertOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	name := args[0]
	pre, err := parsePre(args[1])
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid position", err)
	}
	var attrName, attrValue string
	switch {
	case opts.Attribute != "" && len(args) == 3:
		return usageError(formatter, "give a fragment or --attr, not both")
	case opts.Attribute != "":
		var ok bool
		attrName, attrValue, ok = cutBinding(opts.Attribute)
		if !ok {
			return usageError(formatter, fmt.Sprintf("--attr %q is not name=value", opts.Attribute))
		}
	case len(args) < 3:
		return usageError(formatter, "a fragment or --attr is required")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	sess, err := openSession(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer closeSession(opts.RootOptions, sess)

	var info store.DocumentInfo
	if attrName != "" {
		info, err = sess.InsertAttribute(ctx, name, pre, attrName, attrValue)
	} else {
		info, err = sess.Insert(ctx, name, pre, args[2])
	}
	if err != nil {
		return formatter.Fail("insert failed", err)
	}
	return updated(formatter, "Inserted into", info)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name> <pre>",
		Short: "Delete a node and its subtree",
		Long: `Delete the node at pre, with its attributes and descendants.

Example:
  xqdb delete --db ./lib.db library 7`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runDelete(opts *RootOptions, name, preArg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	pre, err := parsePre(preArg)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid position", err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	sess, err := openSession(ctx, opts, formatter)
	if err != nil {
		return err
	}
	defer closeSession(opts, sess)

	info, err := sess.Delete(ctx, name, pre)
	if err != nil {
		return formatter.Fail("delete failed", err)
	}
	return updated(formatter, "Deleted from", info)
}

func updated(formatter *OutputFormatter, verb string, info store.DocumentInfo) error {
	if formatter.Format == "json" {
		return formatter.Success(info)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s %s (%d nodes, seq %d)\n", verb, info.Name, info.Nodes, info.Updated)
	return nil
}

func parsePre(s string) (int, error) {
	pre, err := strconv.Atoi(s)
	if err != nil || pre < 0 {
		return 0, fmt.Errorf("position %q is not a pre value", s)
	}
	return pre, nil
}

func cutBinding(s string) (name, value string, ok bool) {
	name, value, ok = strings.Cut(s, "=")
	return name, value, ok && name != ""
}

func usageError(formatter *OutputFormatter, msg string) error {
	_ = formatter.Error(ErrCodeGeneric, msg, nil)
	return NewExitError(ExitCommandError, msg)
}

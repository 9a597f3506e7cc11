package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/xqdb/internal/node"
	"github.com/roach88/xqdb/internal/session"
	"github.com/roach88/xqdb/internal/xdm"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	File string   // read the query from a file
	Vars []string // name=value bindings for external variables
}

// QueryResult is the JSON payload of the query command.
type QueryResult struct {
	ID    string   `json:"id"`
	Items []string `json:"items"`
	Steps int64    `json:"steps"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [<query>]",
		Short: "Evaluate a query",
		Long: `Evaluate an XQuery FLWOR expression over the stored documents.

Items are printed one per line as they are produced; nodes are
serialized as XML. Values given with --var are parsed as YAML, so
--var n=3 binds an integer and --var 'ids=[1, 2]' a sequence.

Example:
  xqdb query --db ./lib.db 'for $b in doc("library")//book return $b/title/string()'
  xqdb query --db ./lib.db -f report.xq --var year=2001`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the query from a file")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "bind an external variable (name=value, repeatable)")

	return cmd
}

func runQuery(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	src, err := querySource(opts.File, args)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "no query", err)
	}
	vars, err := parseVars(opts.Vars)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --var", err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	sess, err := openSession(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer closeSession(opts.RootOptions, sess)

	res, err := sess.Query(ctx, src, vars)
	if err != nil {
		return formatter.Fail("query failed", err)
	}
	defer res.Close()
	formatter.VerboseLog("query %s", res.ID())

	out := QueryResult{ID: res.ID(), Items: []string{}}
	for {
		it, err := res.Next()
		if err != nil {
			return formatter.Fail("query failed", err)
		}
		if it == nil {
			break
		}
		s := node.ItemString(it)
		if formatter.Format == "json" {
			out.Items = append(out.Items, s)
			continue
		}
		fmt.Fprintln(formatter.Writer, s)
	}
	out.Steps = res.Steps()
	formatter.VerboseLog("%d item(s), %d step(s)", len(out.Items), out.Steps)

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	return nil
}

// querySource returns the query text from --file or the argument.
func querySource(file string, args []string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", fmt.Errorf("give the query as an argument or with --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("a query argument or --file is required")
	}
}

// parseVars decodes name=value bindings. Values are YAML scalars or lists.
func parseVars(bindings []string) (map[string]xdm.Value, error) {
	if len(bindings) == 0 {
		return nil, nil
	}
	raw := make(map[string]any, len(bindings))
	for _, b := range bindings {
		name, value, ok := cutBinding(strings.TrimPrefix(b, "$"))
		if !ok {
			return nil, fmt.Errorf("binding %q is not name=value", b)
		}
		if _, dup := raw[name]; dup {
			return nil, fmt.Errorf("variable $%s bound twice", name)
		}
		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil {
			return nil, fmt.Errorf("variable $%s: %w", name, err)
		}
		if value == "" {
			v = ""
		}
		raw[name] = v
	}
	return session.ValuesOf(raw)
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/xqdb/internal/store"
	"github.com/roach88/xqdb/internal/table"
)

// DocumentCheck is the validation outcome of one stored document.
type DocumentCheck struct {
	Name  string `json:"name"`
	Nodes int    `json:"nodes"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool            `json:"valid"`
	Documents []DocumentCheck `json:"documents"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [<name>...]",
		Short: "Check stored documents for corruption",
		Long: `Reload stored documents and check them without opening a session.

Every node table is checked against its structural invariants and its
content hash is recomputed and compared with the stored one. With no
names, all documents are checked.

Exit codes:
  0 - All documents are valid
  1 - One or more documents are corrupt
  2 - Command error (missing database, unknown document, etc.)`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, names []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if opts.Database == "" {
		return usageError(formatter, "--db is required")
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeNoDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	docs, err := selectDocuments(ctx, st, names)
	if err != nil {
		return formatter.Fail("validate failed", err)
	}

	result := ValidationResult{Valid: true, Documents: make([]DocumentCheck, 0, len(docs))}
	for _, d := range docs {
		formatter.VerboseLog("Checking %s (%d nodes)", d.Name, d.Nodes)
		check := checkDocument(ctx, st, d)
		result.Valid = result.Valid && check.Valid
		result.Documents = append(result.Documents, check)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		for _, c := range result.Documents {
			if c.Valid {
				fmt.Fprintf(formatter.Writer, "✓ %s (%d nodes)\n", c.Name, c.Nodes)
			} else {
				fmt.Fprintf(formatter.Writer, "✗ %s\n  %s\n", c.Name, c.Error)
			}
		}
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "corrupt documents found")
	}
	return nil
}

func selectDocuments(ctx context.Context, st *store.Store, names []string) ([]store.DocumentInfo, error) {
	if len(names) == 0 {
		return st.ListDocuments(ctx)
	}
	docs := make([]store.DocumentInfo, 0, len(names))
	for _, name := range names {
		d, err := st.Document(ctx, name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func checkDocument(ctx context.Context, st *store.Store, d store.DocumentInfo) DocumentCheck {
	check := DocumentCheck{Name: d.Name, Nodes: d.Nodes}
	t, err := st.LoadTable(ctx, d.Name)
	if err != nil {
		check.Error = fmt.Sprintf("[%s] %v", ErrCodeCorrupt, err)
		if !table.IsStructural(err) {
			check.Error = err.Error()
		}
		return check
	}
	if t.Len() != d.Nodes {
		check.Error = fmt.Sprintf("[%s] %d records stored, %d recorded", ErrCodeCorrupt, t.Len(), d.Nodes)
		return check
	}
	if h := store.ContentHash(t); h != d.Hash {
		check.Error = fmt.Sprintf("[%s] content hash %.12s does not match stored %.12s", ErrCodeCorrupt, h, d.Hash)
		return check
	}
	check.Valid = true
	return check
}

package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/xqdb/internal/session"
)

// openSession opens the database named by --db with the global query
// limits applied.
func openSession(ctx context.Context, opts *RootOptions, f *OutputFormatter) (*session.Session, error) {
	if opts.Database == "" {
		_ = f.Error(ErrCodeNoDatabase, "--db is required", nil)
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	sopts := []session.Option{
		session.WithLogger(opts.logger()),
		session.WithTimeout(opts.Timeout),
	}
	if opts.MaxSteps > 0 {
		sopts = append(sopts, session.WithMaxSteps(opts.MaxSteps))
	}
	sess, err := session.Open(ctx, opts.Database, sopts...)
	if err != nil {
		_ = f.Error(ErrCodeNoDatabase, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return sess, nil
}

// commandContext returns the command's context, cancelled on SIGINT or
// SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// closeSession closes sess, logging any failure.
func closeSession(opts *RootOptions, sess *session.Session) {
	if err := sess.Close(); err != nil {
		opts.logger().Error("error closing database", "error", err)
	}
}

// logger returns the configured logger, or a discarding one when the
// command runs without the root command.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

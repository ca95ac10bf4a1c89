package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/guessdb/internal/store"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every recorded game",
		Long: `Remove every recorded game. The schema and indexes stay in place and
new games continue numbering after the highest id ever assigned.

Example:
  guessdb clear`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(rootOpts, cmd)
		},
	}
	return cmd
}

// ClearResult is the JSON payload of a successful clear.
type ClearResult struct {
	Cleared bool `json:"cleared"`
}

func runClear(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts, cmd)

	st := openStore(opts)
	defer st.Close()

	if err := st.ClearAllGames(ctx); err != nil {
		return storeFailure(f, "failed to clear games", err)
	}

	return f.Emit(ClearResult{Cleared: true}, func(w io.Writer) {
		fmt.Fprintln(w, "All games cleared.")
	})
}

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Timeout time.Duration
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete and recreate the database",
		Long: `Delete the database file and recreate it empty at the current schema
version. Ids start again at 1.

While other stores in this process hold the database open, reset prints a
warning and waits for them, up to --timeout. When the timeout expires nothing
is deleted.

Sessions in other processes (another terminal, the running game) are not
detected: reset deletes the file underneath them. Close them first.

Example:
  guessdb reset --timeout 10s`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "how long to wait for other sessions to close (0 waits forever)")

	return cmd
}

func runReset(opts *ResetOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	st := openStore(opts.RootOptions, store.WithBlockedHandler(func(n store.BlockedNotice) {
		f.Warn("%s", n.Message())
	}))
	defer st.Close()

	if err := st.ResetDatabase(ctx); err != nil {
		return storeFailure(f, "failed to reset database", err)
	}
	f.VerboseLog("recreated %s", st.Path())

	return f.Emit(map[string]bool{"reset": true}, func(w io.Writer) {
		fmt.Fprintln(w, "Database reset.")
	})
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show schema version, indexes and game count",
		Long: `Open the database (creating or upgrading it when needed) and report its
schema version, indexes and number of recorded games.

Example:
  guessdb status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts, cmd)

	st := openStore(opts)
	defer st.Close()

	info, err := st.Info(ctx)
	if err != nil {
		return storeFailure(f, "failed to read database status", err)
	}

	return f.Emit(info, func(w io.Writer) {
		fmt.Fprintf(w, "Database: %s\n", info.Name)
		fmt.Fprintf(w, "Path:     %s\n", info.Path)
		fmt.Fprintf(w, "Version:  %d\n", info.Version)
		fmt.Fprintf(w, "Indexes:  %s\n", strings.Join(info.Indexes, ", "))
		fmt.Fprintf(w, "Games:    %d\n", info.Count)
	})
}

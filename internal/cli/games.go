package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/guessdb/internal/record"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Player string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded games, most recently started first",
		Long: `List every recorded game, most recently started first.

With --player, only that player's games are listed.

Examples:
  guessdb list
  guessdb list --player alice --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Player, "player", "", "only list games of this player")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	st := openStore(opts.RootOptions)
	defer st.Close()

	var (
		games []record.Game
		err   error
	)
	if opts.Player != "" {
		games, err = st.GamesByPlayer(ctx, opts.Player)
	} else {
		games, err = st.GetAllGames(ctx)
	}
	if err != nil {
		return storeFailure(f, "failed to list games", err)
	}

	return f.Emit(games, func(w io.Writer) { writeGameList(w, games) })
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one game",
		Long: `Show one game by id.

Exits with status 1 when no game has that id (including ids that are not numbers).

Example:
  guessdb show 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runShow(opts *RootOptions, id string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts, cmd)

	st := openStore(opts)
	defer st.Close()

	g, err := st.GetGameByID(ctx, id)
	if err != nil {
		return storeFailure(f, "failed to read game", err)
	}
	if g == nil {
		return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("game not found: %s", id), nil)
	}

	return f.Emit(g, func(w io.Writer) { writeGameDetail(w, *g) })
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Player    string
	StartedAt string
	Data      string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a game",
		Long: `Record one game. The store assigns its id.

--started-at accepts RFC 3339 or epoch milliseconds and defaults to now.
--data holds the remaining outcome fields as a JSON object.

Example:
  guessdb add --player alice --data '{"attempts":[50,25,37],"result":"win"}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Player, "player", "", "player name (required)")
	_ = cmd.MarkFlagRequired("player")
	cmd.Flags().StringVar(&opts.StartedAt, "started-at", "", "start time (RFC 3339 or epoch ms, default now)")
	cmd.Flags().StringVar(&opts.Data, "data", "{}", "outcome fields as a JSON object")

	return cmd
}

// AddResult is the JSON payload of a successful add.
type AddResult struct {
	ID int64 `json:"id"`
}

func runAdd(opts *AddOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	startedAt := record.Millis(opts.now())
	if opts.StartedAt != "" {
		ms, err := parseStartedAt(opts.StartedAt)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeInvalidInput, "invalid --started-at", err)
		}
		startedAt = ms
	}

	var payload record.Object
	if err := json.Unmarshal([]byte(opts.Data), &payload); err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidInput, "invalid --data JSON", err)
	}

	g := record.Game{StartedAt: startedAt, PlayerName: opts.Player, Payload: payload}
	if err := g.Validate(); err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidInput, "invalid --data", err)
	}

	st := openStore(opts.RootOptions)
	defer st.Close()

	id, err := st.SaveGame(ctx, g)
	if err != nil {
		return storeFailure(f, "failed to save game", err)
	}
	f.VerboseLog("saved game %d for %s", id, opts.Player)

	return f.Emit(AddResult{ID: id}, func(w io.Writer) {
		fmt.Fprintf(w, "Saved game #%d\n", id)
	})
}

// parseStartedAt accepts epoch milliseconds or an RFC 3339 timestamp.
func parseStartedAt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("want RFC 3339 or epoch milliseconds: %w", err)
	}
	return record.Millis(t), nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute (as in some tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

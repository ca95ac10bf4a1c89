package store

import (
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/guessdb/internal/record"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestStore creates a store in a fresh temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return createTestStoreIn(t, t.TempDir(), opts...)
}

func createTestStoreIn(t *testing.T, dir string, opts ...Option) *Store {
	t.Helper()
	s := New(dir, append([]Option{WithLogger(quietLogger())}, opts...)...)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestGame creates a game with a small outcome payload.
func createTestGame(player string, startedAt int64) record.Game {
	return record.Game{
		StartedAt:  startedAt,
		PlayerName: player,
		Payload: record.Object{
			"attempts": record.Array{record.Int(50), record.Int(25), record.Int(37)},
			"result":   record.String("win"),
			"secret":   record.Int(37),
		},
	}
}

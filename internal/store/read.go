package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/roach88/guessdb/internal/record"
)

// ErrCursorConsumed is returned when a Games sequence is ranged over twice.
var ErrCursorConsumed = errors.New("game cursor already consumed")

const selectGame = `SELECT id, started_at, player_name, payload FROM games`

// GetGameByID returns the game with the given id, or nil when there is none.
// id may be any value record.ParseID accepts; anything else is reported as
// not found without touching the database.
func (s *Store) GetGameByID(ctx context.Context, id any) (*record.Game, error) {
	key, ok := record.ParseID(id)
	if !ok {
		return nil, nil
	}

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, newError(CodeRead, "get game", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	g, err := scanGame(tx.QueryRowContext(ctx, selectGame+" WHERE id = ?", key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, newError(CodeRead, "get game", err)
	}
	return &g, nil
}

// Games returns a cursor over every game: newest startedAt first (ties by
// descending id) when the byStartedAt index exists, otherwise by descending id.
//
// The read transaction stays open until the loop ends. The sequence can be
// ranged over once; Store methods must not be called from inside the loop.
func (s *Store) Games(ctx context.Context) iter.Seq2[record.Game, error] {
	var used atomic.Bool

	return func(yield func(record.Game, error) bool) {
		if used.Swap(true) {
			yield(record.Game{}, newError(CodeRead, "iterate games", ErrCursorConsumed))
			return
		}

		db, err := s.conn(ctx)
		if err != nil {
			yield(record.Game{}, err)
			return
		}

		tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			yield(record.Game{}, newError(CodeRead, "iterate games", fmt.Errorf("begin tx: %w", err)))
			return
		}
		defer tx.Rollback()

		indexed, err := hasIndex(ctx, tx, IndexByStartedAt)
		if err != nil {
			yield(record.Game{}, newError(CodeRead, "iterate games", err))
			return
		}
		query := selectGame + " ORDER BY id DESC"
		if indexed {
			query = selectGame + " ORDER BY started_at DESC, id DESC"
		}

		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			yield(record.Game{}, newError(CodeRead, "iterate games", fmt.Errorf("query games: %w", err)))
			return
		}
		defer rows.Close()

		for rows.Next() {
			g, err := scanGame(rows)
			if err != nil {
				yield(record.Game{}, newError(CodeRead, "iterate games", err))
				return
			}
			if !yield(g, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(record.Game{}, newError(CodeRead, "iterate games", fmt.Errorf("iterate games: %w", err)))
		}
	}
}

// GetAllGames drains Games into a slice. Returns an empty slice (not nil)
// when there are no games.
func (s *Store) GetAllGames(ctx context.Context) ([]record.Game, error) {
	games := []record.Game{}
	for g, err := range s.Games(ctx) {
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}

// GamesByPlayer returns the games of one player, newest startedAt first.
// Names are compared in NFC form.
func (s *Store) GamesByPlayer(ctx context.Context, playerName string) ([]record.Game, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, newError(CodeRead, "games by player", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		selectGame+" WHERE player_key = ? ORDER BY started_at DESC, id DESC",
		record.PlayerKey(playerName),
	)
	if err != nil {
		return nil, newError(CodeRead, "games by player", err)
	}
	defer rows.Close()

	games := []record.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, newError(CodeRead, "games by player", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(CodeRead, "games by player", err)
	}
	return games, nil
}

package store

import (
	"context"
	"fmt"

	"github.com/roach88/guessdb/internal/record"
)

// SaveGame inserts g and returns the id assigned by the store.
// g.ID must be zero: ids are never supplied by callers.
func (s *Store) SaveGame(ctx context.Context, g record.Game) (int64, error) {
	if g.ID != 0 {
		return 0, newError(CodeWrite, "save game", fmt.Errorf("%w: %d", record.ErrIDAssigned, g.ID))
	}
	if err := g.Validate(); err != nil {
		return 0, newError(CodeWrite, "save game", err)
	}
	payload, err := marshalPayload(g.Payload)
	if err != nil {
		return 0, newError(CodeWrite, "save game", err)
	}

	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, newError(CodeWrite, "save game", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO games (started_at, player_name, player_key, payload)
		VALUES (?, ?, ?, ?)
	`,
		g.StartedAt,
		g.PlayerName,
		record.PlayerKey(g.PlayerName),
		payload,
	)
	if err != nil {
		return 0, newError(CodeWrite, "save game", fmt.Errorf("insert: %w", err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, newError(CodeWrite, "save game", fmt.Errorf("last insert id: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return 0, newError(CodeWrite, "save game", fmt.Errorf("commit: %w", err))
	}

	s.logger.Debug("game saved", "db", DatabaseName, "id", id, "player", g.PlayerName)
	return id, nil
}

// ClearAllGames removes every record. The collection, its indexes and the id
// sequence survive, so later saves keep receiving increasing ids.
func (s *Store) ClearAllGames(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return newError(CodeWrite, "clear games", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM games")
	if err != nil {
		return newError(CodeWrite, "clear games", err)
	}

	if err := tx.Commit(); err != nil {
		return newError(CodeWrite, "clear games", fmt.Errorf("commit: %w", err))
	}

	removed, _ := result.RowsAffected()
	s.logger.Info("games cleared", "db", DatabaseName, "removed", removed)
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DoesNotOpen(t *testing.T) {
	dir := t.TempDir()
	s := createTestStoreIn(t, dir)

	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, filepath.Join(dir, "guess-number-db.sqlite"), s.Path())

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "database file must not exist before first operation")
}

func TestOpen_CreatesDatabase(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Open(ctx))
	assert.Equal(t, StateOpen, s.State())
	assert.NotEmpty(t, s.ConnID())

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, DatabaseName, info.Name)
	assert.Equal(t, SchemaVersion, info.Version)
	assert.Equal(t, []string{IndexByPlayerName, IndexByStartedAt}, info.Indexes)
	assert.Equal(t, 0, info.Count)
}

func TestOpen_LazyOnFirstOperation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.SaveGame(ctx, createTestGame("alice", 1))
	require.NoError(t, err)
	assert.Equal(t, StateOpen, s.State())
}

func TestOpen_InvalidPath(t *testing.T) {
	s := createTestStoreIn(t, "/nonexistent/dir")

	err := s.Open(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnectionError(err), "got %v", err)
	assert.Equal(t, StateClosed, s.State())

	_, err = s.GetAllGames(context.Background())
	assert.True(t, IsConnectionError(err))
}

func TestOpen_VersionTooNew(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := createTestStoreIn(t, dir)
	require.NoError(t, s.Open(ctx))
	_, err := s.db.ExecContext(ctx, "PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Open(ctx)
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
	assert.ErrorIs(t, err, ErrVersionTooNew)
}

func TestOpen_UpgradesFromVersion1(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	path := filepath.Join(dir, DatabaseName+".sqlite")

	// Build a version 1 database by hand.
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.Equal(t, 1, migrations[0].version)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(migrations[0].sql)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO games (started_at, player_name, player_key, payload) VALUES (5, 'old', 'old', '{"result":"lose"}')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s := createTestStoreIn(t, dir)
	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, info.Version)
	assert.Contains(t, info.Indexes, IndexByPlayerName)
	assert.Equal(t, 1, info.Count, "upgrade must keep existing records")

	games, err := s.GamesByPlayer(ctx, "old")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, int64(5), games[0].StartedAt)
}

func TestUpgrade_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.SaveGame(ctx, createTestGame("alice", 1))
	require.NoError(t, err)

	// Trigger schema setup twice more from scratch.
	for i := 0; i < 2; i++ {
		require.NoError(t, upgrade(ctx, s.db, 0), "upgrade %d", i)
	}

	var tables int
	err = s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", CollectionGames).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 1, tables)

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{IndexByPlayerName, IndexByStartedAt}, info.Indexes)

	g, err := s.GetGameByID(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, g, "existing record must survive repeated upgrades")
}

func TestOpen_ReopenExisting(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1 := createTestStoreIn(t, dir)
	id, err := s1.SaveGame(ctx, createTestGame("alice", 1))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2 := createTestStoreIn(t, dir)
	g, err := s2.GetGameByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "alice", g.PlayerName)
}

func TestClose_Reopens(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Open(ctx))
	first := s.ConnID()
	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())
	assert.Empty(t, s.ConnID())

	// Second close is a no-op.
	require.NoError(t, s.Close())

	require.NoError(t, s.Open(ctx))
	assert.NotEqual(t, first, s.ConnID())
}

func TestConnState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "opening", StateOpening.String())
	assert.Equal(t, "upgrading", StateUpgrading.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", ConnState(42).String())
}

func TestErrors_Codes(t *testing.T) {
	cause := errors.New("disk full")
	err := newError(CodeWrite, "save game", cause)

	assert.True(t, IsWriteError(err))
	assert.False(t, IsReadError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "WRITE_ERROR: save game: disk full", err.Error())

	wrapped := errors.Join(errors.New("outer"), newError(CodeReset, "reset", nil))
	assert.True(t, IsResetError(wrapped))
	assert.False(t, IsConnectionError(wrapped))
	assert.False(t, IsReadError(nil))
}

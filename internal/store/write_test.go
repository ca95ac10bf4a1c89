package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guessdb/internal/record"
)

func TestSaveGame_StrictlyIncreasingIDs(t *testing.T) {
	for _, n := range []int{0, 1, 5, 25} {
		s := createTestStore(t)
		ctx := context.Background()

		var last int64
		seen := make(map[int64]bool, n)
		for i := 0; i < n; i++ {
			id, err := s.SaveGame(ctx, createTestGame("alice", int64(i)))
			require.NoError(t, err)
			assert.Greater(t, id, last, "n=%d i=%d", n, i)
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
			last = id
		}
		assert.Len(t, seen, n)
	}
}

func TestSaveGame_RejectsAssignedID(t *testing.T) {
	s := createTestStore(t)

	g := createTestGame("alice", 1)
	g.ID = 7
	_, err := s.SaveGame(context.Background(), g)
	require.Error(t, err)
	assert.True(t, IsWriteError(err))
	assert.ErrorIs(t, err, record.ErrIDAssigned)
	assert.Equal(t, StateClosed, s.State(), "invalid records are rejected before opening")
}

func TestSaveGame_RejectsReservedPayloadKey(t *testing.T) {
	s := createTestStore(t)

	g := createTestGame("alice", 1)
	g.Payload["startedAt"] = record.Int(3)
	_, err := s.SaveGame(context.Background(), g)
	require.Error(t, err)
	assert.True(t, IsWriteError(err))
	assert.ErrorIs(t, err, record.ErrReservedField)
}

func TestSaveGame_NilPayload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.SaveGame(ctx, record.Game{StartedAt: 1, PlayerName: "bob"})
	require.NoError(t, err)

	g, err := s.GetGameByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, record.Object{}, g.Payload)
}

func TestSaveGame_NilPayloadEntryStoredAsNull(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	g := createTestGame("alice", 1)
	g.Payload["hint"] = nil
	id, err := s.SaveGame(ctx, g)
	require.NoError(t, err)

	got, err := s.GetGameByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.Null{}, got.Payload["hint"])
}

func TestSaveGame_Concurrent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	const workers = 10
	ids := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.SaveGame(ctx, createTestGame("racer", int64(i)))
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, workers)
}

func TestClearAllGames(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 1; i <= 3; i++ {
		id, err := s.SaveGame(ctx, createTestGame("alice", int64(i)))
		require.NoError(t, err)
		last = id
	}

	require.NoError(t, s.ClearAllGames(ctx))

	games, err := s.GetAllGames(ctx)
	require.NoError(t, err)
	assert.Empty(t, games)

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{IndexByPlayerName, IndexByStartedAt}, info.Indexes, "indexes survive a clear")

	id, err := s.SaveGame(ctx, createTestGame("alice", 10))
	require.NoError(t, err)
	assert.Greater(t, id, last, "ids keep increasing after a clear")

	games, err = s.GetAllGames(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 1)
}

func TestClearAllGames_EmptyCollection(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.ClearAllGames(context.Background()))
}

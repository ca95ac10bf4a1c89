package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// BlockedNotice reports that a deletion is waiting for other connections to
// close. It is informational: ResetDatabase keeps waiting after emitting it.
type BlockedNotice struct {
	Database string
	Path     string
	// Blockers are the ids of the connections holding the database open.
	Blockers []string
}

// Message is a user-facing description of the blocking condition.
func (n BlockedNotice) Message() string {
	return fmt.Sprintf(
		"deleting %s is blocked by %d open connection(s) (%s); close other sessions using this database",
		n.Database, len(n.Blockers), strings.Join(n.Blockers, ", "),
	)
}

// VersionChange is delivered to open Stores when another Store starts
// deleting the database they hold open.
type VersionChange struct {
	Database string
	// ConnID is the receiving Store's connection.
	ConnID     string
	OldVersion int
	// NewVersion is 0 for a deletion.
	NewVersion int
}

// ResetDatabase deletes the database file and reopens it, leaving an empty
// collection with both indexes at SchemaVersion.
//
// Other Stores holding the database open receive a VersionChange. If any of
// them are still open afterwards, a BlockedNotice is emitted once and the
// deletion waits for them to close. When ctx ends first the deletion is
// abandoned, nothing is removed, and a reset error wrapping ctx.Err() is
// returned.
func (s *Store) ResetDatabase(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		s.logger.Warn("error closing connection before reset", "db", DatabaseName, "error", err)
	}

	others, err := connections.beginDelete(ctx, s.path)
	if err != nil {
		return newError(CodeReset, "reset", fmt.Errorf("wait for pending deletion: %w", err))
	}

	if err := s.awaitRelease(ctx, others); err != nil {
		connections.endDelete(s.path)
		return newError(CodeReset, "reset", fmt.Errorf("deletion abandoned: %w", err))
	}

	err = removeDatabaseFiles(s.path)
	connections.endDelete(s.path)
	if err != nil {
		return newError(CodeReset, "reset", err)
	}
	s.logger.Info("database deleted", "db", DatabaseName, "path", s.path)

	return s.openLocked(ctx)
}

// awaitRelease broadcasts the version change to others and waits until no
// connection is left open on the database.
func (s *Store) awaitRelease(ctx context.Context, others map[string]*Store) error {
	if len(others) == 0 {
		return nil
	}

	// Handlers run on their own goroutines: a receiver may itself be waiting
	// on this deletion while holding its lock.
	var wg sync.WaitGroup
	for id, other := range others {
		wg.Add(1)
		go func() {
			defer wg.Done()
			other.handleVersionChange(VersionChange{
				Database:   DatabaseName,
				ConnID:     id,
				OldVersion: SchemaVersion,
				NewVersion: 0,
			})
		}()
	}
	handled := make(chan struct{})
	go func() {
		wg.Wait()
		close(handled)
	}()

	idle, err := connections.awaitIdle(ctx, s.path, handled)
	if err != nil {
		return err
	}
	if idle {
		return nil
	}

	blockers := connections.openIDs(s.path)
	if len(blockers) == 0 {
		return nil
	}
	s.notifyBlocked(BlockedNotice{Database: DatabaseName, Path: s.path, Blockers: blockers})

	_, err = connections.awaitIdle(ctx, s.path, nil)
	return err
}

func (s *Store) notifyBlocked(notice BlockedNotice) {
	if s.onBlocked != nil {
		s.onBlocked(notice)
		return
	}
	s.logger.Warn(notice.Message(), "db", notice.Database, "blockers", notice.Blockers)
}

// handleVersionChange is invoked on a Store whose connection blocks a
// deletion started elsewhere.
func (s *Store) handleVersionChange(ev VersionChange) {
	if s.onVersionChange != nil {
		s.onVersionChange(ev)
	} else {
		s.logger.Info("database version change requested", "db", ev.Database, "conn", ev.ConnID, "from", ev.OldVersion, "to", ev.NewVersion)
	}

	if !s.closeOnVersionChange {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The event may arrive after this Store already reopened with a new connection.
	if s.connID != ev.ConnID {
		return
	}
	if err := s.closeLocked(); err != nil {
		s.logger.Warn("error closing connection on version change", "db", ev.Database, "conn", ev.ConnID, "error", err)
	}
}

// removeDatabaseFiles deletes the database file and its SQLite side files.
func removeDatabaseFiles(path string) error {
	for _, name := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

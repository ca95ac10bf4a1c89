package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ConnState is the lifecycle state of a Store's connection.
type ConnState int32

const (
	StateClosed ConnState = iota
	StateOpening
	StateUpgrading
	StateOpen
)

func (s ConnState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateUpgrading:
		return "upgrading"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Store persists game records in the database file DatabaseName inside a
// directory. The connection is opened lazily by the first operation and may
// be released by Close or a version change; the next operation reopens it.
//
// A Store is safe for concurrent use. Its pool holds a single SQLite
// connection, so transactions on one Store run one at a time.
type Store struct {
	dir  string
	path string

	logger               *slog.Logger
	onBlocked            func(BlockedNotice)
	onVersionChange      func(VersionChange)
	closeOnVersionChange bool

	state atomic.Int32

	mu     sync.Mutex // guards db and connID
	db     *sql.DB
	connID string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithBlockedHandler receives the notice emitted when ResetDatabase has to
// wait for other connections. The default handler logs a warning.
func WithBlockedHandler(fn func(BlockedNotice)) Option {
	return func(s *Store) {
		s.onBlocked = fn
	}
}

// WithVersionChangeHandler is called when another Store starts deleting the
// database while this Store holds it open. Handlers run on their own goroutine.
func WithVersionChangeHandler(fn func(VersionChange)) Option {
	return func(s *Store) {
		s.onVersionChange = fn
	}
}

// WithCloseOnVersionChange makes the Store release its connection as soon
// as another Store starts deleting the database, so the deletion is not blocked.
func WithCloseOnVersionChange(enabled bool) Option {
	return func(s *Store) {
		s.closeOnVersionChange = enabled
	}
}

// New returns a Store for the database in dir. No I/O happens until the first
// operation or an explicit Open.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		path:   filepath.Join(dir, DatabaseName+".sqlite"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// State returns the current connection state.
func (s *Store) State() ConnState {
	return ConnState(s.state.Load())
}

// ConnID returns the id of the open connection, or "" when closed.
func (s *Store) ConnID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connID
}

// Open ensures a live connection at SchemaVersion, running schema setup when
// the file is new or older. It is called implicitly by every operation.
func (s *Store) Open(ctx context.Context) error {
	_, err := s.conn(ctx)
	return err
}

// Close releases the connection. The Store stays usable: the next operation
// opens a fresh connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Store) closeLocked() error {
	if s.db == nil {
		return nil
	}
	db, id := s.db, s.connID
	s.db, s.connID = nil, ""
	s.state.Store(int32(StateClosed))

	err := db.Close()
	connections.release(s.path, id)
	s.logger.Debug("connection closed", "db", DatabaseName, "conn", id)
	return err
}

// conn returns the open connection, opening it first if needed.
func (s *Store) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}
	if err := s.openLocked(ctx); err != nil {
		return nil, err
	}
	return s.db, nil
}

// openLocked runs Closed -> Opening -> (Upgrading) -> Open. s.mu must be held.
func (s *Store) openLocked(ctx context.Context) error {
	s.state.Store(int32(StateOpening))
	id := uuid.Must(uuid.NewV7()).String()

	if err := connections.acquire(ctx, s.path, id, s); err != nil {
		s.state.Store(int32(StateClosed))
		return newError(CodeConnection, "open", fmt.Errorf("wait for pending deletion: %w", err))
	}

	db, err := s.openDB(ctx)
	if err != nil {
		connections.release(s.path, id)
		s.state.Store(int32(StateClosed))
		return newError(CodeConnection, "open", err)
	}

	s.db, s.connID = db, id
	s.state.Store(int32(StateOpen))
	s.logger.Debug("connection open", "db", DatabaseName, "conn", id, "path", s.path)
	return nil
}

func (s *Store) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	version, err := schemaVersion(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if version > SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("%w: on disk %d, supported %d", ErrVersionTooNew, version, SchemaVersion)
	}
	if version < SchemaVersion {
		s.state.Store(int32(StateUpgrading))
		s.logger.Info("upgrading schema", "db", DatabaseName, "from", version, "to", SchemaVersion)
		if err := upgrade(ctx, db, version); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Info describes the database as seen by an open connection.
type Info struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Version int      `json:"version"`
	Indexes []string `json:"indexes"`
	Count   int      `json:"count"`
}

// Info reports schema version, indexes and record count.
func (s *Store) Info(ctx context.Context) (Info, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return Info{}, err
	}

	info := Info{Name: DatabaseName, Path: s.path}
	if info.Version, err = schemaVersion(ctx, db); err != nil {
		return Info{}, newError(CodeRead, "info", err)
	}
	if info.Indexes, err = listIndexes(ctx, db); err != nil {
		return Info{}, newError(CodeRead, "info", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM games").Scan(&info.Count); err != nil {
		return Info{}, newError(CodeRead, "info", fmt.Errorf("count games: %w", err))
	}
	return info, nil
}

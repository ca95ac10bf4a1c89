// Package store persists game records in a local SQLite database.
//
// The database holds one collection, games, keyed by an auto-generated
// integer id, with two indexes: byStartedAt and byPlayerName.
//
// # Connection Lifecycle
//
// A Store moves through Closed -> Opening -> (Upgrading) -> Open. Every
// operation opens the connection on demand; Close and version changes
// return it to Closed and the next operation reopens it.
//
// # Schema Versioning
//
// The schema version is kept in PRAGMA user_version. Migration scripts under
// migrations/ are embedded and applied in order when the file is older than
// SchemaVersion. Scripts only create what is absent (IF NOT EXISTS), so a
// repeated upgrade never fails and never drops records. A file written by a
// newer schema is refused.
//
// # Deletion
//
// ResetDatabase deletes the file and reopens it empty. Connections held by
// other Stores in the process block the deletion: they are sent a
// VersionChange, and if any stay open a BlockedNotice is emitted while the
// deletion waits for them.
//
// # Errors
//
// Failures are *Error values with one of CodeConnection, CodeWrite, CodeRead
// or CodeReset. A missing record is not an error: GetGameByID returns nil.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store

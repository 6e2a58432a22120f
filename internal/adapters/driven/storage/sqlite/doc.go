// Package sqlite is the local storage backend: chat sessions and the
// embedded vector index share one ragbot.db file under the data directory
// (~/.ragbot/data by default).
//
// The driver is modernc.org/sqlite, so no cgo is needed. The database runs
// in WAL mode with a busy timeout, which lets the CLI, the HTTP server and
// a folder watcher open it at the same time.
//
// Vectors are stored as little-endian float32 blobs and searched by brute
// force cosine similarity, filtered by user_id before scoring.
//
// Migrations live in migrations/ as NNN_name.up.sql files and are applied
// in order on open; the version is tracked in schema_migrations.
package sqlite

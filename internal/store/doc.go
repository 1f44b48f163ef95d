// Package store provides SQLite-backed storage for normalized step
// implementations.
//
// Records are stored as canonical JSON and keyed by their content-addressed
// ID, so writing the same record twice is a no-op. Every new row gets the
// next value of a logical clock (seq); listings are ordered by
// seq ASC, id ASC COLLATE BINARY and never by wall time.
//
// Connections are opened with journal_mode=WAL, synchronous=NORMAL and a
// 5 second busy timeout. Schema changes are tracked in PRAGMA user_version.
package store

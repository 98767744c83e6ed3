// Package database provides the SQLite store behind the participant directory.
//
// The database holds the participants and sub-devices announced over MQTT, so
// a restart can rebuild the directory before the bus reconnects. Logging
// output and sampled values are never stored here.
//
// Connections are opened with WAL journaling, a busy timeout and foreign keys
// enabled. The pool is capped at one connection because SQLite allows a
// single writer.
//
// Migrations live in the top-level migrations package as
// YYYYMMDD_HHMMSS_description.up.sql / .down.sql pairs, embedded into the
// binary and registered through MigrationsFS.
package database

// Package directory keeps track of the participants (devices) the host has
// announced and the sub-devices (domains) each one exposes.
//
// A participant is identified by its name; its numeric id can be recycled
// when the device detaches and reattaches. Each domain advertises a
// capability mask and carries a binding naming the host object that backs
// it, which the primitive layer uses for pull reads.
//
// The SQLiteRepository persists the directory so it survives restarts. The
// Registry wraps a repository with an in-memory cache that serves every
// lookup on the polling path without touching the database.
package directory

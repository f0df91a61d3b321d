// Package queue persists uploads that could not reach the network and
// replays them when connectivity returns.
//
// The Store keeps entries in SQLite so they survive process restarts. An
// entry exists exactly as long as the server has not confirmed its upload: a
// created record and a duplicate conflict both count as confirmation and
// remove the entry. Replay order is oldest-first. Writes are atomic
// per-entry; cross-process drains are serialized with a lock file beside the
// database.
//
// Schema changes bump the version in store.go; users clear the database to
// adopt the new schema.
package queue

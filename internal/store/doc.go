// Package store provides SQLite-backed durable storage for the device's
// local state: the event log, the pending-upload set and the sync cursor.
//
// The store is an opaque key-value blob store. Callers own the encoding of
// values; the store only guarantees that a value written with Set is the
// value later returned by Get, and that SetMany applies all of its writes
// or none of them.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Memory is an in-process implementation of the same contract for tests and
// ephemeral sessions.
package store

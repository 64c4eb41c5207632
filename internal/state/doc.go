// Package state derives the garden snapshot from the event log.
//
// Derivation is a pure function of the log's multiset of events: Prepare
// drops invalid events, puts the rest in a total replay order and removes
// duplicates by identity key, then Apply folds each event into a Snapshot
// starting from the default garden. The four lookup indexes are rebuilt
// from scratch after every derivation and are never a source of truth.
//
// Memo caches the latest derivation and invalidates it whenever the log
// changes. Callers always receive a copy, never a live reference.
package state

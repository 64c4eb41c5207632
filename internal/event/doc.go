// Package event defines the append-only log entries that grove state is
// derived from.
//
// An Event is a closed sum type: the Payload field holds exactly one of the
// seven variants declared in payload.go, and the wire type tag is derived
// from the variant rather than stored twice. Events are immutable once
// created; the reducer never mutates them.
//
// # Identity
//
// Two events are the same logical event when their Key matches. The key is
// the client-assigned idempotency token when present, else a composite of
// type, primary entity id and millisecond timestamp.
//
// # Wire shape
//
// Events travel as flat JSON objects:
//
//	{"type":"sprout_watered","timestamp":"2026-01-05T07:30:00.000Z",
//	 "client_id":"...","sproutId":"s1","content":"..."}
package event

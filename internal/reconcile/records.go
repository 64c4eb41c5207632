package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/remote"
)

// ToRecord converts a local event into the record shape sent to the remote.
// The payload embeds type, timestamp and client_id so any reader can
// reconstruct the event from the payload alone.
func ToRecord(userID string, e event.Event) (remote.Record, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return remote.Record{}, fmt.Errorf("encode event: %w", err)
	}
	return remote.Record{
		UserID:          userID,
		Type:            string(e.Type()),
		Payload:         payload,
		ClientID:        e.ClientID,
		ClientTimestamp: event.FormatTimestamp(e.Timestamp),
	}, nil
}

// FromRecord rebuilds and validates the event held by rec. Payloads written
// by older clients lack type and timestamp; those are filled in from the
// record's columns before validation.
func FromRecord(rec remote.Record) (event.Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec.Payload, &fields); err != nil || fields == nil {
		return event.Event{}, &event.ValidationError{Field: "payload", Reason: "must be a JSON object"}
	}

	fillMissing(fields, "type", rec.Type)
	fillMissing(fields, "timestamp", rec.ClientTimestamp)
	fillMissing(fields, "client_id", rec.ClientID)

	data, err := json.Marshal(fields)
	if err != nil {
		return event.Event{}, fmt.Errorf("re-encode payload: %w", err)
	}
	return event.Parse(data)
}

func fillMissing(fields map[string]json.RawMessage, key, value string) {
	if value == "" {
		return
	}
	if existing, ok := fields[key]; ok && string(existing) != "null" && string(existing) != `""` {
		return
	}
	b, _ := json.Marshal(value)
	fields[key] = b
}

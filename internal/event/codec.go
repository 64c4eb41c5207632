package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TimestampLayout is the millisecond ISO-8601 form used on the wire.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts any RFC 3339 timestamp and truncates it to milliseconds.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return normalizeTime(t), nil
}

var decoders = map[Type]func([]byte) (Payload, error){
	TypeLeafCreated:     decodeAs[LeafCreated],
	TypeSproutPlanted:   decodeAs[SproutPlanted],
	TypeSproutWatered:   decodeAs[SproutWatered],
	TypeSproutHarvested: decodeAs[SproutHarvested],
	TypeSproutUprooted:  decodeAs[SproutUprooted],
	TypeSproutEdited:    decodeAs[SproutEdited],
	TypeSunShone:        decodeAs[SunShone],
}

// requiredNumbers lists numeric fields that must be present; a zero value
// cannot be told apart from an absent one after decoding.
var requiredNumbers = map[Type][]string{
	TypeSproutPlanted:   {"soilCost"},
	TypeSproutHarvested: {"result", "capacityGained"},
	TypeSproutUprooted:  {"soilReturned"},
}

func decodeAs[T Payload](data []byte) (Payload, error) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}

type envelope struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	ClientID  string `json:"client_id"`
}

// MarshalJSON encodes the event as a flat object: payload fields plus
// type, timestamp and (when set) client_id.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("marshal event: missing payload")
	}

	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	fields["type"] = quote(string(e.Type()))
	fields["timestamp"] = quote(FormatTimestamp(e.Timestamp))
	if e.ClientID != "" {
		fields["client_id"] = quote(e.ClientID)
	}

	return json.Marshal(fields)
}

// UnmarshalJSON decodes the wire shape. Shape problems (unknown type, wrong
// JSON kinds, missing timestamp or required numbers) are reported as
// *ValidationError. Field-level rules are checked by Validate, not here.
func (e *Event) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return &ValidationError{Field: "event", Reason: "not a JSON object"}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return shapeError(err)
	}

	typ := Type(env.Type)
	decode, ok := decoders[typ]
	if !ok {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown event type %q", env.Type)}
	}

	if env.Timestamp == "" {
		return &ValidationError{Field: "timestamp", Reason: "required"}
	}
	ts, err := ParseTimestamp(env.Timestamp)
	if err != nil {
		return &ValidationError{Field: "timestamp", Reason: "not an ISO-8601 timestamp"}
	}

	for _, name := range requiredNumbers[typ] {
		raw, present := fields[name]
		if !present || string(raw) == "null" {
			return &ValidationError{Field: name, Reason: "required"}
		}
	}

	payload, err := decode(data)
	if err != nil {
		return shapeError(err)
	}

	*e = Event{Timestamp: ts, ClientID: env.ClientID, Payload: payload}
	return nil
}

// Parse decodes and validates a single event. It is the gate used before a
// new event is persisted.
func Parse(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return Event{}, ve
		}
		return Event{}, &ValidationError{Field: "event", Reason: err.Error()}
	}
	if err := Validate(e); err != nil {
		return Event{}, err
	}
	return e, nil
}

func shapeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ValidationError{Field: typeErr.Field, Reason: fmt.Sprintf("expected %s", typeErr.Type)}
	}
	return &ValidationError{Field: "event", Reason: err.Error()}
}

func quote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

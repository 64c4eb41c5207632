package event

import "time"

// Event is one immutable entry of the action log.
type Event struct {
	// Timestamp has millisecond precision and is held in UTC.
	Timestamp time.Time

	// ClientID is the optional client-assigned idempotency token.
	ClientID string

	// Payload is one of the seven variants; nil means unknown type.
	Payload Payload
}

// New builds an event, truncating ts to millisecond precision.
func New(ts time.Time, p Payload) Event {
	return Event{Timestamp: normalizeTime(ts), Payload: p}
}

// WithClientID returns a copy of e carrying the given idempotency token.
func (e Event) WithClientID(id string) Event {
	e.ClientID = id
	return e
}

// Type returns the variant tag, or "" when the payload is missing.
func (e Event) Type() Type {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.eventType()
}

// EntityID returns the primary entity the event targets: the sprout id,
// the leaf id for leaf_created, or the twig id for sun_shone.
func (e Event) EntityID() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.entityID()
}

// TouchesSoil reports whether applying e can change soil capacity or availability.
func (e Event) TouchesSoil() bool {
	switch e.Type() {
	case TypeSproutPlanted, TypeSproutWatered, TypeSproutHarvested, TypeSproutUprooted, TypeSunShone:
		return true
	}
	return false
}

func normalizeTime(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Time{}
	}
	return time.UnixMilli(ts.UnixMilli()).UTC()
}

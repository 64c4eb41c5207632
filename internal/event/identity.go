package event

import "fmt"

// Key returns the deduplication identity of e. Events sharing a key are one
// logical event; only the first in replay order is applied.
func Key(e Event) string {
	if e.ClientID != "" {
		return e.ClientID
	}
	return fmt.Sprintf("%s|%s|%d", e.Type(), e.EntityID(), e.Timestamp.UnixMilli())
}

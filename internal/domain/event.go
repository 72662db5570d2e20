package domain

import (
	"time"
)

// Event is an in-memory message describing something that happened in a
// domain collection. It is never persisted.
type Event struct {
	Name    NotificationType
	Payload Payload
}

// NewEvent builds an event; the payload is used as given.
func NewEvent(name NotificationType, payload Payload) Event {
	return Event{Name: name, Payload: payload}
}

// ChangeRecord is one entry of a collection change feed.
//
// Seq is monotonically increasing per feed and doubles as the resume token.
// FullDocument is the row after the change (absent for deletes).
// UpdatedFields and PreviousFields are only set for updates and hold the
// new and old values of the keys that changed.
type ChangeRecord struct {
	Seq            int64
	Collection     string
	Operation      ChangeOperation
	DocumentKey    string
	FullDocument   Payload
	UpdatedFields  Payload
	PreviousFields Payload
	OccurredAt     time.Time
}

// FieldUpdated reports whether key is among the changed fields.
func (c ChangeRecord) FieldUpdated(key string) bool {
	_, ok := c.UpdatedFields[key]
	return ok
}

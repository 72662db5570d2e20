package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys with special meaning on notification records.
const (
	PayloadKeyBroadcast   = "_broadcast"
	PayloadKeyOriginalFor = "originalFor"
	PayloadKeyUserID      = "userId"
)

// Payload is opaque structured data attached to events and notifications.
type Payload map[string]any

// Clone returns a shallow copy of the payload. A nil payload clones to an
// empty, non-nil map.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p)+2)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// WithBroadcast returns a copy tagged as an administrator broadcast of a
// notification originally addressed to originalFor. The receiver is not
// modified.
func (p Payload) WithBroadcast(originalFor uuid.UUID) Payload {
	out := p.Clone()
	out[PayloadKeyBroadcast] = true
	out[PayloadKeyOriginalFor] = originalFor.String()
	return out
}

// WithoutBroadcast returns a copy with the broadcast keys removed. Only
// administrator copies may carry them.
func (p Payload) WithoutBroadcast() Payload {
	out := p.Clone()
	delete(out, PayloadKeyBroadcast)
	delete(out, PayloadKeyOriginalFor)
	return out
}

// String returns the string value stored under key, if any.
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// Notification is a durable, user-visible alert with exactly one recipient.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"recipientUserId"`
	Type      NotificationType `json:"type"`
	Payload   Payload          `json:"payload"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// IsBroadcast reports whether this record is an administrator copy.
func (n *Notification) IsBroadcast() bool {
	b, _ := n.Payload[PayloadKeyBroadcast].(bool)
	return b
}

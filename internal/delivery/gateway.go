// Package delivery pushes freshly stored notifications to users' live
// connections.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

// EventNotificationNew is the message name clients receive for a new record.
const EventNotificationNew = "notification:new"

// ErrSendQueueFull is returned by a Sender whose outbound buffer is full.
var ErrSendQueueFull = errors.New("send queue full")

// Message is the envelope written to a live connection.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Sender is one live connection. Enqueue must not block.
type Sender interface {
	ID() string
	Enqueue(msg Message) error
}

// Presence is the subset of the presence registry the gateway depends on.
type Presence interface {
	Connect(userID uuid.UUID, connID string)
	Disconnect(userID uuid.UUID, connID string)
	Get(userID uuid.UUID) []string
}

// Gateway routes messages to the connections registered in presence.
type Gateway struct {
	presence Presence
	log      *slog.Logger

	mu      sync.RWMutex
	senders map[string]Sender
}

// NewGateway creates a gateway backed by the given presence registry.
func NewGateway(logger *slog.Logger, presence Presence) *Gateway {
	return &Gateway{
		presence: presence,
		log:      logger.With("component", "delivery"),
		senders:  make(map[string]Sender),
	}
}

// Attach registers a live connection for userID.
func (g *Gateway) Attach(userID uuid.UUID, s Sender) {
	g.mu.Lock()
	g.senders[s.ID()] = s
	g.mu.Unlock()

	g.presence.Connect(userID, s.ID())
	g.log.Debug("connection attached", slog.String("user_id", userID.String()), slog.String("conn_id", s.ID()))
}

// Detach removes a connection. Unknown ids are ignored.
func (g *Gateway) Detach(userID uuid.UUID, connID string) {
	g.presence.Disconnect(userID, connID)

	g.mu.Lock()
	delete(g.senders, connID)
	g.mu.Unlock()

	g.log.Debug("connection detached", slog.String("user_id", userID.String()), slog.String("conn_id", connID))
}

// Push sends n to every live connection of userID. An offline user is a
// no-op. Failures of individual connections are logged and returned joined;
// delivery to the remaining connections continues.
func (g *Gateway) Push(ctx context.Context, userID uuid.UUID, n domain.Notification) error {
	connIDs := g.presence.Get(userID)
	if len(connIDs) == 0 {
		return nil
	}

	msg := Message{Event: EventNotificationNew, Data: n}

	var errs []error
	for _, id := range connIDs {
		g.mu.RLock()
		s, ok := g.senders[id]
		g.mu.RUnlock()
		if !ok {
			continue
		}

		if err := s.Enqueue(msg); err != nil {
			g.log.WarnContext(ctx, "push to connection failed",
				slog.String("user_id", userID.String()),
				slog.String("conn_id", id),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("conn %s: %w", id, err))
		}
	}

	return errors.Join(errs...)
}

package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/delivery"
)

var errClientClosed = errors.New("connection closed")

// client is one live socket. Messages are queued by the gateway and written
// by a single writer goroutine.
type client struct {
	id   string
	conn *websocket.Conn
	send chan delivery.Message

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, buffer int) *client {
	return &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan delivery.Message, buffer),
		done: make(chan struct{}),
	}
}

func (c *client) ID() string { return c.id }

// Enqueue never blocks.
func (c *client) Enqueue(msg delivery.Message) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return delivery.ErrSendQueueFull
	}
}

func (c *client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *client) writeLoop(ctx context.Context, cfg Config) error {
	ping := time.NewTicker(cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.send:
			if err := c.write(ctx, cfg.WriteTimeout, msg); err != nil {
				return err
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, cfg.WriteTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func (c *client) write(ctx context.Context, timeout time.Duration, msg delivery.Message) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := wsjson.Write(wctx, c.conn, msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Event, err)
	}
	return nil
}

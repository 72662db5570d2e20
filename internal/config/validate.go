package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Watcher.validate(); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}

	if err := c.Notification.validate(); err != nil {
		return fmt.Errorf("notification: %w", err)
	}

	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket.send_buffer must be > 0 (got %d)", c.WebSocket.SendBuffer)
	}
	if c.WebSocket.ConnectsPerMinute < 0 {
		return fmt.Errorf("websocket.connects_per_minute must be >= 0 (got %d)", c.WebSocket.ConnectsPerMinute)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}

	return nil
}

func (w *WatcherConfig) validate() error {
	if w.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be > 0 (got %v)", w.PollInterval)
	}
	if w.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", w.BatchSize)
	}
	if w.OperationTimeout <= 0 {
		return fmt.Errorf("operation_timeout must be > 0 (got %v)", w.OperationTimeout)
	}
	if w.BackoffInitial <= 0 || w.BackoffMax < w.BackoffInitial {
		return fmt.Errorf("backoff must satisfy 0 < initial <= max (got %v, %v)", w.BackoffInitial, w.BackoffMax)
	}
	if w.FanOutPageSize <= 0 {
		return fmt.Errorf("fanout_page_size must be > 0 (got %d)", w.FanOutPageSize)
	}
	return nil
}

func (n *NotificationConfig) validate() error {
	if n.DefaultLimit <= 0 {
		return fmt.Errorf("default_limit must be > 0 (got %d)", n.DefaultLimit)
	}
	if n.MaxLimit < n.DefaultLimit {
		return fmt.Errorf("max_limit must be >= default_limit (got %d < %d)", n.MaxLimit, n.DefaultLimit)
	}
	return nil
}

package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client maintains a WebSocket connection to the dialogue feed and keeps
// the latest snapshot of every channel. It reconnects with exponential
// backoff and never blocks the render path: consumers read snapshots,
// they do not wait on the socket.
type Client struct {
	feedURL string
	logger  zerolog.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	cancel    context.CancelFunc

	snapshot Snapshot

	onUpdate func(Snapshot)
}

// NewClient creates a client for the given ws:// or http:// URL.
func NewClient(feedURL string, logger zerolog.Logger) *Client {
	return &Client{
		feedURL: feedURL,
		logger:  logger.With().Str("component", "dialogue-feed").Logger(),
	}
}

// SetOnUpdate registers a callback invoked after every applied message.
// Must be set before Connect.
func (c *Client) SetOnUpdate(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// Connect starts the connection loop in its own goroutine.
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.connectLoop(ctx)
	return nil
}

// Disconnect tears the connection down.
func (c *Client) Disconnect() {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.mu.Unlock()
}

// IsConnected returns connection status.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Latest returns the most recent snapshot. Safe at frame rate.
func (c *Client) Latest() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func (c *Client) connectLoop(ctx context.Context) {
	backoff := 3 * time.Second
	maxBackoff := 60 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := c.readFeed(ctx); err != nil {
				c.mu.Lock()
				c.connected = false
				c.mu.Unlock()

				c.logger.Warn().Err(err).Dur("backoff", backoff).Msg("feed connection lost, reconnecting")

				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}

				if backoff < maxBackoff {
					backoff *= 2
					if backoff > maxBackoff {
						backoff = maxBackoff
					}
				}
			} else {
				backoff = 3 * time.Second
			}
		}
	}
}

func (c *Client) readFeed(ctx context.Context) error {
	u, err := url.Parse(c.feedURL)
	if err != nil {
		return fmt.Errorf("parse feed url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}

	c.logger.Info().Str("url", u.String()).Msg("connecting to dialogue feed")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info().Msg("dialogue feed connected")

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return ctx.Err()
		default:
			var raw json.RawMessage
			if err := conn.ReadJSON(&raw); err != nil {
				return fmt.Errorf("read: %w", err)
			}
			c.handleMessage(raw)
		}
	}
}

func (c *Client) handleMessage(raw json.RawMessage) {
	var typeMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &typeMsg); err != nil {
		c.logger.Warn().Err(err).Msg("unparseable feed message")
		return
	}

	c.mu.Lock()
	now := time.Now()

	switch typeMsg.Type {
	case "state":
		var msg stateMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.mu.Unlock()
			c.logger.Warn().Err(err).Msg("bad state message")
			return
		}
		c.snapshot.State = msg.State

	case "visemes":
		var msg visemeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.mu.Unlock()
			c.logger.Warn().Err(err).Msg("bad viseme message")
			return
		}
		c.snapshot.Weights = msg.Weights

	case "level":
		var msg levelMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.mu.Unlock()
			c.logger.Warn().Err(err).Msg("bad level message")
			return
		}
		c.snapshot.Level = msg.Level

	case "emotion":
		var msg emotionMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.mu.Unlock()
			c.logger.Warn().Err(err).Msg("bad emotion message")
			return
		}
		c.snapshot.Emotion = msg.Emotion

	default:
		c.mu.Unlock()
		c.logger.Debug().Str("type", typeMsg.Type).Msg("unknown feed message type")
		return
	}

	c.snapshot.LastUpdate = now
	snapshot := c.snapshot
	onUpdate := c.onUpdate
	c.mu.Unlock()

	if onUpdate != nil {
		onUpdate(snapshot)
	}
}

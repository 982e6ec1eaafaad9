package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cliniq/models"
	"cliniq/utils"
)

// ConnState is the connection state of a sync client.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "disconnected"
}

const (
	defaultMaxRetries = 5
	defaultBackoff    = 3 * time.Second
)

// Client is a reconnecting sync-channel consumer: it dials the server,
// declares its role, and feeds pushed events into a local dispatcher.
// Connection errors are logged and trigger automatic reconnection with a
// fixed backoff until the bounded retry count is exhausted.
type Client struct {
	URL        string
	Role       models.Role
	UserID     string
	MaxRetries int
	Backoff    time.Duration

	Dispatcher *Dispatcher

	mu    sync.Mutex
	state ConnState
}

// NewClient creates a client for the given endpoint and role.
func NewClient(url string, role models.Role, userID string) *Client {
	return &Client{
		URL:        url,
		Role:       role,
		UserID:     userID,
		MaxRetries: defaultMaxRetries,
		Backoff:    defaultBackoff,
		Dispatcher: NewDispatcher(),
	}
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Subscribe registers a local listener for an event kind.
func (c *Client) Subscribe(kind models.EventKind, fn EventHandler) Subscription {
	return c.Dispatcher.Subscribe(kind, fn)
}

// Unsubscribe removes a listener. Subscriptions survive reconnects until
// explicitly removed.
func (c *Client) Unsubscribe(sub Subscription) {
	c.Dispatcher.Unsubscribe(sub)
}

// Run connects and consumes events until the context is cancelled or the
// retry budget is spent. Each successful connection resets the budget.
func (c *Client) Run(ctx context.Context) error {
	logger := utils.GetLogger()
	retries := 0

	for {
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			c.setState(StateDisconnected)
			retries++
			if retries > c.MaxRetries {
				return fmt.Errorf("sync client: retries exhausted: %w", err)
			}
			logger.Warn("sync client: connect failed, retrying",
				zap.Int("attempt", retries), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.Backoff):
			}
			continue
		}

		c.setState(StateConnected)
		retries = 0

		// Closing the connection is the only way to unblock a pending read
		// when the context is cancelled.
		stop := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-stop:
			}
		}()
		c.readLoop(ctx, conn)
		close(stop)
		conn.Close()
		c.setState(StateDisconnected)
	}
}

func knownKind(kind models.EventKind) bool {
	for _, k := range models.KnownEventKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return nil, err
	}
	join := joinMessage{Action: "join", Role: c.Role, UserID: c.UserID}
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send join message: %w", err)
	}
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	logger := utils.GetLogger()
	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Warn("sync client: connection lost", zap.Error(err))
			return
		}
		var event models.SyncEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			logger.Debug("sync client: dropping malformed event", zap.Error(err))
			continue
		}
		if !knownKind(event.Kind) {
			logger.Debug("sync client: dropping unknown event kind", zap.String("kind", string(event.Kind)))
			continue
		}
		c.Dispatcher.Dispatch(event)
	}
}

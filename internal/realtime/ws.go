package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"taskdeck-cli/internal/model"
)

// WSChannel subscribes to a websocket change feed. Each text frame carries
// one JSON-encoded model.ChangeEvent.
type WSChannel struct {
	baseURL string

	// ReadTimeout bounds how long a silent connection is trusted before the
	// channel reports StatusTimedOut. Zero disables the deadline.
	ReadTimeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewWSChannel(baseURL string) *WSChannel {
	return &WSChannel{baseURL: baseURL}
}

// Subscribe dials the feed and starts the read loop. The returned status
// stream sees Connecting, then Subscribed on a successful dial, then exactly
// one terminal status.
func (c *WSChannel) Subscribe(ctx context.Context, topic string, onEvent func(model.ChangeEvent)) (<-chan Status, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("topic", topic)
	u.RawQuery = q.Encode()

	// A previous Unsubscribe ended the last session; this call starts a new
	// one, so the closed latch resets here.
	c.mu.Lock()
	c.closed = false
	c.mu.Unlock()

	// Buffered so the read loop never blocks on a slow status consumer.
	statusCh := make(chan Status, 8)

	go func() {
		defer close(statusCh)
		statusCh <- StatusConnecting

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			statusCh <- classify(err)
			return
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			statusCh <- StatusClosed
			return
		}
		c.conn = conn
		c.mu.Unlock()

		// Close the socket when the caller's context ends, which unblocks
		// ReadMessage below.
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-done:
			}
		}()

		statusCh <- StatusSubscribed
		statusCh <- c.readLoop(ctx, conn, onEvent)
	}()

	return statusCh, nil
}

func (c *WSChannel) readLoop(ctx context.Context, conn *websocket.Conn, onEvent func(model.ChangeEvent)) Status {
	for {
		if c.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.ReadTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || c.isClosed() {
				return StatusClosed
			}
			return classify(err)
		}
		var ev model.ChangeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			// A malformed frame is not worth tearing the channel down for;
			// the polling backstop covers whatever it carried.
			continue
		}
		onEvent(ev)
	}
}

// Unsubscribe closes the connection; the read loop then reports StatusClosed.
func (c *WSChannel) Unsubscribe() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *WSChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func classify(err error) Status {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return StatusTimedOut
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return StatusClosed
	}
	return StatusChannelError
}

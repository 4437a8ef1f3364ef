package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	outboxSize   = 64
	ackBufSize   = 16
	maxReconnect = 5
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
)

// connection owns one socket with a single writer goroutine and a reader
// that routes acks to waiters. A failed socket is replaced in place; queued
// messages survive the swap.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	stop   chan struct{} // closed when conn is torn down
	closed bool

	outbox chan []byte
	acks   chan AckMessage
	done   chan struct{}

	// target is the resolved dial URL, secret included
	target string

	// first reconnect delay, shortened in tests
	backoff time.Duration

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		outbox:  make(chan []byte, outboxSize),
		acks:    make(chan AckMessage, ackBufSize),
		done:    make(chan struct{}),
		backoff: time.Second,
		logger:  logger,
	}
}

// dialTarget appends the secret to rawURL as a query parameter.
func dialTarget(rawURL, secret string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// dial connects and starts the read and write loops.
func (c *connection) dial(rawURL, secret string) error {
	target, err := dialTarget(rawURL, secret)
	if err != nil {
		return err
	}
	c.target = target

	conn, _, err := ws.DefaultDialer.Dial(c.target, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	if !c.attach(conn) {
		_ = conn.Close()
		return errors.New("websocket connection already closed")
	}
	return nil
}

// attach installs conn as the live socket and starts its loops. It reports
// false when the connection was closed in the meantime.
func (c *connection) attach(conn *ws.Conn) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.conn = conn
	c.stop = make(chan struct{})
	stop := c.stop
	c.mu.Unlock()

	go c.writeLoop(conn, stop)
	go c.readLoop(conn)
	return true
}

// detach tears down failed if it is still the live socket. Only the first
// caller for a given socket gets true.
func (c *connection) detach(failed *ws.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn != failed {
		return false
	}
	close(c.stop)
	_ = c.conn.Close()
	c.conn = nil
	return true
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// writeLoop drains the outbox onto conn until shutdown or until conn is torn
// down. A message that fails to write is queued again for the next socket.
func (c *connection) writeLoop(conn *ws.Conn, stop <-chan struct{}) {
	for {
		var data []byte
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case data = <-c.outbox:
		}

		if err := write(conn, data); err != nil {
			c.logger.Warn("Socket write failed, requeueing", "error", err, "bytes", len(data))
			if c.send(data) != nil {
				c.logger.Warn("Outbox full, message lost")
			}
			go c.reconnect(conn)
			return
		}
	}
}

// readLoop forwards ack frames from conn to the acks channel.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			c.logger.Warn("Socket read failed", "error", err)
			go c.reconnect(conn)
			return
		}

		var ack AckMessage
		if json.Unmarshal(frame, &ack) != nil || ack.Type != TypeAck {
			c.logger.Debug("Ignoring non-ack frame", "raw", string(frame))
			continue
		}

		select {
		case c.acks <- ack:
		default:
			c.logger.Debug("No waiter for ack, dropping", "for", ack.For, "id", ack.ID)
		}
	}
}

func (c *connection) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// reconnect replaces a failed socket, doubling the delay between attempts.
// Both loops call it on failure; detach lets only one of them proceed.
func (c *connection) reconnect(failed *ws.Conn) {
	if !c.detach(failed) {
		return
	}

	delay := c.backoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Redialing annotation socket", "attempt", attempt, "delay", delay)
		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		conn, _, err := ws.DefaultDialer.Dial(c.target, nil)
		if err != nil {
			c.logger.Warn("Redial failed", "attempt", attempt, "error", err)
			delay = min(delay*2, maxBackoff)
			continue
		}
		if !c.attach(conn) {
			_ = conn.Close()
			return
		}
		c.logger.Info("Annotation socket restored", "attempt", attempt)
		return
	}

	c.logger.Error("Giving up on annotation socket", "attempts", maxReconnect)
}

// send queues data for the write loop without blocking.
func (c *connection) send(data []byte) error {
	select {
	case c.outbox <- data:
		return nil
	default:
		return errors.New("websocket send queue full")
	}
}

// sendAndWait sends data and blocks until an ack for msgType with the given
// request ID arrives or the timeout expires. Acks for other requests are
// discarded.
func (c *connection) sendAndWait(data []byte, msgType, id string, timeout time.Duration) (AckMessage, error) {
	if err := c.send(data); err != nil {
		return AckMessage{}, err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case ack := <-c.acks:
			if ack.For != msgType || (ack.ID != "" && ack.ID != id) {
				continue
			}
			return ack, nil
		case <-deadline.C:
			return AckMessage{}, fmt.Errorf("timeout waiting for ack of %s %q", msgType, id)
		case <-c.done:
			return AckMessage{}, fmt.Errorf("connection closed while waiting for ack of %s %q", msgType, id)
		}
	}
}

// close sends a close frame and stops all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	// WriteControl may run alongside the write loop; WriteMessage may not
	bye := ws.FormatCloseMessage(ws.CloseNormalClosure, "")
	_ = conn.WriteControl(ws.CloseMessage, bye, time.Now().Add(writeWait))
	return conn.Close()
}

package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	// writeTimeout bounds a single frame write.
	writeTimeout = 5 * time.Second
	// pingInterval is how often the writer pings the peer.
	pingInterval = 30 * time.Second
	// PongTimeout is the read deadline extension granted per pong.
	PongTimeout = 60 * time.Second
	// sendBuffer is the per-client outbound queue depth. A client whose
	// buffer is full when a broadcast arrives is evicted.
	sendBuffer = 16
)

// Conn is the subset of the websocket connection the writer needs.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one registered dashboard connection. All writes to the
// underlying socket go through the client's writer goroutine.
type Client struct {
	ID uuid.UUID

	conn     Conn
	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
	clock    clockwork.Clock
	logger   *slog.Logger
}

func newClient(conn Conn, clock clockwork.Clock, logger *slog.Logger) *Client {
	id := uuid.New()
	return &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		clock:  clock,
		logger: logger.With("connection_id", id),
	}
}

type sendResult int

const (
	sendOK sendResult = iota
	sendClosed
	sendFull
)

// enqueue offers a pre-serialized message to the writer without
// blocking. A full buffer is reported, not waited on.
func (c *Client) enqueue(msg []byte) sendResult {
	select {
	case <-c.done:
		return sendClosed
	default:
	}

	select {
	case c.send <- msg:
		return sendOK
	case <-c.done:
		return sendClosed
	default:
		return sendFull
	}
}

// stop shuts the writer down. Safe to call multiple times and from any
// goroutine.
func (c *Client) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// closed reports whether the client has been stopped.
func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// run drains the send queue onto the socket and keeps the connection
// alive with pings. Exits on stop or on the first write error.
func (c *Client) run() {
	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("write failed, closing connection", "error", err)
				c.stop()
				return
			}

		case <-ticker.Chan():
			deadline := c.clock.Now().Add(writeTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("ping failed, closing connection", "error", err)
				c.stop()
				return
			}

		case <-c.done:
			deadline := c.clock.Now().Add(writeTimeout)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(c.clock.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

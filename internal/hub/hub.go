package hub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/metrics"
)

// Errors returned by hub and client operations.
var (
	ErrHubStopped     = errors.New("hub is stopped")
	ErrClientClosed   = errors.New("client connection is closed")
	ErrSendBufferFull = errors.New("client send buffer is full")
)

type registerCmd struct {
	conn  Conn
	reply chan *Client
}

type unregisterCmd struct {
	client *Client
	reply  chan struct{}
}

type broadcastCmd struct {
	eventType string
	payload   []byte
}

type countCmd struct {
	reply chan int
}

// Hub fans broadcast events out to every registered connection.
type Hub struct {
	commands chan any
	stopped  chan struct{}
	stopOnce sync.Once
	clock    clockwork.Clock
	logger   *slog.Logger
}

// New creates a hub and starts its command loop.
func New(clock clockwork.Clock, logger *slog.Logger) *Hub {
	h := &Hub{
		commands: make(chan any),
		stopped:  make(chan struct{}),
		clock:    clock,
		logger:   logger,
	}
	go h.run()
	return h
}

// Register adds a connection to the registry and starts its writer.
func (h *Hub) Register(conn Conn) (*Client, error) {
	reply := make(chan *Client, 1)
	select {
	case h.commands <- registerCmd{conn: conn, reply: reply}:
		return <-reply, nil
	case <-h.stopped:
		return nil, ErrHubStopped
	}
}

// Unregister removes a client and stops its writer. Idempotent: calling
// it twice, or with a client that was already evicted, is a no-op.
func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}
	reply := make(chan struct{}, 1)
	select {
	case h.commands <- unregisterCmd{client: client, reply: reply}:
		<-reply
	case <-h.stopped:
		client.stop()
	}
}

// Publish serializes the event once and offers it to every registered
// open connection. Per-connection failures never propagate to the
// caller: closed connections are skipped and clients with saturated
// send buffers are evicted.
func (h *Hub) Publish(eventType string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal broadcast event", "type", eventType, "error", err)
		return
	}
	select {
	case h.commands <- broadcastCmd{eventType: eventType, payload: payload}:
	case <-h.stopped:
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.commands <- countCmd{reply: reply}:
		return <-reply
	case <-h.stopped:
		return 0
	}
}

// Stop shuts the hub down and stops all registered clients.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopped)
	})
}

func (h *Hub) run() {
	clients := make(map[uuid.UUID]*Client)

	for {
		select {
		case cmd := <-h.commands:
			switch c := cmd.(type) {
			case registerCmd:
				client := newClient(c.conn, h.clock, h.logger)
				clients[client.ID] = client
				go client.run()
				metrics.ConnectionsTotal.Inc()
				metrics.ActiveConnections.Set(float64(len(clients)))
				h.logger.Info("client registered", "connection_id", client.ID, "clients", len(clients))
				c.reply <- client

			case unregisterCmd:
				if _, ok := clients[c.client.ID]; ok {
					delete(clients, c.client.ID)
					metrics.ActiveConnections.Set(float64(len(clients)))
					h.logger.Info("client unregistered", "connection_id", c.client.ID, "clients", len(clients))
				}
				c.client.stop()
				c.reply <- struct{}{}

			case broadcastCmd:
				h.broadcast(clients, c)
				metrics.ActiveConnections.Set(float64(len(clients)))

			case countCmd:
				c.reply <- len(clients)
			}

		case <-h.stopped:
			for _, client := range clients {
				client.stop()
			}
			return
		}
	}
}

func (h *Hub) broadcast(clients map[uuid.UUID]*Client, cmd broadcastCmd) {
	metrics.EventsPublished.WithLabelValues(cmd.eventType).Inc()

	for id, client := range clients {
		if client.closed() {
			delete(clients, id)
			continue
		}
		switch client.enqueue(cmd.payload) {
		case sendOK:
		case sendClosed:
			delete(clients, id)
		case sendFull:
			h.logger.Warn("evicting slow client", "connection_id", id, "type", cmd.eventType)
			metrics.SlowClientsEvicted.Inc()
			client.stop()
			delete(clients, id)
		}
	}
}

// Send queues a connection-scoped event on this client, bypassing the
// broadcast fan-out. Used for snapshots addressed to one connection.
func (c *Client) Send(event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	switch c.enqueue(payload) {
	case sendOK:
		return nil
	case sendClosed:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

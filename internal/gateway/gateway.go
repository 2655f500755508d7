// Package gateway drives one realtime dashboard connection from accept
// to teardown: it registers the connection with the hub, binds it to
// the changefeed and answers snapshot requests.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/hub"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/metrics"
)

// snapshotLimit bounds the appointment list carried in a snapshot.
const snapshotLimit = 200

// Store provides the appointment list for snapshots.
type Store interface {
	ListAppointments(ctx context.Context, limit int) ([]domain.Appointment, error)
}

// StatsProvider computes the dashboard statistics.
type StatsProvider interface {
	Snapshot(ctx context.Context) (domain.Stats, error)
}

// Subscription is a live binding to the change stream.
type Subscription interface {
	Changes() <-chan domain.Change
	Close()
}

// ChangeStream hands out change subscriptions.
type ChangeStream interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Conn is the websocket surface the gateway needs. *websocket.Conn
// satisfies it.
type Conn interface {
	hub.Conn
	ReadMessage() (int, []byte, error)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
}

// Gateway serves realtime dashboard connections.
type Gateway struct {
	hub     *hub.Hub
	store   Store
	stats   StatsProvider
	feed    ChangeStream
	breaker *gobreaker.CircuitBreaker
	clock   clockwork.Clock
	logger  *slog.Logger
}

// New creates a gateway. The circuit breaker guards the snapshot
// refetch path so a struggling store does not get hammered by every
// change notification across all connections.
func New(h *hub.Hub, store Store, stats StatsProvider, feed ChangeStream, clock clockwork.Clock, logger *slog.Logger) *Gateway {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "snapshot",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Gateway{
		hub:     h,
		store:   store,
		stats:   stats,
		feed:    feed,
		breaker: breaker,
		clock:   clock,
		logger:  logger,
	}
}

// Serve runs the connection until the peer disconnects, the
// subscription ends or ctx is cancelled. It always unregisters from
// the hub and releases the change subscription exactly once.
func (g *Gateway) Serve(ctx context.Context, conn Conn) error {
	client, err := g.hub.Register(conn)
	if err != nil {
		conn.Close()
		return err
	}
	defer g.hub.Unregister(client)

	logger := g.logger.With("connection_id", client.ID)

	sub, err := g.feed.Subscribe(ctx)
	if err != nil {
		logger.Error("failed to subscribe to changefeed", "error", err)
		return err
	}
	defer sub.Close()

	_ = conn.SetReadDeadline(g.clock.Now().Add(hub.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(g.clock.Now().Add(hub.PongTimeout))
	})

	requests := make(chan string)
	readDone := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go g.readPump(conn, requests, readDone, stop, logger)

	logger.Info("realtime connection open")

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-readDone:
			logger.Info("realtime connection closed by peer")
			return nil

		case reqType := <-requests:
			if reqType != domain.RequestFetchInitialData {
				logger.Warn("ignoring unknown client request", "type", reqType)
				continue
			}
			g.sendInitialData(ctx, client, logger)

		case change, ok := <-sub.Changes():
			if !ok {
				logger.Info("changefeed subscription ended")
				return nil
			}
			g.sendRealtimeUpdate(ctx, client, change, logger)
		}
	}
}

// readPump decodes inbound frames into request types. Malformed
// payloads are logged and dropped without closing the connection.
func (g *Gateway) readPump(conn Conn, requests chan<- string, done chan<- struct{}, stop <-chan struct{}, logger *slog.Logger) {
	defer close(done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req domain.ClientRequest
		if err := json.Unmarshal(raw, &req); err != nil || req.Type == "" {
			logger.Warn("ignoring malformed client message")
			continue
		}

		select {
		case requests <- req.Type:
		case <-stop:
			return
		}
	}
}

// sendInitialData answers a snapshot request. Store failures are
// logged and swallowed; the connection stays open for future triggers.
func (g *Gateway) sendInitialData(ctx context.Context, client *hub.Client, logger *slog.Logger) {
	appointments, stats, err := g.snapshot(ctx)
	if err != nil {
		logger.Error("failed to assemble initial snapshot", "error", err)
		return
	}

	event := domain.InitialDataEvent{
		Type:         domain.EventInitialData,
		Appointments: appointments,
		Stats:        stats,
		Timestamp:    g.clock.Now().UTC(),
	}
	if err := client.Send(event); err != nil {
		logger.Warn("failed to deliver initial snapshot", "error", err)
	}
}

// sendRealtimeUpdate pushes a fresh snapshot in response to a change
// notification, tagged with the originating operation.
func (g *Gateway) sendRealtimeUpdate(ctx context.Context, client *hub.Client, change domain.Change, logger *slog.Logger) {
	appointments, stats, err := g.snapshot(ctx)
	if err != nil {
		logger.Error("failed to refresh snapshot after change", "operation", change.Operation, "error", err)
		return
	}

	event := domain.RealtimeUpdateEvent{
		Type:         domain.EventRealtimeUpdate,
		Event:        change.Operation,
		Appointments: appointments,
		Stats:        stats,
		Timestamp:    g.clock.Now().UTC(),
	}
	if err := client.Send(event); err != nil {
		logger.Warn("failed to deliver realtime update", "error", err)
	}
}

type snapshotData struct {
	appointments []domain.Appointment
	stats        domain.Stats
}

func (g *Gateway) snapshot(ctx context.Context) ([]domain.Appointment, domain.Stats, error) {
	start := g.clock.Now()
	result, err := g.breaker.Execute(func() (any, error) {
		appointments, err := g.store.ListAppointments(ctx, snapshotLimit)
		if err != nil {
			return nil, err
		}
		stats, err := g.stats.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return snapshotData{appointments: appointments, stats: stats}, nil
	})
	if err != nil {
		return nil, domain.Stats{}, err
	}
	metrics.SnapshotDuration.Observe(g.clock.Since(start).Seconds())

	data := result.(snapshotData)
	if data.appointments == nil {
		data.appointments = []domain.Appointment{}
	}
	return data.appointments, data.stats, nil
}

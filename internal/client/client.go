// Package client implements the dashboard-side consumer of the
// realtime channel: it connects, pulls the initial snapshot, applies
// incremental events to a local view and reconnects on drop.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
)

// ReconnectDelay is the fixed wait between reconnect attempts. No
// backoff: the dashboard retries at this cadence indefinitely.
const ReconnectDelay = 5 * time.Second

// ErrUnauthorized is returned when the server closes the connection
// with the unauthorized close code. The caller must discard its stored
// credentials and re-authenticate; the client does not retry.
var ErrUnauthorized = errors.New("realtime connection unauthorized")

// Conn is the read/write surface of a dialed connection.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens realtime connections. Injectable for tests.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type gorillaDialer struct{}

func (gorillaDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Options configures a Client.
type Options struct {
	// URL is the realtime endpoint, e.g. ws://host/ws.
	URL string
	// Token is the bearer credential passed as a query parameter.
	Token string
	// Dialer defaults to a gorilla websocket dialer.
	Dialer Dialer
	// Clock defaults to the real clock.
	Clock clockwork.Clock
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// OnEvent, when set, observes every decoded event.
	OnEvent func(eventType string, raw []byte)
}

// Client maintains a live local view of the dashboard data.
type Client struct {
	opts   Options
	dialer Dialer
	clock  clockwork.Clock
	logger *slog.Logger

	mu           sync.Mutex
	appointments []domain.Appointment
	stats        domain.Stats
	connected    bool
	attempts     int
}

// New creates a dashboard client.
func New(opts Options) *Client {
	c := &Client{opts: opts}
	c.dialer = opts.Dialer
	if c.dialer == nil {
		c.dialer = gorillaDialer{}
	}
	c.clock = opts.Clock
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	c.logger = opts.Logger
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Appointments returns a copy of the current local appointment view.
func (c *Client) Appointments() []domain.Appointment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Appointment, len(c.appointments))
	copy(out, c.appointments)
	return out
}

// Stats returns the latest received statistics.
func (c *Client) Stats() domain.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Attempts returns the number of dial attempts made so far.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Run connects and serves the local view until ctx is cancelled or the
// server reports the credential invalid. Every other failure mode is
// retried after the fixed reconnect delay.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		c.mu.Lock()
		c.attempts++
		c.mu.Unlock()

		conn, err := c.dialer.Dial(ctx, c.endpoint())
		if err != nil {
			c.logger.Warn("realtime connection failed", "error", err)
			if !c.waitReconnect(ctx) {
				return nil
			}
			continue
		}

		err = c.serve(ctx, conn)
		if errors.Is(err, ErrUnauthorized) {
			return ErrUnauthorized
		}
		if err != nil {
			c.logger.Warn("realtime connection dropped", "error", err)
		}
		if !c.waitReconnect(ctx) {
			return nil
		}
	}
}

func (c *Client) endpoint() string {
	if c.opts.Token == "" {
		return c.opts.URL
	}
	return c.opts.URL + "?token=" + url.QueryEscape(c.opts.Token)
}

// waitReconnect sleeps the fixed delay; false means ctx was cancelled.
func (c *Client) waitReconnect(ctx context.Context) bool {
	timer := c.clock.NewTimer(ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func (c *Client) serve(ctx context.Context, conn Conn) error {
	defer conn.Close()
	defer c.setConnected(false)
	c.setConnected(true)

	request, _ := json.Marshal(domain.ClientRequest{Type: domain.RequestFetchInitialData})
	if err := conn.WriteMessage(websocket.TextMessage, request); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			c.apply(raw)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == domain.CloseUnauthorized {
			return ErrUnauthorized
		}
		return err
	}
}

func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	c.connected = connected
	c.mu.Unlock()
}

// apply routes one inbound event into the local view. Snapshots replace
// the view wholesale; single-item events apply targeted updates.
// Malformed events are logged and dropped.
func (c *Client) apply(raw []byte) {
	eventType := domain.EventType(raw)
	if eventType == "" {
		c.logger.Warn("ignoring malformed realtime event")
		return
	}
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(eventType, raw)
	}

	switch eventType {
	case domain.EventInitialData:
		var event domain.InitialDataEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.logger.Warn("ignoring malformed snapshot", "type", eventType, "error", err)
			return
		}
		c.replaceView(event.Appointments, event.Stats)

	case domain.EventRealtimeUpdate:
		var event domain.RealtimeUpdateEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.logger.Warn("ignoring malformed snapshot", "type", eventType, "error", err)
			return
		}
		c.replaceView(event.Appointments, event.Stats)

	case domain.EventNewAppointment:
		var event domain.NewAppointmentEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.logger.Warn("ignoring malformed event", "type", eventType, "error", err)
			return
		}
		c.upsertAppointment(event.Data)

	case domain.EventAppointmentCreated, domain.EventAppointmentUpdate:
		var event domain.AppointmentEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.logger.Warn("ignoring malformed event", "type", eventType, "error", err)
			return
		}
		c.upsertAppointment(event.Appointment)

	case domain.EventNewPayment, domain.EventPaymentUpdated,
		domain.EventPatientUpdated, domain.EventNewMessage:
		// Observed via OnEvent; no appointment-view change.

	default:
		c.logger.Warn("ignoring unknown realtime event", "type", eventType)
	}
}

func (c *Client) replaceView(appointments []domain.Appointment, stats domain.Stats) {
	c.mu.Lock()
	c.appointments = appointments
	c.stats = stats
	c.mu.Unlock()
}

// upsertAppointment replaces the matching entry by identity, or
// prepends the appointment when it is new to the view.
func (c *Client) upsertAppointment(appointment domain.Appointment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.appointments {
		if c.appointments[i].ID == appointment.ID {
			c.appointments[i] = appointment
			return
		}
	}
	c.appointments = append([]domain.Appointment{appointment}, c.appointments...)
}

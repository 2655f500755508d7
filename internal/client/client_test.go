package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
)

type failingDialer struct {
	mu    sync.Mutex
	calls int
}

func (f *failingDialer) Dial(_ context.Context, _ string) (Conn, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return nil, errors.New("connection refused")
}

type scriptedConn struct {
	mu      sync.Mutex
	written [][]byte
	reads   chan []byte
	readErr error
	closed  chan struct{}
	once    sync.Once
}

func newScriptedConn(readErr error) *scriptedConn {
	return &scriptedConn{
		reads:   make(chan []byte, 8),
		readErr: readErr,
		closed:  make(chan struct{}),
	}
}

func (s *scriptedConn) ReadMessage() (int, []byte, error) {
	select {
	case msg, ok := <-s.reads:
		if !ok {
			return 0, nil, s.readErr
		}
		return websocket.TextMessage, msg, nil
	case <-s.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (s *scriptedConn) WriteMessage(_ int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.written = append(s.written, buf)
	return nil
}

func (s *scriptedConn) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type connDialer struct {
	conn Conn
}

func (d *connDialer) Dial(_ context.Context, _ string) (Conn, error) {
	return d.conn, nil
}

func TestReconnectKeepsRetryingOnFixedDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	dialer := &failingDialer{}
	c := New(Options{URL: "ws://localhost/ws", Dialer: dialer, Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Each failed dial parks the client on the 5s reconnect timer.
	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(ReconnectDelay)
	}
	clock.BlockUntil(1)

	assert.GreaterOrEqual(t, c.Attempts(), 3)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("client did not stop on cancellation")
	}
}

func TestUnauthorizedCloseIsTerminal(t *testing.T) {
	conn := newScriptedConn(&websocket.CloseError{Code: domain.CloseUnauthorized, Text: "unauthorized"})
	close(conn.reads)

	c := New(Options{
		URL:    "ws://localhost/ws",
		Token:  "expired-token",
		Dialer: &connDialer{conn: conn},
		Clock:  clockwork.NewFakeClock(),
	})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	// No reconnect loop after a credential failure.
	assert.Equal(t, 1, c.Attempts())
}

func TestServeRequestsInitialDataOnConnect(t *testing.T) {
	conn := newScriptedConn(errors.New("connection reset"))
	close(conn.reads)

	c := New(Options{URL: "ws://localhost/ws", Dialer: &connDialer{conn: conn}, Clock: clockwork.NewFakeClock()})
	_ = c.serve(context.Background(), conn)

	require.Len(t, conn.written, 1)
	var req domain.ClientRequest
	require.NoError(t, json.Unmarshal(conn.written[0], &req))
	assert.Equal(t, domain.RequestFetchInitialData, req.Type)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestSnapshotReplacesViewWholesale(t *testing.T) {
	c := New(Options{})

	first := domain.Appointment{ID: uuid.New(), PatientName: "Ada"}
	c.apply(mustMarshal(t, domain.InitialDataEvent{
		Type:         domain.EventInitialData,
		Appointments: []domain.Appointment{first},
		Stats:        domain.Stats{TotalAppointments: 1},
	}))

	require.Len(t, c.Appointments(), 1)
	assert.Equal(t, int64(1), c.Stats().TotalAppointments)

	// A later snapshot replaces everything, even if it carries less.
	c.apply(mustMarshal(t, domain.RealtimeUpdateEvent{
		Type:         domain.EventRealtimeUpdate,
		Event:        domain.ChangeDelete,
		Appointments: []domain.Appointment{},
		Stats:        domain.Stats{TotalAppointments: 0},
	}))

	assert.Empty(t, c.Appointments())
	assert.Equal(t, int64(0), c.Stats().TotalAppointments)
}

func TestSingleItemEventsApplyTargetedUpdates(t *testing.T) {
	c := New(Options{})

	existing := domain.Appointment{ID: uuid.New(), PatientName: "Ada", Status: domain.AppointmentStatusPending}
	c.apply(mustMarshal(t, domain.InitialDataEvent{
		Type:         domain.EventInitialData,
		Appointments: []domain.Appointment{existing},
	}))

	// New appointment is prepended.
	fresh := domain.Appointment{ID: uuid.New(), PatientName: "Grace"}
	c.apply(mustMarshal(t, domain.NewAppointmentEvent{
		Type: domain.EventNewAppointment,
		Data: fresh,
	}))

	appointments := c.Appointments()
	require.Len(t, appointments, 2)
	assert.Equal(t, fresh.ID, appointments[0].ID)

	// Update replaces by identity, not by position.
	existing.Status = domain.AppointmentStatusConfirmed
	c.apply(mustMarshal(t, domain.AppointmentEvent{
		Type:        domain.EventAppointmentUpdate,
		Appointment: existing,
	}))

	appointments = c.Appointments()
	require.Len(t, appointments, 2)
	assert.Equal(t, domain.AppointmentStatusConfirmed, appointments[1].Status)
}

func TestMalformedEventsAreIgnored(t *testing.T) {
	c := New(Options{})

	seeded := domain.Appointment{ID: uuid.New()}
	c.apply(mustMarshal(t, domain.InitialDataEvent{
		Type:         domain.EventInitialData,
		Appointments: []domain.Appointment{seeded},
	}))

	c.apply([]byte("not json"))
	c.apply([]byte(`{"type":""}`))
	c.apply([]byte(`{"type":"SOMETHING_ELSE"}`))

	assert.Len(t, c.Appointments(), 1)
}

func TestOnEventObservesAllEvents(t *testing.T) {
	var seen []string
	c := New(Options{OnEvent: func(eventType string, _ []byte) {
		seen = append(seen, eventType)
	}})

	c.apply(mustMarshal(t, domain.PaymentEvent{
		Type:    domain.EventNewPayment,
		Payment: domain.Payment{ID: uuid.New()},
	}))
	c.apply(mustMarshal(t, domain.MessageEvent{
		Type:    domain.EventNewMessage,
		Message: domain.Message{ID: uuid.New()},
	}))

	assert.Equal(t, []string{domain.EventNewPayment, domain.EventNewMessage}, seen)
}

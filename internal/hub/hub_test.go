package hub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu        sync.Mutex
	frames    [][]byte
	closed    bool
	writeGate chan struct{}
	failWrite bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	if f.writeGate != nil {
		<-f.writeGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.failWrite {
		return errors.New("write on closed connection")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	f.frames = append(f.frames, buf)
	return nil
}

func (f *fakeConn) WriteControl(_ int, _ []byte, _ time.Time) error {
	return nil
}

func (f *fakeConn) SetWriteDeadline(_ time.Time) error {
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeConn) lastFrame() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := New(clockwork.NewRealClock(), slog.Default())
	t.Cleanup(h.Stop)
	return h
}

type testEvent struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

func TestPublishReachesAllClients(t *testing.T) {
	h := newTestHub(t)

	conns := []*fakeConn{{}, {}, {}}
	for _, conn := range conns {
		_, err := h.Register(conn)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, h.ClientCount())

	h.Publish("TEST_EVENT", testEvent{Type: "TEST_EVENT", Payload: "hello"})

	for _, conn := range conns {
		require.Eventually(t, func() bool {
			return conn.frameCount() == 1
		}, time.Second, 5*time.Millisecond)

		var got testEvent
		require.NoError(t, json.Unmarshal(conn.lastFrame(), &got))
		assert.Equal(t, "hello", got.Payload)
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := newTestHub(t)

	client, err := h.Register(&fakeConn{})
	require.NoError(t, err)
	require.Equal(t, 1, h.ClientCount())

	h.Unregister(client)
	h.Unregister(client)
	h.Unregister(client)

	assert.Equal(t, 0, h.ClientCount())
}

func TestPublishSkipsClosedClients(t *testing.T) {
	h := newTestHub(t)

	healthy := &fakeConn{}
	_, err := h.Register(healthy)
	require.NoError(t, err)

	broken, err := h.Register(&fakeConn{})
	require.NoError(t, err)
	broken.stop()

	h.Publish("TEST_EVENT", testEvent{Type: "TEST_EVENT", Payload: "still delivered"})

	require.Eventually(t, func() bool {
		return healthy.frameCount() == 1
	}, time.Second, 5*time.Millisecond)

	// The stopped client was dropped from the registry during fan-out.
	assert.Equal(t, 1, h.ClientCount())
}

func TestSlowClientIsEvicted(t *testing.T) {
	h := newTestHub(t)

	gate := make(chan struct{})
	slow := &fakeConn{writeGate: gate}
	_, err := h.Register(slow)
	require.NoError(t, err)

	// First message parks the writer in the gated WriteMessage, the
	// next sendBuffer messages fill the queue, one more overflows it.
	for i := 0; i < sendBuffer+2; i++ {
		h.Publish("TEST_EVENT", testEvent{Type: "TEST_EVENT"})
	}

	assert.Equal(t, 0, h.ClientCount())
	close(gate)
}

func TestWriteFailureDoesNotAffectOtherClients(t *testing.T) {
	h := newTestHub(t)

	failing := &fakeConn{failWrite: true}
	_, err := h.Register(failing)
	require.NoError(t, err)

	healthy := &fakeConn{}
	_, err = h.Register(healthy)
	require.NoError(t, err)

	h.Publish("TEST_EVENT", testEvent{Type: "TEST_EVENT", Payload: "one"})
	h.Publish("TEST_EVENT", testEvent{Type: "TEST_EVENT", Payload: "two"})

	require.Eventually(t, func() bool {
		return healthy.frameCount() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestRegisterAfterStopFails(t *testing.T) {
	h := New(clockwork.NewRealClock(), slog.Default())
	h.Stop()

	_, err := h.Register(&fakeConn{})
	assert.ErrorIs(t, err, ErrHubStopped)
}

func TestClientSendDeliversDirectly(t *testing.T) {
	h := newTestHub(t)

	target := &fakeConn{}
	client, err := h.Register(target)
	require.NoError(t, err)

	other := &fakeConn{}
	_, err = h.Register(other)
	require.NoError(t, err)

	require.NoError(t, client.Send(testEvent{Type: "TEST_EVENT", Payload: "just you"}))

	require.Eventually(t, func() bool {
		return target.frameCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, other.frameCount())
}

func TestClientSendAfterStopReturnsError(t *testing.T) {
	h := newTestHub(t)

	client, err := h.Register(&fakeConn{})
	require.NoError(t, err)
	h.Unregister(client)

	assert.ErrorIs(t, client.Send(testEvent{Type: "TEST_EVENT"}), ErrClientClosed)
}

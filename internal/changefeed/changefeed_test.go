package changefeed

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedis(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestChangefeedDeliversToAllSubscribers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rdb := setupRedis(t)
	ctx := context.Background()
	logger := slog.Default()

	feed := NewFeed(rdb, logger)
	notifier := NewNotifier(rdb, logger)

	first, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	defer first.Close()

	second, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	defer second.Close()

	at := time.Now().UTC().Truncate(time.Millisecond)
	notifier.AppointmentChanged(ctx, domain.ChangeInsert, at)

	for _, sub := range []*Subscription{first, second} {
		select {
		case change := <-sub.Changes():
			assert.Equal(t, "appointments", change.Table)
			assert.Equal(t, domain.ChangeInsert, change.Operation)
			assert.Equal(t, at, change.At.Truncate(time.Millisecond))
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber did not receive change notification")
		}
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rdb := setupRedis(t)
	ctx := context.Background()

	feed := NewFeed(rdb, slog.Default())
	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	select {
	case _, ok := <-sub.Changes():
		assert.False(t, ok, "changes channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("changes channel did not close")
	}
}

func TestMalformedPayloadsAreDropped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rdb := setupRedis(t)
	ctx := context.Background()

	feed := NewFeed(rdb, slog.Default())
	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, rdb.Publish(ctx, ChannelAppointments, "not json").Err())

	notifier := NewNotifier(rdb, slog.Default())
	notifier.AppointmentChanged(ctx, domain.ChangeUpdate, time.Now().UTC())

	select {
	case change := <-sub.Changes():
		// Only the well-formed notification comes through.
		assert.Equal(t, domain.ChangeUpdate, change.Operation)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not receive change notification")
	}
}

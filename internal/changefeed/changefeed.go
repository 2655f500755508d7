// Package changefeed carries data-change notifications between the
// write path and the realtime gateway over Redis pub/sub.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/metrics"
)

// ChannelAppointments is the pub/sub channel for appointment changes.
const ChannelAppointments = "changes:appointments"

// subscriptionBuffer bounds pending changes per subscriber; a consumer
// that falls this far behind loses notifications rather than blocking
// the feed.
const subscriptionBuffer = 16

// NewRedis connects a Redis client from a URL and verifies the
// connection.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Notifier publishes change notifications.
type Notifier struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewNotifier creates a change notifier.
func NewNotifier(rdb *redis.Client, logger *slog.Logger) *Notifier {
	return &Notifier{rdb: rdb, logger: logger}
}

// AppointmentChanged announces an insert/update/delete on appointment
// data. Publish failures are logged, not returned: a lost notification
// degrades freshness, it must not fail the originating write.
func (n *Notifier) AppointmentChanged(ctx context.Context, operation string, at time.Time) {
	change := domain.Change{
		Table:     "appointments",
		Operation: operation,
		At:        at,
	}
	payload, err := json.Marshal(change)
	if err != nil {
		n.logger.Error("failed to marshal change notification", "error", err)
		return
	}
	if err := n.rdb.Publish(ctx, ChannelAppointments, payload).Err(); err != nil {
		n.logger.Error("failed to publish change notification",
			"channel", ChannelAppointments, "error", err)
	}
}

// Feed hands out per-connection subscriptions to the change stream.
type Feed struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewFeed creates a changefeed.
func NewFeed(rdb *redis.Client, logger *slog.Logger) *Feed {
	return &Feed{rdb: rdb, logger: logger}
}

// Subscription is one consumer's live binding to the change stream.
type Subscription struct {
	changes   chan domain.Change
	pubsub    *redis.PubSub
	closeOnce sync.Once
}

// Changes returns the stream of change notifications. The channel is
// closed when the subscription closes.
func (s *Subscription) Changes() <-chan domain.Change {
	return s.changes
}

// Close releases the subscription. Safe to call multiple times.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		_ = s.pubsub.Close()
	})
}

// Subscribe opens a new subscription to appointment changes. Each
// subscription is independent: closing one does not affect others.
func (f *Feed) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := f.rdb.Subscribe(ctx, ChannelAppointments)

	// Force the SUBSCRIBE round trip so failures surface here instead
	// of silently on the message channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", ChannelAppointments, err)
	}

	sub := &Subscription{
		changes: make(chan domain.Change, subscriptionBuffer),
		pubsub:  pubsub,
	}

	go f.pump(pubsub, sub.changes)
	return sub, nil
}

// pump decodes raw pub/sub messages into changes until the
// subscription closes.
func (f *Feed) pump(pubsub *redis.PubSub, out chan<- domain.Change) {
	defer close(out)

	for msg := range pubsub.Channel() {
		var change domain.Change
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			f.logger.Warn("ignoring malformed change notification", "error", err)
			continue
		}
		metrics.ChangefeedMessages.Inc()

		select {
		case out <- change:
		default:
			f.logger.Warn("dropping change notification, subscriber is behind",
				"channel", msg.Channel)
		}
	}
}

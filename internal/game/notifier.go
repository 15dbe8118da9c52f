package game

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/wofa4-engine/internal/obslog"
)

// Notifier pushes state deltas to subscribed client sessions. Events for one
// room are published in commit order; delivery is at-least-once.
type Notifier interface {
	Publish(ctx context.Context, ev *Event) error
}

// EventStream is the subscriber side of the notifier contract.
type EventStream interface {
	// Subscribe returns a channel of events for roomID and a cancel func.
	// The channel closes after cancel or when ctx is done.
	Subscribe(ctx context.Context, roomID string) (<-chan *Event, func(), error)
}

// RedisNotifier fans events out over Redis Pub/Sub, one channel per room.
type RedisNotifier struct{ rdb *redis.Client }

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier { return &RedisNotifier{rdb: rdb} }

func (n *RedisNotifier) Publish(ctx context.Context, ev *Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, keyEvents(ev.RoomID), raw).Err()
}

func (n *RedisNotifier) Subscribe(ctx context.Context, roomID string) (<-chan *Event, func(), error) {
	ps := n.rdb.Subscribe(ctx, keyEvents(roomID))
	// force the subscription before returning so callers don't miss events
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}
	out := make(chan *Event, 16)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				obslog.L().Warn("event_decode_error", zap.String("room_id", roomID), zap.Error(err))
				continue
			}
			select {
			case out <- &ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	cancel := func() { _ = ps.Close() }
	return out, cancel, nil
}

// NopNotifier discards events; used in tests that only exercise state.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, *Event) error { return nil }

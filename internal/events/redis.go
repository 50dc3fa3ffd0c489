package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// channel is the single logical pub/sub channel carrying all call events.
const channel = "calls:events"

// RedisBus fans events out to every server process over Redis pub/sub.
// The publishing process receives its own events through the same path;
// there is no special-cased local delivery.
type RedisBus struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisBus(rdb *redis.Client, log *slog.Logger) *RedisBus {
	if log == nil {
		log = slog.Default()
	}
	return &RedisBus{rdb: rdb, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, e Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.Name, err)
	}
	if err := b.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", e.Name, err)
	}
	return nil
}

// Subscribe consumes the channel until ctx is done. Malformed payloads are
// logged and skipped; they never stop the subscription.
func (b *RedisBus) Subscribe(ctx context.Context, h Handler) error {
	sub := b.rdb.Subscribe(ctx, channel)

	// Confirm the subscription before returning so callers know events
	// published afterwards will be seen.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					b.log.Warn("dropping malformed bus event", "err", err)
					continue
				}
				h(ctx, e)
			}
		}
	}()
	return nil
}

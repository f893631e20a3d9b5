// cache/events.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/roomserver/config"
	"github.com/wfunc/roomserver/models"
)

// EventPublisher appends lifecycle events to a capped Redis list for
// out-of-process consumers.
type EventPublisher struct {
	rdb    redis.Cmdable
	queue  string
	maxLen int64
}

// NewEventPublisher wraps an existing client.
func NewEventPublisher(rdb redis.Cmdable, queue string, maxLen int64) *EventPublisher {
	return &EventPublisher{rdb: rdb, queue: queue, maxLen: maxLen}
}

// Connect dials Redis and verifies it with a ping.
func Connect(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Encode is the wire form of one queued event.
func Encode(event models.LifecycleEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal LifecycleEvent: %w", err)
	}
	return data, nil
}

// Publish pushes the event and trims the list to the newest maxLen entries in
// one round trip.
func (p *EventPublisher) Publish(ctx context.Context, event models.LifecycleEvent) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}

	_, err = p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, p.queue, data)
		if p.maxLen > 0 {
			pipe.LTrim(ctx, p.queue, -p.maxLen, -1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

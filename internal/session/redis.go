package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// recordKeyPrefix is the Redis key prefix for persisted session records.
	recordKeyPrefix = "ledger:session:"

	// eventChannelPrefix is the pub/sub channel prefix for change events.
	eventChannelPrefix = "ledger:session-events:"
)

// RedisStorage persists records in Redis and announces changes over Redis
// pub/sub, so every ledgerweb instance sees every tab's writes.
type RedisStorage struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStorage creates a Redis-backed storage. Each write sets the record
// to expire ttl later; reads never extend it, so a session lasts at most ttl
// after the login that wrote it.
func NewRedisStorage(rdb *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{redis: rdb, ttl: ttl}
}

// Get reads the record under key.
func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.redis.Get(ctx, recordKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session from Redis: %w", err)
	}
	return data, nil
}

// Put writes the record and publishes a change event in one round trip.
func (r *RedisStorage) Put(ctx context.Context, key string, value []byte, origin string) error {
	ev, err := json.Marshal(ChangeEvent{Key: key, Origin: origin})
	if err != nil {
		return fmt.Errorf("marshaling change event: %w", err)
	}

	_, err = r.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKeyPrefix+key, value, r.ttl)
		pipe.Publish(ctx, eventChannelPrefix+key, ev)
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing session in Redis: %w", err)
	}
	return nil
}

// Delete removes the record and publishes a change event.
func (r *RedisStorage) Delete(ctx context.Context, key string, origin string) error {
	ev, err := json.Marshal(ChangeEvent{Key: key, Origin: origin})
	if err != nil {
		return fmt.Errorf("marshaling change event: %w", err)
	}

	_, err = r.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordKeyPrefix+key)
		pipe.Publish(ctx, eventChannelPrefix+key, ev)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting session from Redis: %w", err)
	}
	return nil
}

// Watch subscribes to the change channel of key. It returns once Redis has
// confirmed the subscription, so no event published afterwards is missed.
func (r *RedisStorage) Watch(ctx context.Context, key string, origin string) (Watch, error) {
	ps := r.redis.Subscribe(ctx, eventChannelPrefix+key)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to session events: %w", err)
	}

	w := &redisWatch{
		pubsub: ps,
		events: make(chan ChangeEvent, 1),
		done:   make(chan struct{}),
	}

	go w.forward(origin)
	go func() {
		select {
		case <-ctx.Done():
			_ = w.Close()
		case <-w.done:
		}
	}()

	return w, nil
}

type redisWatch struct {
	pubsub *redis.PubSub
	events chan ChangeEvent
	done   chan struct{}
	once   sync.Once
	err    error
}

// forward drains the pub/sub channel until Close, dropping events that the
// watching origin published itself.
func (w *redisWatch) forward(origin string) {
	for msg := range w.pubsub.Channel() {
		var ev ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			slog.Warn("dropping malformed session event",
				slog.String("channel", msg.Channel),
				slog.Any("error", err),
			)
			continue
		}
		if ev.Origin == origin {
			continue
		}
		offer(w.events, ev)
	}
}

func (w *redisWatch) Events() <-chan ChangeEvent {
	return w.events
}

func (w *redisWatch) Close() error {
	w.once.Do(func() {
		w.err = w.pubsub.Close()
		close(w.done)
	})
	return w.err
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type invalidationMessage struct {
	Origin   string   `json:"origin"`
	Prefixes []string `json:"prefixes"`
}

// RedisBus publishes invalidations on a redis pub/sub channel.
type RedisBus struct {
	rdb     *goredis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisBus connects to addr and verifies the connection.
func NewRedisBus(addr, channel string, logger *zap.Logger) (*RedisBus, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = "bunrui:cache:invalidate"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBus{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger.With(zap.String("component", "RedisBus")),
	}, nil
}

// Publish sends prefixes to every subscriber.
func (b *RedisBus) Publish(ctx context.Context, prefixes ...string) error {
	raw, err := json.Marshal(invalidationMessage{Origin: b.origin, Prefixes: prefixes})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Subscribe forwards invalidations from other processes to onInvalidate until ctx is done.
// Messages published by this bus are skipped.
func (b *RedisBus) Subscribe(ctx context.Context, onInvalidate func(prefixes []string)) error {
	if onInvalidate == nil {
		return fmt.Errorf("onInvalidate callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var msg invalidationMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.logger.Warn("bad invalidation payload", zap.Error(err))
					continue
				}
				if msg.Origin == b.origin {
					continue
				}
				onInvalidate(msg.Prefixes)
			}
		}
	}()
	return nil
}

// Close closes the redis client.
func (b *RedisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

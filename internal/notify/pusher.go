package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisPusher publishes each message on "<channel>:<recipient id>" so that
// whatever holds the user's push subscription can forward it.
type RedisPusher struct {
	rdb     *goredis.Client
	channel string
}

func NewRedisPusher(addr, channel string) (*RedisPusher, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	if channel == "" {
		channel = "push"
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

	return &RedisPusher{rdb: rdb, channel: channel}, nil
}

func (p *RedisPusher) Push(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, ChannelFor(p.channel, msg.RecipientID), raw).Err()
}

func (p *RedisPusher) Close() error { return p.rdb.Close() }

func ChannelFor(prefix string, userID uint64) string {
	return fmt.Sprintf("%s:%d", prefix, userID)
}

// LogPusher only logs. Used when no push transport is configured.
type LogPusher struct {
	Log *slog.Logger
}

func (p LogPusher) Push(_ context.Context, msg Message) error {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("push", "user_id", msg.RecipientID, "title", msg.Title, "body", msg.Body, "url", msg.URL)
	return nil
}

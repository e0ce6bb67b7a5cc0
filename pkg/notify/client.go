// Package notify publishes indexer progress to redis so downstream readers
// can refresh without polling the relational store.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/akashx/akashx/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// ChannelBlockProcessed receives one BlockProcessed per committed window.
	ChannelBlockProcessed = "akashx:block.processed"
	// StreamBlockProcessed keeps the same events for consumers that were offline.
	StreamBlockProcessed = "akashx:stream:block.processed"

	DefaultStreamMaxLen = 10000
)

// Client wraps the redis client for pub/sub and stream notifications.
type Client struct {
	client       *redis.Client
	logger       *zap.Logger
	streamMaxLen int64
}

// NewClient connects using environment variables:
//   - REDIS_HOST (default "localhost")
//   - REDIS_PORT (default "6379")
//   - REDIS_PASSWORD (default "")
//   - REDIS_DB (default 0)
//   - REDIS_STREAM_MAXLEN (default 10000, 0 = unlimited)
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	addr := fmt.Sprintf("%s:%s", utils.Env("REDIS_HOST", "localhost"), utils.Env("REDIS_PORT", "6379"))
	return NewClientWithOptions(ctx, logger, &redis.Options{
		Addr:     addr,
		Password: utils.Env("REDIS_PASSWORD", ""),
		DB:       utils.EnvInt("REDIS_DB", 0),

		PoolSize:     4,
		MinIdleConns: 1,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}, utils.EnvInt64("REDIS_STREAM_MAXLEN", DefaultStreamMaxLen))
}

// NewClientWithOptions connects with explicit options and pings the server.
func NewClientWithOptions(ctx context.Context, logger *zap.Logger, opts *redis.Options, streamMaxLen int64) (*Client, error) {
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int64("streamMaxLen", streamMaxLen))

	return &Client{client: rdb, logger: logger, streamMaxLen: streamMaxLen}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// PublishProcessed announces a committed window on the channel and appends it
// to the stream. Both are best effort: failures are logged, never returned, so
// a redis outage cannot stall indexing.
func (c *Client) PublishProcessed(ctx context.Context, ev BlockProcessed) {
	if err := c.client.Publish(ctx, ChannelBlockProcessed, ev).Err(); err != nil {
		c.logger.Warn("Failed to publish Redis message",
			zap.String("channel", ChannelBlockProcessed),
			zap.Error(err))
	}

	args := &redis.XAddArgs{Stream: StreamBlockProcessed, Values: ev.values()}
	if c.streamMaxLen > 0 {
		args.MaxLen = c.streamMaxLen
		args.Approx = true
	}
	if err := c.client.XAdd(ctx, args).Err(); err != nil {
		c.logger.Warn("Failed to add to Redis stream",
			zap.String("stream", StreamBlockProcessed),
			zap.Error(err))
	}
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
	"github.com/smashingtags/homelabarr-containers/internal/infra/storage"
)

const (
	defaultStreamLen = 1000
	eventField       = "event"
	typeField        = "type"
)

// Config holds Redis connection configuration.
type Config struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	Prefix    string `yaml:"prefix"`
	StreamLen int64  `yaml:"stream_len"`
}

// commander is the subset of go-redis used by the journal.
type commander interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRevRangeN(ctx context.Context, stream, start, stop string, count int64) *redis.XMessageSliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Client stores connection events in a capped Redis stream and mirrors the
// latest event under a plain key for cheap polling.
type Client struct {
	rdb       commander
	prefix    string
	streamLen int64
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newClient(rdb, cfg), nil
}

func newClient(rdb commander, cfg Config) *Client {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "homelabarr"
	}
	streamLen := cfg.StreamLen
	if streamLen <= 0 {
		streamLen = defaultStreamLen
	}
	return &Client{rdb: rdb, prefix: prefix, streamLen: streamLen}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func (c *Client) streamKey() string {
	return fmt.Sprintf("%s:connection_events", c.prefix)
}

func (c *Client) latestKey() string {
	return fmt.Sprintf("%s:connection_latest", c.prefix)
}

// Save appends an event to the stream.
func (c *Client) Save(ctx context.Context, ev *domain.ConnectionEvent) error {
	if err := storage.Validate(ev); err != nil {
		return err
	}

	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	err = c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.streamKey(),
		MaxLen: c.streamLen,
		Approx: true,
		Values: map[string]interface{}{
			typeField:  string(ev.Type),
			eventField: payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd failed: %w", err)
	}

	if err := c.rdb.Set(ctx, c.latestKey(), payload, 0).Err(); err != nil {
		return fmt.Errorf("set latest failed: %w", err)
	}
	return nil
}

// Recent returns the newest events first.
func (c *Client) Recent(ctx context.Context, limit int) ([]*domain.ConnectionEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	msgs, err := c.rdb.XRevRangeN(ctx, c.streamKey(), "+", "-", int64(limit)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xrevrange failed: %w", err)
	}

	out := make([]*domain.ConnectionEvent, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := decodeMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("invalid stream entry %s: %w", msg.ID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func encodeEvent(ev *domain.ConnectionEvent) (string, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to encode event: %w", err)
	}
	return string(b), nil
}

func decodeMessage(msg redis.XMessage) (*domain.ConnectionEvent, error) {
	raw, ok := msg.Values[eventField]
	if !ok {
		return nil, fmt.Errorf("missing %q field", eventField)
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected %q field type %T", eventField, raw)
	}
	var ev domain.ConnectionEvent
	if err := json.Unmarshal([]byte(s), &ev); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &ev, nil
}

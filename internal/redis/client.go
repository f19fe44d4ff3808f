package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/wemet/relay-server-go/internal/errors"
)

// Client wraps the go-redis client used for cross-instance rate limiting.
type Client struct {
	*redis.Client
}

func NewClient(ctx context.Context, redisURL string, pingTimeout time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, apperrors.External("redis", fmt.Errorf("ping redis: %w", err))
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

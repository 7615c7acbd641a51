package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"addebiti/internal/store"
)

const maxTxRetries = 5

// Client wraps the go-redis client and namespaces every key under prefix.
type Client struct {
	*redis.Client
	prefix string
}

// New connects to url and verifies the connection.
func New(ctx context.Context, url, prefix string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client, prefix), nil
}

func NewWithClient(client *redis.Client, prefix string) *Client {
	return &Client{Client: client, prefix: prefix}
}

// Stores exposes the client through the store ports.
func (c *Client) Stores() store.Stores {
	return store.Stores{
		Services:  &Registry{c: c},
		Overrides: &Overrides{c: c},
		Settings:  &Settings{c: c},
	}
}

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) key(parts ...string) string {
	return c.prefix + strings.Join(parts, ":")
}

// watch runs fn in an optimistic transaction on keys, retrying when another
// client modified them first.
func (c *Client) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := c.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("transaction on %v: %w", keys, redis.TxFailedErr)
}

// escapeGlob quotes the characters MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

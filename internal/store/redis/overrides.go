package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"addebiti/internal/core"
)

// Overrides keeps one JSON string key per date. Nil fields are encoded as
// JSON null and decode back to nil.
type Overrides struct {
	c *Client
}

func (o *Overrides) dateKey(date string) string { return o.c.key("override", date) }

func (o *Overrides) Get(ctx context.Context, date string) (*core.PaymentOverride, error) {
	raw, err := o.c.Get(ctx, o.dateKey(date)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get override %s: %w", date, err)
	}
	var v core.PaymentOverride
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode override %s: %w", date, err)
	}
	return &v, nil
}

func (o *Overrides) Set(ctx context.Context, date string, v core.PaymentOverride) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode override: %w", err)
	}
	if err := o.c.Set(ctx, o.dateKey(date), data, 0).Err(); err != nil {
		return fmt.Errorf("set override %s: %w", date, err)
	}
	return nil
}

func (o *Overrides) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	base := o.dateKey("")
	iter := o.c.Scan(ctx, 0, escapeGlob(base+prefix)+"*", 100).Iterator()

	seen := make(map[string]struct{})
	for iter.Next(ctx) {
		seen[strings.TrimPrefix(iter.Val(), base)] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan override keys %s: %w", prefix, err)
	}

	// SCAN may return a key more than once
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (o *Overrides) Ping(ctx context.Context) error {
	return o.c.Health(ctx)
}

type Settings struct {
	c *Client
}

func (s *Settings) Get(ctx context.Context) (core.UserSettings, error) {
	var v core.UserSettings
	raw, err := s.c.Get(ctx, s.c.key("settings")).Result()
	if errors.Is(err, redis.Nil) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("get user settings: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("decode user settings: %w", err)
	}
	return v, nil
}

func (s *Settings) Save(ctx context.Context, v core.UserSettings) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode user settings: %w", err)
	}
	if err := s.c.Set(ctx, s.c.key("settings"), data, 0).Err(); err != nil {
		return fmt.Errorf("save user settings: %w", err)
	}
	return nil
}

func (s *Settings) Ping(ctx context.Context) error {
	return s.c.Health(ctx)
}
